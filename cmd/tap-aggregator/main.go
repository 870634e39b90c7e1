package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/graphprotocol/tap-aggregator/internal/audit"
	"github.com/graphprotocol/tap-aggregator/internal/config"
	"github.com/graphprotocol/tap-aggregator/internal/keysource"
	"github.com/graphprotocol/tap-aggregator/internal/rpcserver/grpcserver"
	"github.com/graphprotocol/tap-aggregator/internal/rpcserver/jsonrpc"
	"github.com/graphprotocol/tap-aggregator/internal/tap"
	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key, err := keysource.Get(ctx, cfg.Signer.PrivateKeyHex, "tap-aggregator", cfg.Signer.KeySourceAddr)
	if err != nil {
		log.Fatal("signing key load failed", zap.Error(err))
	}
	self := crypto.PubkeyToAddress(key.PublicKey)

	registry := buildRegistry(self, cfg.Signer.AllowedSigners)

	domainV1 := tap.DomainV1(big.NewInt(cfg.V1.ChainID), parseAddr(cfg.V1.VerifyingContract))
	var domainV2 tap.Domain
	if cfg.Feature.EnableV2 {
		domainV2 = tap.DomainV2(big.NewInt(cfg.V2.ChainID), parseAddr(cfg.V2.VerifyingContract))
	}

	signer := tap.NewRavSigner(key, domainV1, domainV2)
	engine := tap.NewEngine(registry, signer, domainV1, domainV2, tap.DefaultVersionSet(), cfg.Feature.EnableV2)

	auditSink := audit.NewZapSink(log)

	// ── JSON-RPC server (gin) ──────────────────────────────────────────────
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	rpcSrv := jsonrpc.NewServer(engine, tap.DefaultVersionSet(), log, auditSink)
	rpcSrv.Register(r.Group("/"))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.JSONRPCPort),
		Handler: r,
	}

	// ── gRPC server ─────────────────────────────────────────────────────────
	grpcSrv := grpc.NewServer()
	grpcserver.Register(grpcSrv, engine, auditSink)

	go func() {
		log.Info("JSON-RPC server starting", zap.Int("port", cfg.Server.JSONRPCPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("JSON-RPC server error", zap.Error(err))
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			log.Fatal("grpc listen failed", zap.Error(err))
		}
		log.Info("gRPC server starting", zap.Int("port", cfg.Server.GRPCPort))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("JSON-RPC server shutdown error", zap.Error(err))
	}
	grpcSrv.GracefulStop()
	log.Info("shutdown complete")
}

func buildRegistry(self tapcrypto.Address, allowedHex []string) *tap.SignerRegistry {
	allowed := make([]tapcrypto.Address, 0, len(allowedHex))
	for _, s := range allowedHex {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		allowed = append(allowed, common.HexToAddress(s))
	}
	return tap.NewSignerRegistry(self, allowed)
}

func parseAddr(s string) tapcrypto.Address {
	return common.HexToAddress(s)
}
