// Package keysource retrieves the aggregator's own ECDSA signing key.
//
// Two sources are supported: a plain hex-encoded environment variable for
// local development and tests, or a gRPC call to an external key-custody
// daemon for production deployments where the key never touches the
// aggregator's own environment.
package keysource

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/graphprotocol/tap-aggregator/internal/rpcpb"
)

// cached result. Mirrors the once-without-caching-errors pattern: a
// transient failure to reach the key daemon should not wedge the process
// into permanent failure on the next attempt.
var (
	mu        sync.Mutex
	once      sync.Once
	cachedKey *ecdsa.PrivateKey
	cachedErr error
)

// Get returns the aggregator's signing key, fetching and caching it on
// first use.
//
//   - If privateKeyHex is non-empty, it is used directly (local/dev mode).
//   - Otherwise daemonAddr is dialed over gRPC to fetch the key.
func Get(ctx context.Context, privateKeyHex, serviceID, daemonAddr string) (*ecdsa.PrivateKey, error) {
	mu.Lock()
	defer mu.Unlock()
	once.Do(func() {
		cachedKey, cachedErr = fetch(ctx, privateKeyHex, serviceID, daemonAddr)
	})
	if cachedErr != nil {
		once = sync.Once{}
	}
	return cachedKey, cachedErr
}

func fetch(ctx context.Context, privateKeyHex, serviceID, daemonAddr string) (*ecdsa.PrivateKey, error) {
	if privateKeyHex != "" {
		return fetchLocal(privateKeyHex)
	}
	return fetchDaemon(ctx, serviceID, daemonAddr)
}

func fetchLocal(raw string) (*ecdsa.PrivateKey, error) {
	hexKey := strings.TrimPrefix(raw, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("keysource: invalid private key: %w", err)
	}
	return key, nil
}

// fetchDaemon calls an external key-custody daemon over gRPC using the
// hand-rolled rpcpb wire codec (see internal/rpcpb), the same one the
// aggregation service itself is exposed through.
func fetchDaemon(ctx context.Context, serviceID, daemonAddr string) (*ecdsa.PrivateKey, error) {
	conn, err := grpc.NewClient(daemonAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("keysource: grpc dial %s: %w", daemonAddr, err)
	}
	defer conn.Close()

	req := &rpcpb.GetSigningKeyRequest{ServiceID: serviceID}
	resp := new(rpcpb.GetSigningKeyResponse)
	err = conn.Invoke(ctx, "/tap.keysource.v1.KeySourceService/GetSigningKey", req, resp,
		grpc.CallContentSubtype(rpcpb.ContentSubtype))
	if err != nil {
		return nil, fmt.Errorf("keysource: GetSigningKey: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("keysource: GetSigningKey failed: %s", resp.Message)
	}
	if len(resp.PrivateKey) == 0 {
		return nil, fmt.Errorf("keysource: GetSigningKey returned empty private key")
	}

	key, err := crypto.ToECDSA(resp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("keysource: decode private key: %w", err)
	}
	return key, nil
}

// EnvOrDefault returns the value of the named environment variable, or
// dflt if it is unset or empty.
func EnvOrDefault(key, dflt string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return dflt
}
