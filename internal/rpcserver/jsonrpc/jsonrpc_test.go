package jsonrpc

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/graphprotocol/tap-aggregator/internal/audit"
	"github.com/graphprotocol/tap-aggregator/internal/tap"
	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	self := crypto.PubkeyToAddress(key.PublicKey)
	domain := tap.DomainV1(big.NewInt(1), common.HexToAddress("0x0000000000000000000000000000000000000001"))
	registry := tap.NewSignerRegistry(self, nil)
	signer := tap.NewRavSigner(key, domain, tap.Domain{})
	engine := tap.NewEngine(registry, signer, domain, tap.Domain{}, tap.DefaultVersionSet(), false)

	srv := NewServer(engine, tap.DefaultVersionSet(), zap.NewNop(), nil)
	r := gin.New()
	srv.Register(r.Group("/"))
	return httptest.NewServer(r)
}

func TestHandle_ApiVersions(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"api_versions","id":1}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	data, _ := json.Marshal(resp.Result)
	var got apiVersionsResult
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.VersionsSupported) != 1 || got.VersionsSupported[0] != "0.0" {
		t.Errorf("versions_supported = %v, want [0.0]", got.VersionsSupported)
	}
}

func TestHandle_UnknownMethod(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	resp := doRPC(t, srv.URL, `{"jsonrpc":"2.0","method":"bogus","id":1}`)
	if resp.Error == nil {
		t.Fatal("expected an error for an unknown method")
	}
	if resp.Error.Code != CodeAggregationError {
		t.Errorf("code = %d, want %d", resp.Error.Code, CodeAggregationError)
	}
}

func TestHandle_AggregateReceipts_UnsupportedVersion(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	body := `{"jsonrpc":"2.0","method":"aggregate_receipts","params":["9.9",[]],"id":1}`
	resp := doRPC(t, srv.URL, body)
	if resp.Error == nil {
		t.Fatal("expected an error")
	}
	if resp.Error.Code != CodeUnsupportedVersion {
		t.Errorf("code = %d, want %d", resp.Error.Code, CodeUnsupportedVersion)
	}
}

func TestHandle_AggregateReceipts_InvalidParamsShape(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	body := `{"jsonrpc":"2.0","method":"aggregate_receipts","params":["0.0"],"id":1}`
	resp := doRPC(t, srv.URL, body)
	if resp.Error == nil {
		t.Fatal("expected an error for a too-short params array")
	}
}

func TestHandle_AggregateReceipts_RecordsAudit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	self := crypto.PubkeyToAddress(key.PublicKey)
	domain := tap.DomainV1(big.NewInt(1), common.HexToAddress("0x0000000000000000000000000000000000000001"))
	registry := tap.NewSignerRegistry(self, nil)
	signer := tap.NewRavSigner(key, domain, tap.Domain{})
	engine := tap.NewEngine(registry, signer, domain, tap.Domain{}, tap.DefaultVersionSet(), false)

	alloc := common.HexToAddress("0xabababababababababababababababababababab")
	receipt, err := tap.SignReceiptV1(key, domain, tap.ReceiptV1{
		AllocationID: alloc, TimestampNs: 1, Nonce: 1, Value: tapcrypto.Uint128FromUint64(10),
	})
	if err != nil {
		t.Fatal(err)
	}
	receiptJSON, err := json.Marshal(receipt)
	if err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.InfoLevel)
	sink := audit.NewZapSink(zap.New(core))

	srv := NewServer(engine, tap.DefaultVersionSet(), zap.NewNop(), sink)
	r := gin.New()
	srv.Register(r.Group("/"))
	httpSrv := httptest.NewServer(r)
	defer httpSrv.Close()

	body := `{"jsonrpc":"2.0","method":"aggregate_receipts","params":["0.0",[` + string(receiptJSON) + `]],"id":1}`
	resp := doRPC(t, httpSrv.URL, body)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "aggregation succeeded" {
		t.Fatalf("expected one aggregation succeeded log entry, got %+v", entries)
	}
}

func doRPC(t *testing.T, url, body string) Response {
	t.Helper()
	httpResp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer httpResp.Body.Close()
	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}
