package refstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/graphprotocol/tap-aggregator/internal/tap"
	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb)
}

func TestStore_PutGetRavV1(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rav := tap.SignedRavV1{
		Message: tap.RavV1{TimestampNs: 100, ValueAggregate: tapcrypto.Uint128FromUint64(57)},
	}
	if err := store.PutRavV1(ctx, "alloc-1", rav); err != nil {
		t.Fatalf("PutRavV1: %v", err)
	}

	got, err := store.GetRavV1(ctx, "alloc-1")
	if err != nil {
		t.Fatalf("GetRavV1: %v", err)
	}
	if got.Message.TimestampNs != 100 || got.Message.ValueAggregate.Cmp(tapcrypto.Uint128FromUint64(57)) != 0 {
		t.Errorf("got = %+v", got.Message)
	}
}

func TestStore_GetRavV1_NotFound(t *testing.T) {
	store := testStore(t)
	if _, err := store.GetRavV1(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rav := tap.SignedRavV2{Message: tap.RavV2{TimestampNs: 1}}
	if err := store.PutRavV2(ctx, "collection-1", rav); err != nil {
		t.Fatalf("PutRavV2: %v", err)
	}
	if err := store.Delete(ctx, "v2", "collection-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetRavV2(ctx, "collection-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
