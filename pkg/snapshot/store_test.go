package snapshot

import (
	"context"
	"testing"

	"github.com/Sternrassler/canvas-lms-client/pkg/table"
	"github.com/redis/go-redis/v9"
)

func TestNewStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	store := NewStore(client)
	if store == nil {
		t.Fatal("NewStore returned nil")
	}
	if store.redis != client {
		t.Error("Store redis client not set correctly")
	}
}

func TestNewStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewStore should panic with nil redis client")
		}
	}()
	NewStore(nil)
}

func TestStore_PutNilTable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	var tbl *table.Table
	if _, err := NewStore(client).Put(context.Background(), Key{Resource: "peers"}, tbl, 0); err == nil {
		t.Error("expected error for nil table")
	}
}
