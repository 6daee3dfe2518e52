//go:build integration

package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"fintrack/internal/store"
	"fintrack/internal/store/storetest"
)

// Integration tests require a reachable MongoDB.
// Run with: MONGODB_URI=mongodb://localhost:27017 go test -tags=integration ./internal/store/mongo

func TestIntegration_Contract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping integration test")
	}

	storetest.Run(t, storetest.Backend{
		Persistent: true,
		Fresh: func(t *testing.T) storetest.Opener {
			database := fmt.Sprintf("fintrack_test_%d", time.Now().UnixNano())
			t.Cleanup(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				s, err := New(ctx, uri, database)
				if err != nil {
					return
				}
				_ = s.Drop(ctx)
				_ = s.Close()
			})
			return func() (store.Store, error) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return New(ctx, uri, database)
			}
		},
	})
}
