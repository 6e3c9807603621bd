package cache_testing

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"
)

// CreateTestClient starts an in-memory valkey server and returns a client
// connected to it, plus the server for inspecting keys and TTLs.
func CreateTestClient(t *testing.T) (valkey.Client, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{server.Addr()},
		DisableCache: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to test cache: %v", err)
	}

	t.Cleanup(client.Close)

	return client, server
}
