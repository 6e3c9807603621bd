package cache

import (
	"crypto/tls"
	"sync"

	"memberledger/internal/config"

	"github.com/valkey-io/valkey-go"
)

var (
	once         sync.Once
	valkeyClient valkey.Client
)

// GetCache returns the shared valkey client, or nil when IS_CACHE_ENABLED is
// off. Callers treat a nil client as "no cache".
func GetCache() valkey.Client {
	once.Do(func() {
		env := config.GetEnv()
		if !env.IsCacheEnabled {
			return
		}

		options := valkey.ClientOption{
			InitAddress: []string{env.ValkeyHost + ":" + env.ValkeyPort},
			Password:    env.ValkeyPassword,
			Username:    env.ValkeyUsername,
		}

		if env.ValkeyIsSsl {
			options.TLSConfig = &tls.Config{
				ServerName: env.ValkeyHost,
			}
		}

		client, err := valkey.NewClient(options)
		if err != nil {
			panic(err)
		}

		valkeyClient = client
	})

	return valkeyClient
}
