package config

// Redis backs distributed rate limiting and HTTP response caching. When the
// server cannot be reached at startup the constructor returns nil and callers
// degrade gracefully by disabling both middlewares.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// Address resolves the host:port to dial. REDIS_HOST and REDIS_PORT win over
// REDIS_ADDR when both are set.
func (rc RedisConfig) Address() string {
	if rc.Host != "" && rc.Port != "" {
		return rc.Host + ":" + rc.Port
	}
	if rc.Addr == "" {
		return "localhost:6379"
	}
	return rc.Addr
}

// NewRedisClient instantiates a Redis client from rc. The returned client is
// nil if a ping does not succeed within two seconds.
func NewRedisClient(rc RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if rc.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      rc.Address(),
		Password:  rc.Password,
		DB:        rc.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
