// Package redisprops reads driver and unit properties from Redis hashes.
//
// The properties of key K and type T are the fields of the hash
// "<prefix>K:T":
//
//	HSET msgdriver:props:orders:driver ASYNC_FLAG false CLASS_0 units.Forward
//
// Several processes can then share one central configuration, layered over
// files with config.Chain.
package redisprops

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fxsml/msgdriver"
	"github.com/fxsml/msgdriver/config"
)

// DefaultPrefix starts every hash name unless Source.Prefix is set.
const DefaultPrefix = "msgdriver:props:"

// Client is the part of a go-redis client the source needs. *redis.Client,
// *redis.ClusterClient and redis.UniversalClient satisfy it.
type Client interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// Source is a config.PropertySource backed by Redis.
type Source struct {
	client  Client
	prefix  string
	timeout time.Duration
}

var _ config.PropertySource = (*Source)(nil)

// Option configures a Source.
type Option func(*Source)

// WithPrefix sets the hash name prefix.
func WithPrefix(prefix string) Option {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// WithTimeout bounds each lookup. Default: 5s.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a Source reading through client.
func New(client Client, opts ...Option) *Source {
	s := &Source{client: client, prefix: DefaultPrefix, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashKey returns the name of the hash holding the properties of key and
// typ.
func (s *Source) HashKey(key, typ string) string {
	return s.prefix + key + ":" + typ
}

// Properties returns the fields of the hash for key and typ. A missing or
// empty hash is reported as config.ErrNoProperties so that config.Chain
// moves on to the next source.
func (s *Source) Properties(key, typ string) (config.Properties, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.HashKey(key, typ)).Result()
	if err != nil {
		return nil, msgdriver.SystemErrorf("redisprops: %s/%s: %w", key, typ, err)
	}
	if len(fields) == 0 {
		return nil, config.NotFound(key, typ)
	}
	return config.Properties(fields), nil
}
