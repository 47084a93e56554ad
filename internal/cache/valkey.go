package cache

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyBackend shares cached queries between instances through Valkey.
type ValkeyBackend struct {
	client valkey.Client
	prefix string
}

// NewValkeyBackend wraps a connected client. Keys are namespaced by prefix.
func NewValkeyBackend(client valkey.Client, prefix string) *ValkeyBackend {
	if prefix == "" {
		prefix = "weather"
	}
	return &ValkeyBackend{client: client, prefix: prefix}
}

func (v *ValkeyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := v.client.B().Get().Key(v.key(key)).Build()
	raw, err := v.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (v *ValkeyBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	builder := v.client.B().Set().Key(v.key(key)).Value(valkey.BinaryString(value))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return v.client.Do(ctx, cmd).Error()
}

func (v *ValkeyBackend) key(k string) string {
	return v.prefix + ":" + k
}

var _ Backend = (*ValkeyBackend)(nil)
