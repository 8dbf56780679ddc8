package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		prefix  string
		pattern string
		want    string
	}{
		{"iocradar:", "", "iocradar:*"},
		{"iocradar:", "dashboard:42:", "iocradar:*dashboard:42:*"},
		{"iocradar:", `alerts:{"range":"week"}`, `iocradar:*alerts:{"range":"week"}*`},
		{"iocradar:", "a*b?[c]", `iocradar:*a\*b\?\[c\]*`},
		{"iocradar:", "dashboard:*user?", `iocradar:*dashboard:\*user\?*`},
	}
	for _, tc := range cases {
		if got := matchPattern(tc.prefix, tc.pattern); got != tc.want {
			t.Fatalf("matchPattern(%q, %q) = %q, want %q", tc.prefix, tc.pattern, got, tc.want)
		}
	}
}

func TestNewRedisRequiresAddress(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisConfig{Addr: "  "})
	require.Error(t, err)
}

func TestRedisSurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := NewRedisWithClient(client, "test:", 0)
	t.Cleanup(func() { _ = r.Close() })
	require.Equal(t, DefaultTTL, r.ttl)

	ctx := context.Background()
	_, ok, err := r.Get(ctx, "alerts:{}")
	require.Error(t, err)
	require.False(t, ok)

	_, _, err = GetJSON[map[string]int](ctx, r, "alerts:{}")
	require.Error(t, err)
}
