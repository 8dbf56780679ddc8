// 응답 캐시
// 전역 싱글톤 대신 Store를 생성해서 서비스에 주입

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ioc-radar/backend/internal/metrics"
)

const DefaultTTL = 5 * time.Minute

// Store - 만료 시간이 있는 key/value 저장소
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// ttl <= 0 이면 저장소 기본 TTL 사용
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Invalidate - key에 pattern이 포함된 항목 삭제 (빈 pattern은 전체), 삭제 개수 반환
	Invalidate(ctx context.Context, pattern string) (int, error)
	Len(ctx context.Context) (int, error)
}

// Key - endpoint와 파라미터로 캐시 키 생성
// map은 키 순서대로 직렬화되므로 같은 파라미터는 항상 같은 키가 된다
func Key(endpoint string, params map[string]any) string {
	if len(params) == 0 {
		return endpoint + ":{}"
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", endpoint, params)
	}
	return endpoint + ":" + string(raw)
}

// GetJSON - 캐시 항목을 T로 디코딩
// 손상된 항목은 miss로 취급하고 삭제
func GetJSON[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var out T
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return out, false, err
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		_ = store.Delete(ctx, key)
		return out, false, nil
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return out, true, nil
}

func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return store.Set(ctx, key, raw, ttl)
}
