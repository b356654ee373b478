package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	appconversion "github.com/jhoicas/depot-stock-api/internal/application/conversion"
	"github.com/jhoicas/depot-stock-api/internal/domain/entity"
)

var (
	_ appconversion.SuggestionCache = (*RedisSuggestionCache)(nil)
	_ appconversion.SuggestionCache = NopSuggestionCache{}
)

const keyPrefix = "conversion:suggestions:"

func suggestionKey(sourceVariantID string) string {
	return keyPrefix + sourceVariantID
}

// RedisSuggestionCache guarda las sugerencias por variante origen como JSON con TTL.
type RedisSuggestionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient crea el cliente y verifica la conexión con PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisSuggestionCache construye la caché. ttl <= 0 usa 5 minutos.
func NewRedisSuggestionCache(rdb *redis.Client, ttl time.Duration) *RedisSuggestionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSuggestionCache{rdb: rdb, ttl: ttl}
}

// Get devuelve ok=false si la clave no existe.
func (c *RedisSuggestionCache) Get(ctx context.Context, sourceVariantID string) ([]entity.ConversionSuggestion, bool, error) {
	val, err := c.rdb.Get(ctx, suggestionKey(sourceVariantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out, err := decodeSuggestions(val)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *RedisSuggestionCache) Set(ctx context.Context, sourceVariantID string, suggestions []entity.ConversionSuggestion) error {
	val, err := encodeSuggestions(suggestions)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, suggestionKey(sourceVariantID), val, c.ttl).Err()
}

// Invalidate borra las claves de las variantes indicadas.
func (c *RedisSuggestionCache) Invalidate(ctx context.Context, sourceVariantIDs ...string) error {
	if len(sourceVariantIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(sourceVariantIDs))
	for _, id := range sourceVariantIDs {
		keys = append(keys, suggestionKey(id))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// NopSuggestionCache caché deshabilitada (REDIS_ADDR vacío): siempre miss.
type NopSuggestionCache struct{}

func (NopSuggestionCache) Get(context.Context, string) ([]entity.ConversionSuggestion, bool, error) {
	return nil, false, nil
}

func (NopSuggestionCache) Set(context.Context, string, []entity.ConversionSuggestion) error {
	return nil
}

func (NopSuggestionCache) Invalidate(context.Context, ...string) error { return nil }

func encodeSuggestions(suggestions []entity.ConversionSuggestion) ([]byte, error) {
	if suggestions == nil {
		suggestions = []entity.ConversionSuggestion{}
	}
	b, err := json.Marshal(suggestions)
	if err != nil {
		return nil, fmt.Errorf("encode suggestions: %w", err)
	}
	return b, nil
}

func decodeSuggestions(b []byte) ([]entity.ConversionSuggestion, error) {
	out := []entity.ConversionSuggestion{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return out, nil
}
