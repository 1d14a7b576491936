package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/dmehra2102/storefront/internal/catalog/domain"
	"github.com/dmehra2102/storefront/pkg/money"
)

const keyPrefix = "catalog:product:"

// ProductCache keeps product reads in Redis behind a circuit breaker. Every
// failure degrades to a miss.
type ProductCache struct {
	log *slog.Logger
	rdb redis.Cmdable
	cb  *gobreaker.CircuitBreaker
	ttl time.Duration
}

func NewProductCache(log *slog.Logger, rdb redis.Cmdable, cb *gobreaker.CircuitBreaker, ttl time.Duration) *ProductCache {
	return &ProductCache{log: log, rdb: rdb, cb: cb, ttl: ttl}
}

type entry struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Price       money.Money `json:"price"`
	Stock       int         `json:"stock"`
	ImageURL    string      `json:"imageUrl"`
	Featured    bool        `json:"featured"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (c *ProductCache) Get(ctx context.Context, id string) (domain.Product, bool) {
	v, err := c.cb.Execute(func() (interface{}, error) {
		b, err := c.rdb.Get(ctx, keyPrefix+id).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		c.log.Warn("product cache get failed", "product_id", id, "err", err)
		return domain.Product{}, false
	}
	b, _ := v.([]byte)
	if b == nil {
		return domain.Product{}, false
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		c.log.Warn("product cache entry corrupt", "product_id", id, "err", err)
		return domain.Product{}, false
	}
	return domain.Product{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Category:    domain.Category(e.Category),
		Price:       e.Price,
		Stock:       e.Stock,
		ImageURL:    e.ImageURL,
		Featured:    e.Featured,
		Active:      e.Active,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}, true
}

func (c *ProductCache) Set(ctx context.Context, p domain.Product) {
	b, err := json.Marshal(entry{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Featured:    p.Featured,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	})
	if err != nil {
		return
	}
	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, keyPrefix+p.ID, b, c.ttl).Err()
	})
	if err != nil {
		c.log.Warn("product cache set failed", "product_id", p.ID, "err", err)
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, keyPrefix+id)
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.rdb.Del(ctx, keys...).Err()
	})
	if err != nil {
		c.log.Warn("product cache invalidate failed", "keys", keys, "err", err)
	}
}
