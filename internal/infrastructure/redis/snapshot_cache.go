package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	appsync "github.com/varejosoft/retaguarda/internal/application/sync"
	"github.com/varejosoft/retaguarda/internal/application/dto"
	"github.com/varejosoft/retaguarda/pkg/logger"
)

var _ appsync.SnapshotCache = (*SnapshotCache)(nil)

const snapshotKey = "retaguarda:catalog:snapshot"

// SnapshotCache cache del snapshot de carga inicial sobre Redis.
// Los errores de Redis se degradan a cache miss: el snapshot siempre se
// puede reconstruir desde la base.
type SnapshotCache struct {
	client *goredis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewSnapshotCache conecta a Redis y verifica con un ping.
func NewSnapshotCache(addr, password string, db int, ttl time.Duration, log *logger.Logger) (*SnapshotCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &SnapshotCache{client: client, ttl: ttl, log: log}, nil
}

func (c *SnapshotCache) Get(ctx context.Context) (*dto.CatalogSnapshot, bool, error) {
	raw, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn().Err(err).Msg("cache de snapshot no disponible, leyendo de la base")
		}
		return nil, false, nil
	}
	var snap dto.CatalogSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// Entrada corrupta: se descarta y se reconstruye.
		_ = c.client.Del(ctx, snapshotKey).Err()
		return nil, false, nil
	}
	return &snap, true, nil
}

func (c *SnapshotCache) Set(ctx context.Context, snapshot *dto.CatalogSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, snapshotKey, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("no se pudo cachear el snapshot")
	}
	return nil
}

func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, snapshotKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("no se pudo invalidar el snapshot")
	}
	return nil
}

// Close cierra la conexión con Redis.
func (c *SnapshotCache) Close() error {
	return c.client.Close()
}
