package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/otel"
	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/log"
)

// RedisPersister stores snapshots as JSON strings without expiry.
type RedisPersister struct {
	rdb *redis.Client
}

func NewRedisPersister(rdb *redis.Client) *RedisPersister {
	return &RedisPersister{rdb: rdb}
}

func (p *RedisPersister) Load(c context.Context, key string) (Snapshot, bool, error) {
	c, span := otel.Tracer.Start(c, "RedisPersister Load")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisPersister Load").
		Str(log.KeyCacheKey, key).
		Str(log.KeyProcess, "loading snapshot").
		Logger()

	logger.Trace().Msg("loading snapshot")
	b, err := p.rdb.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Trace().Msg("snapshot not found")
		return Snapshot{}, false, nil
	}
	if err != nil {
		err = fmt.Errorf("failed loading snapshot with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Snapshot{}, false, err
	}

	snapshot := Snapshot{}
	if err := json.Unmarshal(b, &snapshot); err != nil {
		err = fmt.Errorf("failed decoding snapshot with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Snapshot{}, false, err
	}
	logger.Trace().Msg("loaded snapshot")
	return snapshot, true, nil
}

func (p *RedisPersister) Save(c context.Context, key string, snapshot Snapshot) error {
	c, span := otel.Tracer.Start(c, "RedisPersister Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisPersister Save").
		Str(log.KeyCacheKey, key).
		Str(log.KeyProcess, "saving snapshot").
		Logger()

	b, err := json.Marshal(snapshot)
	if err != nil {
		err = fmt.Errorf("failed encoding snapshot with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger.Trace().Msg("saving snapshot")
	if err := p.rdb.Set(c, key, b, 0).Err(); err != nil {
		err = fmt.Errorf("failed saving snapshot with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("saved snapshot")
	return nil
}
