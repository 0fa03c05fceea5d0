package infra

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	"github.com/Alturino/storefront/internal/common/otel"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
)

// NewRedisClient connects to the redis instance holding cart store snapshots.
// The client is closed before returning when instrumenting or pinging fails.
func NewRedisClient(c context.Context, cfg config.Cache) (_ *redis.Client, err error) {
	c, span := otel.Tracer.Start(c, "infra NewRedisClient")
	defer span.End()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(int(cfg.Port)))
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "infra NewRedisClient").
		Str("addr", addr).
		Int("database", cfg.Database).
		Logger()

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.Database,
	})
	defer func() {
		if err == nil {
			return
		}
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		err = errors.Join(err, client.Close())
	}()

	logger = logger.With().Str(log.KeyProcess, "instrumenting redis").Logger()
	logger.Debug().Msg("instrumenting redis")
	if err = redisotel.InstrumentTracing(client, redisotel.WithAttributes(semconv.DBSystemRedis)); err != nil {
		return nil, fmt.Errorf("failed instrumenting redis tracing with error=%w", err)
	}
	if err = redisotel.InstrumentMetrics(client, redisotel.WithAttributes(semconv.DBSystemRedis)); err != nil {
		return nil, fmt.Errorf("failed instrumenting redis metrics with error=%w", err)
	}
	logger.Debug().Msg("instrumented redis")

	logger = logger.With().Str(log.KeyProcess, "pinging redis").Logger()
	logger.Info().Msg("pinging redis")
	if err = client.Ping(c).Err(); err != nil {
		return nil, fmt.Errorf("failed pinging redis at %s with error=%w", addr, err)
	}
	logger.Info().Msg("pinged redis")

	return client, nil
}
