package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	cartClient "github.com/Alturino/storefront/cart/pkg/client"
	"github.com/Alturino/storefront/cart/pkg/store"
	"github.com/Alturino/storefront/internal/common/constants"
	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	commonOtel "github.com/Alturino/storefront/internal/common/otel"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/controller"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/upstream"
	taxClient "github.com/Alturino/storefront/tax/pkg/client"
	taxService "github.com/Alturino/storefront/tax/pkg/service"
)

const shutdownTimeout = 15 * time.Second

func runGateway(c context.Context, configName string) error {
	c, span := commonOtel.Tracer.Start(c, "runGateway")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppStorefrontGateway).
		Str(log.KeyTag, "main runGateway").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "init config").Logger()
	logger.Info().Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, configName)
	logger.Info().Msg("initialized config")

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := otel.InitOtelSdk(c, constants.AppStorefrontGateway, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otel.ShutdownOtel(logger.WithContext(shutdownCtx), otelShutdowns); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	c = logger.WithContext(c)
	cache, err := infra.NewRedisClient(c, cfg.Cache)
	if err != nil {
		err = fmt.Errorf("failed initializing cache with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer func() {
		logger = logger.With().Str(log.KeyProcess, "shutting down cache").Logger()
		logger.Info().Msg("shutting down cache")
		if err := cache.Close(); err != nil {
			err = fmt.Errorf("failed shutting down cache with error=%w", err)
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown cache")
	}()
	logger.Info().Msg("initialized cache")

	logger = logger.With().Str(log.KeyProcess, "initializing backend clients").Logger()
	logger.Info().Str(log.KeyURL, cfg.Api.BaseURL).Msg("initializing backend clients")
	httpClient := upstream.NewHTTPClient(cfg.Api.Timeout)
	carts := cartClient.New(cfg.Api.BaseURL, httpClient)
	taxes, err := taxService.New(taxClient.New(cfg.Api.BaseURL, httpClient), cfg.Tax.LocalFallback)
	if err != nil {
		err = fmt.Errorf("failed initializing tax service with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized backend clients")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	persister := store.NewRedisPersister(cache)
	registry := controller.NewRegistry(func(session string) *store.Store {
		return store.New(carts, persister, session, store.WithTaxEstimator(taxes))
	}, controller.DefaultMaxStores)
	router := controller.NewRouter(registry, taxes, []byte(cfg.Auth.SecretKey))
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	httpServer := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Msgf("start listening request at %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("error=%w occured while server is running", err)
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
		}
		return err
	case <-c.Done():
	}

	logger = logger.With().Str(log.KeyProcess, "shutting down http server").Logger()
	logger.Info().Msg("received interuption signal shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("shutdown http server")
	return nil
}
