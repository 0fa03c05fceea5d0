package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/internal/common/constants"
	"github.com/Alturino/storefront/internal/log"
)

func Start() {
	logger := log.InitLogger(os.Getenv("APPLICATION_LOG_FILE"), os.Getenv("APPLICATION_ENV")).
		With().
		Str(log.KeyAppName, constants.AppStorefront).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	configName := constants.AppStorefront
	rootCmd := &cobra.Command{
		Use:           constants.AppStorefront,
		Short:         "Storefront cart gateway and tax tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configName, "config", configName, "config file name under ./env, without extension")
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "gateway",
			Short: "Run the cart gateway",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runGateway(cmd.Context(), configName)
			},
		},
		newTaxCommand(),
	)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
