package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/upstream"
	taxClient "github.com/Alturino/storefront/tax/pkg/client"
	"github.com/Alturino/storefront/tax/pkg/request"
	taxService "github.com/Alturino/storefront/tax/pkg/service"
)

var errInvalidTaxRequest = errors.New("invalid tax request")

func newTaxCommand() *cobra.Command {
	var (
		file   string
		remote bool
	)

	taxCmd := &cobra.Command{
		Use:   "tax",
		Short: "GST calculation tools",
	}
	taxCmd.PersistentFlags().StringVarP(&file, "file", "f", "-", "tax request JSON file, - for stdin")

	estimateCmd := &cobra.Command{
		Use:   "estimate",
		Short: "Calculate GST for a tax request",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			logger := zerolog.Ctx(c).With().Str(log.KeyTag, "tax estimate").Logger()

			req, err := readTaxRequest(cmd.InOrStdin(), file)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				return err
			}

			var remoteClient taxService.Remote
			if remote {
				configName, _ := cmd.Flags().GetString("config")
				cfg, err := config.Load(c, configName, "./env")
				if err != nil {
					return err
				}
				remoteClient = taxClient.New(cfg.Api.BaseURL, upstream.NewHTTPClient(cfg.Api.Timeout))
			}
			service, err := taxService.New(remoteClient, true)
			if err != nil {
				return err
			}

			result, err := service.CalculateCartTax(logger.WithContext(c), req)
			if err != nil {
				validationErr := &request.ValidationError{}
				if errors.As(err, &validationErr) {
					_ = writeJSON(cmd.OutOrStdout(), validationErr.Result)
				}
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	estimateCmd.Flags().BoolVar(&remote, "remote", false, "ask the backend first and fall back to the local calculator")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a tax request and list every problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readTaxRequest(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			result := request.ValidateTaxRequest(req)
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.IsValid {
				return fmt.Errorf("found %d problems with error=%w", len(result.Errors), errInvalidTaxRequest)
			}
			return nil
		},
	}

	taxCmd.AddCommand(estimateCmd, validateCmd)
	return taxCmd
}

func readTaxRequest(stdin io.Reader, file string) (request.CalculateTax, error) {
	in := stdin
	if file != "-" && file != "" {
		f, err := os.Open(file)
		if err != nil {
			return request.CalculateTax{}, fmt.Errorf("failed opening file=%s with error=%w", file, err)
		}
		defer f.Close()
		in = f
	}
	req := request.CalculateTax{}
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return request.CalculateTax{}, fmt.Errorf("failed decoding tax request with error=%w", err)
	}
	return req, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed encoding output with error=%w", err)
	}
	return nil
}
