package response

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	commonErrors "github.com/Alturino/storefront/internal/common/errors"
	commonHttp "github.com/Alturino/storefront/internal/common/http"
	"github.com/Alturino/storefront/internal/common/otel"
	"github.com/Alturino/storefront/internal/log"
)

func WriteJsonResponse(
	c context.Context,
	w http.ResponseWriter,
	header map[string]string,
	body map[string]interface{},
) {
	c, span := otel.Tracer.Start(c, "WriteJsonResponse")
	defer span.End()

	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "WriteJsonResponse").Logger()

	w.Header().Set(commonHttp.HeaderContentType, commonHttp.HeaderValueJson)
	for k, v := range header {
		w.Header().Set(k, v)
	}

	if v, ok := body["statusCode"].(int); ok {
		w.WriteHeader(v)
	}

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msgf("failed encode response body with error=%s", err.Error())
		return
	}
}

func WriteFailed(c context.Context, w http.ResponseWriter, statusCode int, err error) {
	WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     commonHttp.StatusFailed,
		"statusCode": statusCode,
		"message":    err.Error(),
	})
}

// WriteFailedWithData is WriteFailed carrying data the caller can render,
// such as a list of validation errors.
func WriteFailedWithData(
	c context.Context,
	w http.ResponseWriter,
	statusCode int,
	err error,
	data map[string]interface{},
) {
	WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     commonHttp.StatusFailed,
		"statusCode": statusCode,
		"message":    err.Error(),
		"data":       data,
	})
}

func WriteSuccess(
	c context.Context,
	w http.ResponseWriter,
	header map[string]string,
	message string,
	data map[string]interface{},
) {
	WriteJsonResponse(c, w, header, map[string]interface{}{
		"status":     commonHttp.StatusSuccess,
		"statusCode": http.StatusOK,
		"message":    message,
		"data":       data,
	})
}
