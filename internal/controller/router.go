package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Alturino/storefront/internal/common/constants"
	"github.com/Alturino/storefront/internal/middleware"
)

// NewRouter wires the gateway routes. /metrics sits outside the session
// middleware so scraping never mints guest sessions. An empty secretKey keys
// token sessions by token digest instead of verified subject.
func NewRouter(registry *Registry, taxService TaxService, secretKey []byte) *mux.Router {
	router := mux.NewRouter()
	router.Use(otelmux.Middleware(constants.AppStorefrontGateway), middleware.Logging, middleware.RecoverPanic)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("").Subrouter()
	api.Use(middleware.Sessions(secretKey))
	AttachCartController(api, registry)
	AttachTaxController(api, taxService)
	return router
}
