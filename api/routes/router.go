package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guildforge/craftledger/api/controllers"
	"github.com/guildforge/craftledger/api/middleware"
	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/internal/ledger"
	"github.com/guildforge/craftledger/pkg/config"
	"github.com/guildforge/craftledger/pkg/logger"
)

// NewRouter wires the intake and ops HTTP surface.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	ledgerService *ledger.Service,
	cat *catalog.Catalog,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.Recoverer(logg))

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/rolls", controllers.CreateRoll(logg, ledgerService, cat))
		r.Post("/cancellations", controllers.CancelTransaction(logg, ledgerService))
		r.Get("/owners/{ownerID}/ledger", controllers.OwnerLedger(logg, ledgerService))
		r.Post("/catalog/reload", controllers.ReloadCatalog(logg, cat))
	})

	return r
}
