package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guildforge/craftledger/api/responses"
	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/internal/ledger"
	pkgerrors "github.com/guildforge/craftledger/pkg/errors"
	"github.com/guildforge/craftledger/pkg/logger"
)

// OwnerLedger returns one owner's transactions grouped per character.
func OwnerLedger(logg *logger.Logger, svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := chi.URLParam(r, "ownerID")
		if ownerID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "owner id required"))
			return
		}
		responses.WriteSuccess(w, svc.OwnerView(ctx, ownerID))
	}
}

// ReloadCatalog re-reads the catalog file and swaps the snapshot.
func ReloadCatalog(logg *logger.Logger, cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := cat.Reload(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload catalog"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"catalog_version": cat.Snapshot().Version,
		})
	}
}
