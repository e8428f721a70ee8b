package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/guildforge/craftledger/api/responses"
	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/internal/ledger"
	pkgerrors "github.com/guildforge/craftledger/pkg/errors"
	"github.com/guildforge/craftledger/pkg/logger"
)

type cancelRequest struct {
	RequesterID    string   `json:"requester_id"`
	RequesterRoles []string `json:"requester_roles"`
	OwnerID        string   `json:"owner_id"`
	Character      string   `json:"character"`
	Kind           string   `json:"kind"`
	Item           string   `json:"item"`
}

type cancelResponse struct {
	Cancelled    bool                `json:"cancelled"`
	Transaction  *ledger.Transaction `json:"transaction,omitempty"`
	Confirmation string              `json:"confirmation,omitempty"`
}

// CancelTransaction attempts to cancel the most recent matching pending
// transaction. Unauthorized or unmatched attempts report cancelled=false
// with no further detail, mirroring the silent reaction semantics.
func CancelTransaction(logg *logger.Logger, svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req cancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}

		result, err := svc.Cancel(ctx, ledger.CancelParams{
			RequesterID:    req.RequesterID,
			RequesterRoles: req.RequesterRoles,
			OwnerID:        req.OwnerID,
			Character:      req.Character,
			Kind:           catalog.Kind(req.Kind),
			ItemName:       req.Item,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result == nil {
			responses.WriteSuccess(w, cancelResponse{Cancelled: false})
			return
		}

		responses.WriteSuccess(w, cancelResponse{
			Cancelled:    true,
			Transaction:  &result.Transaction,
			Confirmation: result.Confirmation,
		})
	}
}
