package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/guildforge/craftledger/api/responses"
	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/internal/ledger"
	"github.com/guildforge/craftledger/internal/outcome"
	pkgerrors "github.com/guildforge/craftledger/pkg/errors"
	"github.com/guildforge/craftledger/pkg/logger"
)

type rollRequest struct {
	OwnerID   string `json:"owner_id"`
	Character string `json:"character"`
	Kind      string `json:"kind"`
	Item      string `json:"item"`
	// Roll is optional; 0 draws the die server-side.
	Roll  int `json:"roll"`
	Bonus int `json:"bonus"`
}

type rollResponse struct {
	Transaction  ledger.Transaction `json:"transaction"`
	Confirmation string             `json:"confirmation"`
}

// CreateRoll accepts a validated crafting request and hands it to the
// ledger.
func CreateRoll(logg *logger.Logger, svc *ledger.Service, cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req rollRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}

		roll := req.Roll
		if roll == 0 {
			roll = outcome.Roll(cat.Snapshot().MaxRoll)
		}

		result, err := svc.CreateRoll(ctx, ledger.RollParams{
			OwnerID:   req.OwnerID,
			Character: req.Character,
			Kind:      catalog.Kind(req.Kind),
			ItemName:  req.Item,
			Roll:      roll,
			Bonus:     req.Bonus,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, rollResponse{
			Transaction:  result.Transaction,
			Confirmation: result.Confirmation,
		})
	}
}
