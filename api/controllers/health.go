package controllers

import (
	"net/http"

	"github.com/guildforge/craftledger/api/responses"
	"github.com/guildforge/craftledger/pkg/config"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CraftLedger-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}
