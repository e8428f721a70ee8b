package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/internal/ledger"
	"github.com/guildforge/craftledger/pkg/config"
	"github.com/guildforge/craftledger/pkg/logger"
)

const controllersCatalog = `{
  "max_roll": 100,
  "sweep": {"cron": "0 9 * * *", "timezone": "UTC"},
  "kinds": {
    "plants": {"channel": "greenhouse-reports", "supervisor_roles": ["gardien"]},
    "potions": {"channel": "cellar-reports", "supervisor_roles": ["maitre-des-potions"], "restricted": true}
  },
  "plants": [
    {"name": "Belladone", "aliases": ["bella"], "level": 2, "grow_days": 3}
  ],
  "potions": [],
  "messages": {
    "confirmation": {"plants": "Semis lancé pour {perso}, récolte {time}"},
    "success": {"plants": "{perso} récolte {item} x{quantity}"},
    "missed": {"plants": "{perso} ne récolte rien"},
    "cancelled": {"plants": "semis de {item} annulé pour {perso}"}
  }
}`

type nullNotifier struct{}

func (nullNotifier) Send(context.Context, catalog.Kind, string, string) error { return nil }

type nullTimers struct{}

func (nullTimers) Schedule(context.Context, uuid.UUID, time.Time, func(uuid.UUID)) {}
func (nullTimers) Cancel(uuid.UUID)                                              {}

func newTestEnv(t *testing.T) (*logger.Logger, *ledger.Service, *catalog.Catalog) {
	t.Helper()
	dir := t.TempDir()
	logg := logger.New(logger.Options{ServiceName: "test"})

	catalogPath := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(controllersCatalog), 0o600))
	cat, err := catalog.Open(catalogPath, logg)
	require.NoError(t, err)

	store, err := ledger.NewFileStore(filepath.Join(dir, "ledger.json"), logg)
	require.NoError(t, err)

	svc, err := ledger.NewService(ledger.ServiceParams{
		Store:    store,
		Timers:   nullTimers{},
		Notifier: nullNotifier{},
		Catalog:  cat,
		Logger:   logg,
		Location: time.UTC,
	})
	require.NoError(t, err)
	return logg, svc, cat
}

func TestCreateRollEndpoint(t *testing.T) {
	logg, svc, cat := newTestEnv(t)
	handler := CreateRoll(logg, svc, cat)

	body := `{"owner_id":"owner-1","character":"Aldarion","kind":"plants","item":"bella","roll":72,"bonus":30}`
	req := httptest.NewRequest(http.MethodPost, "/v1/rolls", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var envelope struct {
		Data rollResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, "Belladone", envelope.Data.Transaction.ItemName)
	require.Equal(t, 3, envelope.Data.Transaction.Quantity)
	require.Contains(t, envelope.Data.Confirmation, "Aldarion")
}

func TestCreateRollDrawsDieWhenAbsent(t *testing.T) {
	logg, svc, cat := newTestEnv(t)
	handler := CreateRoll(logg, svc, cat)

	body := `{"owner_id":"owner-1","character":"Aldarion","kind":"plants","item":"bella"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/rolls", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var envelope struct {
		Data rollResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	roll := envelope.Data.Transaction.Roll
	require.GreaterOrEqual(t, roll, 1)
	require.LessOrEqual(t, roll, 100)
}

func TestCreateRollRejectsUnknownItem(t *testing.T) {
	logg, svc, cat := newTestEnv(t)
	handler := CreateRoll(logg, svc, cat)

	body := `{"owner_id":"owner-1","character":"Aldarion","kind":"plants","item":"mandragore","roll":50}`
	req := httptest.NewRequest(http.MethodPost, "/v1/rolls", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelEndpointReportsSilentNoOp(t *testing.T) {
	logg, svc, _ := newTestEnv(t)
	handler := CancelTransaction(logg, svc)

	body := `{"requester_id":"stranger","owner_id":"owner-1","character":"Aldarion","kind":"plants","item":"bella"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cancellations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data cancelResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.False(t, envelope.Data.Cancelled)
	require.Nil(t, envelope.Data.Transaction)
}

func TestCancelEndpointRemovesOwnTransaction(t *testing.T) {
	logg, svc, cat := newTestEnv(t)

	createBody := `{"owner_id":"owner-1","character":"Aldarion","kind":"plants","item":"bella","roll":60}`
	createReq := httptest.NewRequest(http.MethodPost, "/v1/rolls", strings.NewReader(createBody))
	createRec := httptest.NewRecorder()
	CreateRoll(logg, svc, cat)(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	cancelBody := `{"requester_id":"owner-1","owner_id":"owner-1","character":"aldarion","kind":"plants","item":"Belladone"}`
	cancelReq := httptest.NewRequest(http.MethodPost, "/v1/cancellations", strings.NewReader(cancelBody))
	cancelRec := httptest.NewRecorder()
	CancelTransaction(logg, svc)(cancelRec, cancelReq)

	require.Equal(t, http.StatusOK, cancelRec.Code)
	var envelope struct {
		Data cancelResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(cancelRec.Body.Bytes(), &envelope))
	require.True(t, envelope.Data.Cancelled)
	require.NotNil(t, envelope.Data.Transaction)
}

func TestOwnerLedgerEndpoint(t *testing.T) {
	logg, svc, cat := newTestEnv(t)

	createBody := `{"owner_id":"owner-1","character":"Aldarion","kind":"plants","item":"bella","roll":60}`
	createReq := httptest.NewRequest(http.MethodPost, "/v1/rolls", strings.NewReader(createBody))
	CreateRoll(logg, svc, cat)(httptest.NewRecorder(), createReq)

	r := chi.NewRouter()
	r.Get("/v1/owners/{ownerID}/ledger", OwnerLedger(logg, svc))
	req := httptest.NewRequest(http.MethodGet, "/v1/owners/owner-1/ledger", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string][]ledger.Transaction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data["Aldarion"], 1)
}

func TestHealthEndpoint(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "development"}}
	rec := httptest.NewRecorder()
	HealthLive(cfg)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "development", rec.Header().Get("X-CraftLedger-Env"))
}
