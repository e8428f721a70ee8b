package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := NewFileStore(path, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store, path
}

func TestLoadMissingFileYieldsEmptyLedger(t *testing.T) {
	store, _ := newTestStore(t)
	l := store.Load(context.Background())
	if l == nil || l.Owners == nil {
		t.Fatal("expected empty initialized ledger")
	}
	if len(l.Owners) != 0 {
		t.Fatalf("expected no owners, got %d", len(l.Owners))
	}
}

func TestLoadCorruptFileYieldsEmptyLedger(t *testing.T) {
	store, path := newTestStore(t)
	if err := os.WriteFile(path, []byte("{{{"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	l := store.Load(context.Background())
	if len(l.Owners) != 0 {
		t.Fatal("expected corrupt file to read as empty ledger")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	requested := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLedger()
	char := l.EnsureCharacter("owner-1", "Aldarion")
	first := &Transaction{
		ID:           uuid.New(),
		OwnerID:      "owner-1",
		Character:    "Aldarion",
		Kind:         catalog.KindPlants,
		ItemName:     "Belladone",
		Roll:         72,
		Bonus:        10,
		Quantity:     2,
		MustBeStored: true,
		Status:       StatusPending,
		RequestedAt:  requested,
		MaturesAt:    requested.Add(72 * time.Hour),
	}
	second := &Transaction{
		ID:          uuid.New(),
		OwnerID:     "owner-1",
		Character:   "Aldarion",
		Kind:        catalog.KindPotions,
		ItemName:    "Élixir de Mémoire",
		Roll:        1,
		Status:      StatusDelivered,
		RequestedAt: requested,
		MaturesAt:   requested.Add(6 * time.Hour),
	}
	char.Transactions = append(char.Transactions, first, second)

	if err := store.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := store.Load(ctx)
	gotChar := got.Owners["owner-1"].Character("aldarion")
	if gotChar == nil {
		t.Fatal("expected character to round-trip with locale lookup")
	}
	if len(gotChar.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(gotChar.Transactions))
	}
	if gotChar.Transactions[0].ID != first.ID || gotChar.Transactions[1].ID != second.ID {
		t.Fatal("expected transaction order preserved")
	}
	if !gotChar.Transactions[0].MaturesAt.Equal(first.MaturesAt) {
		t.Fatal("expected maturation time preserved")
	}
	if gotChar.Transactions[1].Status != StatusDelivered {
		t.Fatal("expected status preserved")
	}
}

func TestSaveLeavesNoTempFilesBehind(t *testing.T) {
	store, path := newTestStore(t)
	if err := store.Save(context.Background(), NewLedger()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the ledger file, found %d entries", len(entries))
	}
}

func TestEnsureCharacterCollapsesLocaleVariants(t *testing.T) {
	l := NewLedger()
	a := l.EnsureCharacter("owner-1", "Gandalf")
	b := l.EnsureCharacter("owner-1", "GANDALF")
	if a != b {
		t.Fatal("expected locale variants to share one character entry")
	}
	if len(l.Owners["owner-1"]) != 1 {
		t.Fatalf("expected one character key, got %d", len(l.Owners["owner-1"]))
	}
}

func TestRemoveKeepsOrder(t *testing.T) {
	l := NewLedger()
	char := l.EnsureCharacter("o", "c")
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		char.Transactions = append(char.Transactions, &Transaction{ID: id, Status: StatusPending})
	}
	if !l.Remove(ids[1]) {
		t.Fatal("expected removal to succeed")
	}
	if l.Remove(ids[1]) {
		t.Fatal("expected second removal to report false")
	}
	if len(char.Transactions) != 2 {
		t.Fatalf("expected 2 left, got %d", len(char.Transactions))
	}
	if char.Transactions[0].ID != ids[0] || char.Transactions[1].ID != ids[2] {
		t.Fatal("expected remaining order preserved")
	}
}
