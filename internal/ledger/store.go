package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/guildforge/craftledger/pkg/logger"
)

// Store persists the whole ledger structure in one read or write.
// Callers must read-modify-write; there is no partial update.
type Store interface {
	Load(ctx context.Context) *Ledger
	Save(ctx context.Context, l *Ledger) error
}

// FileStore keeps the ledger as a single JSON file. Saves go through a
// temp file and a rename so a load never observes a torn write. It
// assumes a single writer process.
type FileStore struct {
	path string
	logg *logger.Logger
}

// NewFileStore builds a file-backed store at path.
func NewFileStore(path string, logg *logger.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger file path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	return &FileStore{path: path, logg: logg}, nil
}

// Load reads the persisted ledger. A missing or unparsable file yields
// an empty ledger with a warning, never an error.
func (s *FileStore) Load(ctx context.Context) *Ledger {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "ledger file unreadable, starting empty")
		}
		return NewLedger()
	}
	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "ledger file unparsable, starting empty")
		}
		return NewLedger()
	}
	if l.Owners == nil {
		l.Owners = map[string]Owner{}
	}
	return &l
}

// Save atomically replaces the persisted ledger.
func (s *FileStore) Save(ctx context.Context, l *Ledger) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace ledger file: %w", err)
	}
	return nil
}
