// Package catalog loads the craftable item catalog and the per-kind
// settings (report channels, supervisor roles, restricted concurrency,
// sweep schedule, message templates). The catalog is exposed as an
// immutable versioned snapshot; Reload swaps the snapshot explicitly
// instead of watching the file.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/guildforge/craftledger/pkg/locale"
	"github.com/guildforge/craftledger/pkg/logger"
)

// Kind identifies a craftable category.
type Kind string

const (
	KindPlants  Kind = "plants"
	KindPotions Kind = "potions"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindPlants, KindPotions}

func (k Kind) Valid() bool {
	switch k {
	case KindPlants, KindPotions:
		return true
	}
	return false
}

// DefaultMaxRoll bounds the die when the catalog does not override it.
const DefaultMaxRoll = 100

// Plant is a growable ingredient.
type Plant struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases"`
	Level      int      `json:"level"`
	GrowDays   int      `json:"grow_days"`
	Categories []string `json:"categories"`
	Usages     []string `json:"usages"`
}

// Potion is a brewable item consuming plants.
type Potion struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Level       int      `json:"level"`
	BrewHours   int      `json:"brew_hours"`
	Plants      []string `json:"plants"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// KindSettings configures one craftable category.
type KindSettings struct {
	Channel         string   `json:"channel"`
	SupervisorRoles []string `json:"supervisor_roles"`
	// Restricted kinds admit a single pending transaction per character.
	Restricted bool `json:"restricted"`
}

// SweepSettings configure the summary sweep schedule.
type SweepSettings struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

// FailurePool holds the narrative messages drawn on a botched roll,
// grouped by item level.
type FailurePool struct {
	Level    int      `json:"level"`
	Messages []string `json:"messages"`
}

// Messages holds the outbound message templates. The ledger only fills
// placeholders; wording lives entirely in the catalog file.
type Messages struct {
	Confirmation map[Kind]string        `json:"confirmation"`
	Success      map[Kind]string        `json:"success"`
	Missed       map[Kind]string        `json:"missed"`
	Failures     map[Kind][]FailurePool `json:"failures"`
	Cancelled    map[Kind]string        `json:"cancelled"`
	DeliveryLog  map[Kind]string        `json:"delivery_log"`
	Truncated    string                 `json:"truncated"`
}

// File is the on-disk catalog layout.
type File struct {
	MaxRoll  int                   `json:"max_roll"`
	Sweep    SweepSettings         `json:"sweep"`
	Kinds    map[Kind]KindSettings `json:"kinds"`
	Plants   []Plant               `json:"plants"`
	Potions  []Potion              `json:"potions"`
	Messages Messages              `json:"messages"`
}

// Item is a resolved catalog entry, normalized across kinds.
type Item struct {
	Kind        Kind
	Name        string
	Level       int
	Maturation  time.Duration
	Ingredients []string
	Color       string
}

// Snapshot is an immutable view of the catalog.
type Snapshot struct {
	Version  int
	MaxRoll  int
	Sweep    SweepSettings
	Messages Messages

	kinds   map[Kind]KindSettings
	plants  []Plant
	potions []Potion
}

// Catalog owns the current snapshot and its source file.
type Catalog struct {
	mu   sync.RWMutex
	path string
	logg *logger.Logger
	snap *Snapshot
}

// Open reads the catalog file and builds the first snapshot.
func Open(path string, logg *logger.Logger) (*Catalog, error) {
	c := &Catalog{path: path, logg: logg}
	snap, err := c.read(1)
	if err != nil {
		return nil, err
	}
	c.snap = snap
	return c, nil
}

// Snapshot returns the current immutable catalog view.
func (c *Catalog) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Reload re-reads the catalog file and swaps in a new snapshot. On
// failure the previous snapshot stays in effect.
func (c *Catalog) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, err := c.read(c.snap.Version + 1)
	if err != nil {
		if c.logg != nil {
			c.logg.Error(ctx, "catalog reload failed, keeping previous snapshot", err)
		}
		return err
	}
	c.snap = snap
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "catalog_version", snap.Version), "catalog reloaded")
	}
	return nil
}

func (c *Catalog) read(version int) (*Snapshot, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", c.path, err)
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", c.path, err)
	}
	return buildSnapshot(&file, version)
}

func buildSnapshot(file *File, version int) (*Snapshot, error) {
	maxRoll := file.MaxRoll
	if maxRoll == 0 {
		maxRoll = DefaultMaxRoll
	}
	if maxRoll < 4 {
		return nil, fmt.Errorf("max_roll %d too small for the outcome tiers", maxRoll)
	}
	for kind := range file.Kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("unknown kind %q in catalog", kind)
		}
	}
	seen := map[string]Kind{}
	for _, p := range file.Plants {
		if p.Name == "" {
			return nil, fmt.Errorf("plant with empty name")
		}
		if p.GrowDays <= 0 {
			return nil, fmt.Errorf("plant %q needs a positive grow_days", p.Name)
		}
		if prev, ok := seen[locale.Fold(p.Name)]; ok {
			return nil, fmt.Errorf("duplicate item name %q (already a %s)", p.Name, prev)
		}
		seen[locale.Fold(p.Name)] = KindPlants
	}
	for _, p := range file.Potions {
		if p.Name == "" {
			return nil, fmt.Errorf("potion with empty name")
		}
		if p.BrewHours <= 0 {
			return nil, fmt.Errorf("potion %q needs a positive brew_hours", p.Name)
		}
		if prev, ok := seen[locale.Fold(p.Name)]; ok {
			return nil, fmt.Errorf("duplicate item name %q (already a %s)", p.Name, prev)
		}
		seen[locale.Fold(p.Name)] = KindPotions
	}
	return &Snapshot{
		Version:  version,
		MaxRoll:  maxRoll,
		Sweep:    file.Sweep,
		Messages: file.Messages,
		kinds:    file.Kinds,
		plants:   file.Plants,
		potions:  file.Potions,
	}, nil
}

// Settings returns the per-kind settings, zero-valued when unconfigured.
func (s *Snapshot) Settings(kind Kind) KindSettings {
	return s.kinds[kind]
}

// Restricted reports whether the kind admits only one pending
// transaction per character.
func (s *Snapshot) Restricted(kind Kind) bool {
	return s.kinds[kind].Restricted
}

// Item resolves an item of the given kind by canonical name or alias,
// ignoring case and diacritics.
func (s *Snapshot) Item(kind Kind, input string) (*Item, bool) {
	switch kind {
	case KindPlants:
		if p := s.plant(input); p != nil {
			return s.plantItem(p), true
		}
	case KindPotions:
		if p := s.potion(input); p != nil {
			return s.potionItem(p), true
		}
	}
	return nil, false
}

func (s *Snapshot) plant(input string) *Plant {
	for i := range s.plants {
		if matches(input, s.plants[i].Name, s.plants[i].Aliases) {
			return &s.plants[i]
		}
	}
	return nil
}

func (s *Snapshot) potion(input string) *Potion {
	for i := range s.potions {
		if matches(input, s.potions[i].Name, s.potions[i].Aliases) {
			return &s.potions[i]
		}
	}
	return nil
}

func (s *Snapshot) plantItem(p *Plant) *Item {
	return &Item{
		Kind:       KindPlants,
		Name:       p.Name,
		Level:      p.Level,
		Maturation: time.Duration(p.GrowDays) * 24 * time.Hour,
	}
}

func (s *Snapshot) potionItem(p *Potion) *Item {
	ingredients := make([]string, 0, len(p.Plants))
	for _, name := range p.Plants {
		// Resolve through the plant list so aliases collapse onto the
		// canonical name; unknown ingredients are kept verbatim.
		if plant := s.plant(name); plant != nil {
			ingredients = append(ingredients, plant.Name)
		} else {
			ingredients = append(ingredients, name)
		}
	}
	return &Item{
		Kind:        KindPotions,
		Name:        p.Name,
		Level:       p.Level,
		Maturation:  time.Duration(p.BrewHours) * time.Hour,
		Ingredients: ingredients,
		Color:       p.Color,
	}
}

// FailureMessages returns the narrative pool for a botched roll of the
// given kind and item level.
func (s *Snapshot) FailureMessages(kind Kind, level int) []string {
	for _, pool := range s.Messages.Failures[kind] {
		if pool.Level == level {
			return pool.Messages
		}
	}
	return nil
}

func matches(input, name string, aliases []string) bool {
	if locale.Equals(input, name) {
		return true
	}
	for _, alias := range aliases {
		if locale.Equals(input, alias) {
			return true
		}
	}
	return false
}
