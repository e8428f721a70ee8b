package ledger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/guildforge/craftledger/internal/catalog"
	"github.com/guildforge/craftledger/internal/notify"
	"github.com/guildforge/craftledger/internal/outcome"
	pkgerrors "github.com/guildforge/craftledger/pkg/errors"
	"github.com/guildforge/craftledger/pkg/logger"
	"github.com/guildforge/craftledger/pkg/metrics"
)

// reportBudget caps one summarized report message before truncation.
const reportBudget = 1800

// deliverRetryDelay spaces redelivery attempts after a notifier failure.
const deliverRetryDelay = time.Minute

// TimerScheduler is the slice of the scheduler the service needs.
type TimerScheduler interface {
	Schedule(ctx context.Context, id uuid.UUID, maturesAt time.Time, fire func(uuid.UUID))
	Cancel(id uuid.UUID)
}

// ServiceParams wire the ledger service dependencies.
type ServiceParams struct {
	Store    Store
	Timers   TimerScheduler
	Notifier notify.Notifier
	Mentions notify.MentionResolver
	Catalog  *catalog.Catalog
	Logger   *logger.Logger
	Metrics  *metrics.LedgerMetrics
	Location *time.Location
	Now      func() time.Time
}

// Service owns every mutation of the persisted ledger. The four
// triggers (roll intake, timer maturation, cancellation, summary sweep)
// all serialize through one mutex so each load-mutate-save is atomic
// with respect to the others.
type Service struct {
	mu       sync.Mutex
	store    Store
	timers   TimerScheduler
	notifier notify.Notifier
	mentions notify.MentionResolver
	cat      *catalog.Catalog
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
	loc      *time.Location
	now      func() time.Time
}

// NewService validates and wires the ledger service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("ledger store required")
	}
	if params.Timers == nil {
		return nil, fmt.Errorf("timer scheduler required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	mentions := params.Mentions
	if mentions == nil {
		mentions = notify.NoMentions{}
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    params.Store,
		timers:   params.Timers,
		notifier: params.Notifier,
		mentions: mentions,
		cat:      params.Catalog,
		logg:     params.Logger,
		metrics:  params.Metrics,
		loc:      loc,
		now:      now,
	}, nil
}

// RollParams describe one validated crafting request.
type RollParams struct {
	OwnerID   string
	Character string
	Kind      catalog.Kind
	ItemName  string
	Roll      int
	Bonus     int
}

// RollResult returns the persisted transaction and the confirmation
// text the command layer replies with.
type RollResult struct {
	Transaction  Transaction
	Confirmation string
}

// CreateRoll resolves the outcome, persists a new pending transaction
// and arms its maturation timer.
func (s *Service) CreateRoll(ctx context.Context, p RollParams) (*RollResult, error) {
	snap := s.cat.Snapshot()
	if !p.Kind.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown kind %q", p.Kind))
	}
	if p.OwnerID == "" || p.Character == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner and character required")
	}
	if p.Roll < 1 || p.Roll > snap.MaxRoll {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("roll %d outside [1, %d]", p.Roll, snap.MaxRoll))
	}
	item, ok := snap.Item(p.Kind, p.ItemName)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown %s %q", p.Kind, p.ItemName))
	}

	result := outcome.Resolve(p.Roll, p.Bonus, snap.MaxRoll)
	requestedAt := s.now()
	tx := &Transaction{
		ID:           uuid.New(),
		OwnerID:      p.OwnerID,
		Character:    p.Character,
		Kind:         item.Kind,
		ItemName:     item.Name,
		Roll:         p.Roll,
		Bonus:        p.Bonus,
		Quantity:     result.Quantity,
		MustBeStored: result.Quantity > 0 || len(item.Ingredients) > 0,
		Status:       StatusPending,
		RequestedAt:  requestedAt,
		MaturesAt:    requestedAt.Add(item.Maturation),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.store.Load(ctx)
	char := l.EnsureCharacter(p.OwnerID, p.Character)
	if snap.Restricted(item.Kind) && char.HasPendingOfKind(item.Kind) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("character already has a pending %s transaction", item.Kind))
	}
	char.Transactions = append(char.Transactions, tx)
	if err := s.store.Save(ctx, l); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist roll")
	}

	s.timers.Schedule(ctx, tx.ID, tx.MaturesAt, s.deliver)
	s.metrics.IncRolls(string(item.Kind))

	logCtx := s.rollLogContext(ctx, tx)
	s.logg.Info(logCtx, "roll accepted")

	return &RollResult{
		Transaction: *tx,
		Confirmation: notify.Format(snap.Messages.Confirmation[item.Kind], notify.Args{
			"perso": p.Character,
			"item":  item.Name,
			"time":  notify.FormatTime(tx.MaturesAt, s.loc),
		}),
	}, nil
}

func (s *Service) rollLogContext(ctx context.Context, tx *Transaction) context.Context {
	logCtx := s.logg.WithOwnerID(ctx, tx.OwnerID)
	logCtx = s.logg.WithCharacter(logCtx, tx.Character)
	logCtx = s.logg.WithKind(logCtx, string(tx.Kind))
	logCtx = s.logg.WithTransactionID(logCtx, tx.ID.String())
	return s.logg.WithFields(logCtx, map[string]any{
		"item":       tx.ItemName,
		"roll":       tx.Roll,
		"bonus":      tx.Bonus,
		"quantity":   tx.Quantity,
		"matures_at": tx.MaturesAt,
	})
}

// deliver fires when a maturation timer elapses. It sends the outcome,
// then marks the transaction delivered and persists. A notifier failure
// leaves the transaction pending and retries later; a persistence
// failure after a successful send is only logged, so a crash in that
// window redelivers on restart (at-least-once).
func (s *Service) deliver(id uuid.UUID) {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.store.Load(ctx)
	tx, _, charKey := l.Find(id)
	if tx == nil || !tx.Pending() {
		return
	}
	logCtx := s.rollLogContext(ctx, tx)

	snap := s.cat.Snapshot()
	item, ok := snap.Item(tx.Kind, tx.ItemName)
	if !ok {
		s.logg.Warn(logCtx, "item vanished from catalog, outcome delivered without narrative")
	}

	text := s.deliveryText(snap, tx, item, charKey)
	channel := snap.Settings(tx.Kind).Channel
	if err := s.notifier.Send(ctx, tx.Kind, channel, text); err != nil {
		s.logg.Error(logCtx, "outcome send failed, will retry", err)
		s.timers.Schedule(ctx, id, s.now().Add(deliverRetryDelay), s.deliver)
		return
	}

	tx.Status = StatusDelivered
	if err := s.store.Save(ctx, l); err != nil {
		s.logg.Error(logCtx, "persist delivery failed, restart may redeliver", err)
		return
	}
	s.metrics.IncDeliveries(string(tx.Kind))
	s.logg.Info(logCtx, "outcome delivered")
}

func (s *Service) deliveryText(snap *catalog.Snapshot, tx *Transaction, item *catalog.Item, charKey string) string {
	args := notify.Args{
		"perso":    charKey,
		"item":     tx.ItemName,
		"quantity": tx.Quantity,
		"time":     notify.FormatTime(tx.MaturesAt, s.loc),
	}
	level := 0
	var ingredients []string
	if item != nil {
		level = item.Level
		ingredients = item.Ingredients
		if item.Color != "" {
			args["color"] = item.Color
		}
	}

	var result string
	switch {
	case tx.Roll == 1 || tx.Roll == 2:
		result = outcome.PickNarrative(snap.FailureMessages(tx.Kind, level))
		if result == "" {
			result = snap.Messages.Missed[tx.Kind]
		}
	case tx.Quantity == 0:
		result = snap.Messages.Missed[tx.Kind]
	default:
		result = snap.Messages.Success[tx.Kind]
	}
	lines := []string{notify.Format(result, args)}

	if logTmpl := snap.Messages.DeliveryLog[tx.Kind]; logTmpl != "" {
		logArgs := notify.Args{
			"roll":  tx.Roll,
			"bonus": tx.Bonus,
		}
		if list := strings.Join(ingredients, ", "); list != "" {
			logArgs["ingredients"] = list
		} else {
			logArgs["ingredients"] = "aucun"
		}
		lines = append(lines, notify.Format(logTmpl, logArgs))
	}

	text := strings.Join(lines, "\n")
	if mention, ok := s.mentions.Mention(tx.OwnerID); ok {
		text = mention + ", " + text
	}
	return text
}

// CancelParams identify a cancellation attempt.
type CancelParams struct {
	RequesterID    string
	RequesterRoles []string
	OwnerID        string
	Character      string
	Kind           catalog.Kind
	ItemName       string
}

// CancelResult reports what was removed. A nil result with a nil error
// means the attempt matched nothing or was not authorized; both are
// deliberately silent.
type CancelResult struct {
	Transaction  Transaction
	Confirmation string
}

// Cancel removes the most recently created pending transaction matching
// character, kind and item, when the requester is the owner or holds a
// supervisor role for the kind.
func (s *Service) Cancel(ctx context.Context, p CancelParams) (*CancelResult, error) {
	snap := s.cat.Snapshot()
	if !p.Kind.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown kind %q", p.Kind))
	}
	if !s.authorized(snap, p) {
		s.logg.Debug(s.logg.WithOwnerID(ctx, p.RequesterID), "cancellation not authorized, ignoring")
		return nil, nil
	}
	item, ok := snap.Item(p.Kind, p.ItemName)
	if !ok {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.store.Load(ctx)
	owner := l.Owners[p.OwnerID]
	if owner == nil {
		return nil, nil
	}
	char := owner.Character(p.Character)
	if char == nil {
		return nil, nil
	}
	tx := char.LastPendingMatch(item.Kind, item.Name)
	if tx == nil {
		return nil, nil
	}

	// Same critical section as delivery: a timer that already fired has
	// flipped the status, so the record can no longer match here.
	s.timers.Cancel(tx.ID)
	l.Remove(tx.ID)
	if err := s.store.Save(ctx, l); err != nil {
		// The record is still persisted; re-arm its timer so it is not
		// orphaned.
		s.timers.Schedule(ctx, tx.ID, tx.MaturesAt, s.deliver)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cancellation")
	}

	s.metrics.IncCancellations(string(tx.Kind))
	logCtx := s.rollLogContext(ctx, tx)
	logCtx = s.logg.WithField(logCtx, "requester_id", p.RequesterID)
	s.logg.Info(logCtx, "transaction cancelled")

	confirmation := notify.Format(snap.Messages.Cancelled[tx.Kind], notify.Args{
		"perso":       p.Character,
		"item":        tx.ItemName,
		"receiptDate": notify.FormatTime(tx.MaturesAt, s.loc),
	})
	channel := snap.Settings(tx.Kind).Channel
	text := confirmation
	if mention, ok := s.mentions.Mention(p.OwnerID); ok {
		text = text + "\n" + mention
	}
	if err := s.notifier.Send(ctx, tx.Kind, channel, text); err != nil {
		s.logg.Error(logCtx, "cancellation confirmation send failed", err)
	}

	return &CancelResult{Transaction: *tx, Confirmation: confirmation}, nil
}

func (s *Service) authorized(snap *catalog.Snapshot, p CancelParams) bool {
	if p.RequesterID != "" && p.RequesterID == p.OwnerID {
		return true
	}
	supervisors := snap.Settings(p.Kind).SupervisorRoles
	for _, role := range p.RequesterRoles {
		if slices.Contains(supervisors, role) {
			return true
		}
	}
	return false
}

// Rehydrate arms a timer for every pending transaction in the store.
// It must run before intake opens so a restart never leaves a pending
// transaction without a timer. Transactions whose item is no longer in
// the catalog are skipped with a warning and kept in the store.
func (s *Service) Rehydrate(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.cat.Snapshot()
	l := s.store.Load(ctx)
	armed := 0
	for _, ownerID := range sortedKeys(l.Owners) {
		owner := l.Owners[ownerID]
		for _, charKey := range sortedKeys(owner) {
			for _, tx := range owner[charKey].Transactions {
				if !tx.Pending() {
					continue
				}
				if _, ok := snap.Item(tx.Kind, tx.ItemName); !ok {
					logCtx := s.rollLogContext(ctx, tx)
					s.logg.Warn(logCtx, "pending transaction references unknown item, not scheduling")
					continue
				}
				s.timers.Schedule(ctx, tx.ID, tx.MaturesAt, s.deliver)
				armed++
			}
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "timers_armed", armed), "ledger rehydrated")
	return armed
}

// Sweep reports every delivered, storable, unacknowledged transaction
// to the supervisor channels, grouped per kind and per owner/character,
// then marks them acknowledged. One persisted save per run makes the
// sweep idempotent: a second run with no new deliveries reports nothing.
func (s *Service) Sweep(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.cat.Snapshot()
	l := s.store.Load(ctx)

	type section struct {
		kind    catalog.Kind
		ownerID string
		charKey string
		lines   []string
	}
	var sections []section
	acked := 0

	for _, ownerID := range sortedKeys(l.Owners) {
		owner := l.Owners[ownerID]
		for _, charKey := range sortedKeys(owner) {
			perKind := map[catalog.Kind][]string{}
			for _, tx := range owner[charKey].Transactions {
				if tx.Status != StatusDelivered || !tx.MustBeStored {
					continue
				}
				line := fmt.Sprintf("%s : +%d (%s)", tx.ItemName, tx.Quantity, notify.FormatTime(tx.MaturesAt, s.loc))
				perKind[tx.Kind] = append(perKind[tx.Kind], line)
				if item, ok := snap.Item(tx.Kind, tx.ItemName); ok {
					for _, ingredient := range item.Ingredients {
						perKind[tx.Kind] = append(perKind[tx.Kind], fmt.Sprintf("    %s : -1", ingredient))
					}
				}
				tx.Status = StatusAcknowledged
				s.metrics.IncAcknowledged(string(tx.Kind))
				acked++
			}
			for _, kind := range catalog.Kinds {
				if lines := perKind[kind]; len(lines) > 0 {
					sections = append(sections, section{kind: kind, ownerID: ownerID, charKey: charKey, lines: lines})
				}
			}
		}
	}

	if acked == 0 {
		s.logg.Debug(ctx, "sweep found nothing to report")
		return nil
	}

	if err := s.store.Save(ctx, l); err != nil {
		// Acknowledgements are lost; the next run re-reports them.
		s.logg.Error(ctx, "persist sweep acknowledgements failed", err)
	}

	var errs error
	reported := map[catalog.Kind]bool{}
	for _, sec := range sections {
		header := sec.ownerID
		if mention, ok := s.mentions.Mention(sec.ownerID); ok {
			header = mention
		}
		body := fmt.Sprintf("%s\n```md\n# %s\n%s\n```",
			header, sec.charKey,
			notify.Ellipsis(strings.Join(sec.lines, "\n"), reportBudget, snap.Messages.Truncated))
		channel := snap.Settings(sec.kind).Channel
		if err := s.notifier.Send(ctx, sec.kind, channel, body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("send %s report: %w", sec.kind, err))
			continue
		}
		reported[sec.kind] = true
	}

	for _, kind := range catalog.Kinds {
		if !reported[kind] {
			continue
		}
		settings := snap.Settings(kind)
		if len(settings.SupervisorRoles) == 0 {
			continue
		}
		ping := strings.Join(settings.SupervisorRoles, ", ")
		if err := s.notifier.Send(ctx, kind, settings.Channel, ping); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ping %s supervisors: %w", kind, err))
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"acknowledged": acked,
		"sections":     len(sections),
		"run_at":       now,
	})
	s.logg.Info(logCtx, "sweep complete")
	return errs
}

// OwnerView returns a copy of one owner's transactions per character.
func (s *Service) OwnerView(ctx context.Context, ownerID string) map[string][]Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.store.Load(ctx)
	owner := l.Owners[ownerID]
	view := make(map[string][]Transaction, len(owner))
	for key, char := range owner {
		txs := make([]Transaction, 0, len(char.Transactions))
		for _, tx := range char.Transactions {
			txs = append(txs, *tx)
		}
		view[key] = txs
	}
	return view
}

// sortedKeys returns the keys of m in ascending order so iteration is
// deterministic.
func sortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
