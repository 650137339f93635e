package application

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/wyfcoding/fooddelivery/internal/credit/domain"
	"gorm.io/gorm"
)

// --- fakes ---

type fakeCredits struct {
	states     map[uint]*domain.CreditState
	failUpdate bool
}

func (f *fakeCredits) GetState(ctx context.Context, userID uint) (*domain.CreditState, error) {
	state, ok := f.states[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *state
	return &copied, nil
}

func (f *fakeCredits) GetStateForUpdate(ctx context.Context, userID uint) (*domain.CreditState, error) {
	return f.GetState(ctx, userID)
}

func (f *fakeCredits) UpdateState(ctx context.Context, state *domain.CreditState) error {
	if f.failUpdate {
		return errors.New("storage unavailable")
	}
	copied := *state
	f.states[state.UserID] = &copied
	return nil
}

type fakeStats struct {
	stats domain.BehaviorStats
	err   error
}

func (f *fakeStats) AggregateForUser(ctx context.Context, userID uint) (*domain.BehaviorStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	copied := f.stats
	return &copied, nil
}

type fakeHistory struct {
	entries    []*domain.CreditHistory
	failAppend bool
	nextID     uint
}

func (f *fakeHistory) Append(ctx context.Context, entry *domain.CreditHistory) error {
	if f.failAppend {
		return errors.New("constraint violation")
	}
	f.nextID++
	entry.ID = f.nextID
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistory) ListRecent(ctx context.Context, userID uint, limit int) ([]*domain.CreditHistory, error) {
	var out []*domain.CreditHistory
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

type fakeEvents struct {
	published []*domain.ScoreChangedEvent
}

func (f *fakeEvents) PublishScoreChanged(ctx context.Context, event *domain.ScoreChangedEvent) error {
	f.published = append(f.published, event)
	return nil
}

// fakeTx 模拟提交/回滚：失败时恢复两个仓储的快照
type fakeTx struct {
	credits *fakeCredits
	history *fakeHistory
}

func (f *fakeTx) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	statesSnapshot := make(map[uint]*domain.CreditState, len(f.credits.states))
	for id, state := range f.credits.states {
		copied := *state
		statesSnapshot[id] = &copied
	}
	entriesSnapshot := make([]*domain.CreditHistory, len(f.history.entries))
	copy(entriesSnapshot, f.history.entries)

	if err := fc(nil); err != nil {
		f.credits.states = statesSnapshot
		f.history.entries = entriesSnapshot
		return err
	}
	return nil
}

func newFixture(score int, stats domain.BehaviorStats) (*CreditService, *fakeCredits, *fakeStats, *fakeHistory, *fakeEvents) {
	credits := &fakeCredits{states: map[uint]*domain.CreditState{
		1: {UserID: 1, Score: score, Status: domain.TierFor(score)},
	}}
	statsRepo := &fakeStats{stats: stats}
	history := &fakeHistory{}
	events := &fakeEvents{}
	svc := NewCreditService(&fakeTx{credits: credits, history: history}, credits, statsRepo, history, events)
	return svc, credits, statsRepo, history, events
}

// --- tests ---

func TestRecompute(t *testing.T) {
	svc, credits, _, history, events := newFixture(70, domain.BehaviorStats{
		TotalOrders: 10, CompletedOrders: 9,
		AvgRestaurantFeedback: 4.5, AvgDeliveryFeedback: 4.2,
	})

	got, err := svc.Recompute(context.Background(), 1, domain.TriggerRestaurant, "Restaurant feedback", nil)
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if got != 83 {
		t.Errorf("new score = %d, want 83", got)
	}

	state := credits.states[1]
	if state.Score != 83 || state.Status != domain.TierGood {
		t.Errorf("persisted state = %d/%s, want 83/good", state.Score, state.Status)
	}
	if state.LastCreditUpdate.IsZero() {
		t.Error("last credit update timestamp not set")
	}

	if len(history.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history.entries))
	}
	entry := history.entries[0]
	if entry.OldScore != 70 || entry.NewScore != 83 || entry.ChangeAmount != 13 {
		t.Errorf("history entry = %d→%d (%+d)", entry.OldScore, entry.NewScore, entry.ChangeAmount)
	}
	if entry.TriggeredBy != domain.TriggerRestaurant {
		t.Errorf("triggered_by = %s, want restaurant", entry.TriggeredBy)
	}

	if len(events.published) != 1 {
		t.Fatalf("events published = %d, want 1", len(events.published))
	}
	if events.published[0].NewScore != 83 {
		t.Errorf("event new score = %d, want 83", events.published[0].NewScore)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	svc, credits, _, history, _ := newFixture(70, domain.BehaviorStats{
		TotalOrders: 10, CompletedOrders: 10,
	})

	first, err := svc.Recompute(context.Background(), 1, domain.TriggerSystem, "order delivered", nil)
	if err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	second, err := svc.Recompute(context.Background(), 1, domain.TriggerSystem, "order delivered", nil)
	if err != nil {
		t.Fatalf("second recompute: %v", err)
	}

	if first != second {
		t.Errorf("scores diverge: %d vs %d", first, second)
	}
	if len(history.entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history.entries))
	}
	if history.entries[1].ChangeAmount != 0 {
		t.Errorf("second entry change = %d, want 0", history.entries[1].ChangeAmount)
	}

	// 台账最新记录与当前分一致
	if history.entries[1].NewScore != credits.states[1].Score {
		t.Error("ledger drifted from stored score")
	}
}

func TestRecomputeUserNotFound(t *testing.T) {
	svc, _, _, history, _ := newFixture(70, domain.BehaviorStats{TotalOrders: 1, CompletedOrders: 1})

	_, err := svc.Recompute(context.Background(), 42, domain.TriggerSystem, "x", nil)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
	if len(history.entries) != 0 {
		t.Error("no history entries expected for missing user")
	}
}

func TestRecomputeStatsFallback(t *testing.T) {
	svc, credits, statsRepo, history, events := newFixture(64, domain.BehaviorStats{})
	statsRepo.err = errors.New("aggregation query timed out")

	got, err := svc.Recompute(context.Background(), 1, domain.TriggerSystem, "order cancelled", nil)
	if !IsStatsFallback(err) {
		t.Fatalf("err = %v, want stats fallback", err)
	}
	if got != 64 {
		t.Errorf("fallback returned %d, want current score 64", got)
	}
	if credits.states[1].Score != 64 {
		t.Error("score must remain unchanged on fallback")
	}
	if len(history.entries) != 0 || len(events.published) != 0 {
		t.Error("fallback must not write history or publish events")
	}
}

func TestRecomputeAtomicOnPersistenceFailure(t *testing.T) {
	svc, credits, _, history, events := newFixture(70, domain.BehaviorStats{
		TotalOrders: 10, CompletedOrders: 10,
	})
	history.failAppend = true

	_, err := svc.Recompute(context.Background(), 1, domain.TriggerSystem, "order delivered", nil)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	// 状态更新与台账追加必须一起回滚
	if credits.states[1].Score != 70 {
		t.Errorf("score = %d after rollback, want 70", credits.states[1].Score)
	}
	if len(history.entries) != 0 {
		t.Error("no ledger entry may survive a failed unit")
	}
	if len(events.published) != 0 {
		t.Error("no event may be published for a failed unit")
	}
}

func TestOverrideClampsHigh(t *testing.T) {
	svc, credits, _, history, _ := newFixture(55, domain.BehaviorStats{})

	got, err := svc.Override(context.Background(), 1, 150, "manual adjustment")
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	if got != 100 {
		t.Errorf("score = %d, want clamped 100", got)
	}
	if credits.states[1].Status != domain.TierTrusted {
		t.Errorf("status = %s, want trusted", credits.states[1].Status)
	}

	entry := history.entries[0]
	if entry.ChangeAmount != 45 {
		t.Errorf("change = %d, want 45", entry.ChangeAmount)
	}
	if entry.TriggeredBy != domain.TriggerAdmin {
		t.Errorf("triggered_by = %s, want admin", entry.TriggeredBy)
	}
}

func TestOverrideClampsLow(t *testing.T) {
	svc, credits, _, _, _ := newFixture(55, domain.BehaviorStats{})

	got, err := svc.Override(context.Background(), 1, -30, "fraud confirmed")
	if err != nil {
		t.Fatalf("Override failed: %v", err)
	}
	if got != 0 {
		t.Errorf("score = %d, want clamped 0", got)
	}
	if credits.states[1].Status != domain.TierBlocked {
		t.Errorf("status = %s, want blocked", credits.states[1].Status)
	}
}

func TestGetSummary(t *testing.T) {
	svc, _, _, _, _ := newFixture(70, domain.BehaviorStats{
		TotalOrders: 4, CompletedOrders: 4,
	})

	if _, err := svc.Recompute(context.Background(), 1, domain.TriggerSystem, "order delivered", nil); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	summary, err := svc.GetSummary(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if summary.Score != 80 || summary.Status != "good" {
		t.Errorf("summary = %d/%s, want 80/good", summary.Score, summary.Status)
	}
	if summary.DiscountPercent != 15 {
		t.Errorf("discount = %d, want 15", summary.DiscountPercent)
	}
	if len(summary.History) != 1 {
		t.Errorf("history len = %d, want 1", len(summary.History))
	}
	if summary.Stats.TotalOrders != 4 {
		t.Errorf("stats total orders = %d, want 4", summary.Stats.TotalOrders)
	}
}

func TestListHistoryMostRecentFirst(t *testing.T) {
	svc, _, statsRepo, _, _ := newFixture(70, domain.BehaviorStats{
		TotalOrders: 10, CompletedOrders: 10,
	})

	if _, err := svc.Recompute(context.Background(), 1, domain.TriggerSystem, "first", nil); err != nil {
		t.Fatal(err)
	}
	statsRepo.stats.CancelledOrders = 4
	statsRepo.stats.CompletedOrders = 6
	if _, err := svc.Recompute(context.Background(), 1, domain.TriggerSystem, "second", nil); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.ListHistory(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Reason != "second" || entries[1].Reason != "first" {
		t.Error("entries not in most-recent-first order")
	}
}
