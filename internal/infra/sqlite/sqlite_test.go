package sqlite

import (
	"testing"
	"time"

	"github.com/clubrodada/rodada/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustAppend(t *testing.T, db *DB, e domain.LedgerEntry) string {
	t.Helper()
	id, err := db.AppendEntry(e)
	if err != nil {
		t.Fatalf("AppendEntry(%+v) error: %v", e, err)
	}
	return id
}

func earningAt(id, user string, amount int64, at time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:         id,
		UserID:     user,
		Amount:     amount,
		Kind:       domain.KindEarning,
		Reason:     string(domain.ReasonEventAttendance),
		OccurredAt: at,
	}
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func TestAppendEntry_UpdatesBalance(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	mustAppend(t, db, earningAt("e1", "u1", 100, now))
	mustAppend(t, db, earningAt("e2", "u1", 50, now.Add(time.Second)))

	balance, err := db.Balance("u1")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if balance != 150 {
		t.Errorf("balance = %d, want 150", balance)
	}

	sum, err := db.EntrySum("u1")
	if err != nil {
		t.Fatal(err)
	}
	if sum != balance {
		t.Errorf("materialized balance %d != entry sum %d", balance, sum)
	}
}

func TestAppendEntry_NegativeBalanceRejected(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	mustAppend(t, db, earningAt("e1", "u1", 100, now))

	_, err := db.AppendEntry(domain.LedgerEntry{
		ID:         "adj1",
		UserID:     "u1",
		Amount:     -150,
		Kind:       domain.KindAdjustment,
		Reason:     "corrección",
		OccurredAt: now.Add(time.Second),
	})
	if err != domain.ErrNegativeBalance {
		t.Fatalf("err = %v, want ErrNegativeBalance", err)
	}

	// Nothing applied: balance and entry count unchanged.
	balance, _ := db.Balance("u1")
	if balance != 100 {
		t.Errorf("balance = %d, want 100 after rejected adjustment", balance)
	}
	entries, _ := db.History("u1", 10, time.Time{}, "")
	if len(entries) != 1 {
		t.Errorf("history has %d entries, want 1", len(entries))
	}
}

func TestAppendEntry_IdempotentPerRelatedEntity(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	e := earningAt("e1", "u1", 100, now)
	e.RelatedEntityID = "evento-42"

	first := mustAppend(t, db, e)

	dup := e
	dup.ID = "e2"
	dup.OccurredAt = now.Add(time.Minute)
	second := mustAppend(t, db, dup)

	if second != first {
		t.Errorf("duplicate award returned id %q, want existing %q", second, first)
	}
	balance, _ := db.Balance("u1")
	if balance != 100 {
		t.Errorf("balance = %d, want 100 (single award)", balance)
	}
}

func TestBalance_MissingUser(t *testing.T) {
	db := newTestDB(t)
	balance, err := db.Balance("ghost")
	if err != nil {
		t.Fatalf("Balance(ghost) error: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

func TestHistory_CursorPagination(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustAppend(t, db, earningAt(
			string(rune('a'+i)), "u1", 10, base.Add(time.Duration(i)*time.Minute)))
	}

	page1, err := db.History("u1", 2, time.Time{}, "")
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("page1 has %d entries, want 2", len(page1))
	}
	if page1[0].ID != "e" || page1[1].ID != "d" {
		t.Errorf("page1 = [%s, %s], want [e, d]", page1[0].ID, page1[1].ID)
	}

	last := page1[len(page1)-1]
	page2, err := db.History("u1", 2, last.OccurredAt, last.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 2 || page2[0].ID != "c" || page2[1].ID != "b" {
		t.Fatalf("page2 = %+v, want [c, b]", page2)
	}

	// A concurrent append must not disturb the next page.
	mustAppend(t, db, earningAt("z", "u1", 10, base.Add(time.Hour)))

	last = page2[len(page2)-1]
	page3, err := db.History("u1", 2, last.OccurredAt, last.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(page3) != 1 || page3[0].ID != "a" {
		t.Fatalf("page3 = %+v, want [a]", page3)
	}
}

func TestHistory_SameTimestampTieBreak(t *testing.T) {
	db := newTestDB(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mustAppend(t, db, earningAt("a", "u1", 10, at))
	mustAppend(t, db, earningAt("b", "u1", 10, at))

	page, err := db.History("u1", 1, time.Time{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if page[0].ID != "b" {
		t.Fatalf("first = %s, want b (id desc within equal timestamps)", page[0].ID)
	}
	page, err = db.History("u1", 1, page[0].OccurredAt, page[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("second page = %+v, want [a]", page)
	}
}

// ─── Stats Counters ─────────────────────────────────────────────────────────

func TestTotalEarned_IgnoresRedemptions(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	mustAppend(t, db, earningAt("e1", "u1", 500, now))
	mustAppend(t, db, domain.LedgerEntry{
		ID: "b1", UserID: "u1", Amount: 100, Kind: domain.KindBonus, OccurredAt: now,
	})

	db.UpsertReward(domain.RewardDefinition{ID: "r1", Name: "Gorra", CostPoints: 200, Stock: 5, Active: true})
	if _, err := db.ExecuteRedemption("u1", "r1", "rec1", "led1", domain.DefaultTierTable(), now.Add(time.Second)); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	total, err := db.TotalEarned("u1")
	if err != nil {
		t.Fatal(err)
	}
	if total != 600 {
		t.Errorf("TotalEarned = %d, want 600 (redemption must not reduce it)", total)
	}
	balance, _ := db.Balance("u1")
	if balance != 400 {
		t.Errorf("balance = %d, want 400", balance)
	}
}

func TestEventsAttended(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	for i := 0; i < 3; i++ {
		e := earningAt(string(rune('a'+i)), "u1", 100, now.Add(time.Duration(i)*time.Hour))
		e.RelatedEntityID = "evento-" + string(rune('1'+i))
		mustAppend(t, db, e)
	}
	mustAppend(t, db, domain.LedgerEntry{
		ID: "p1", UserID: "u1", Amount: 10, Kind: domain.KindEarning,
		Reason: string(domain.ReasonPost), OccurredAt: now,
	})

	count, err := db.EventsAttended("u1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("EventsAttended = %d, want 3", count)
	}
}

// ─── Rewards ────────────────────────────────────────────────────────────────

func TestUpsertReward_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	r := domain.RewardDefinition{
		ID: "r1", Name: "Jersey del club", Description: "Edición 2025",
		Category: domain.CategoryMerch, CostPoints: 1200, Stock: 10,
		Active: true, MinTierID: 5,
	}
	if err := db.UpsertReward(r); err != nil {
		t.Fatalf("UpsertReward() error: %v", err)
	}

	got, err := db.Reward("r1")
	if err != nil {
		t.Fatalf("Reward() error: %v", err)
	}
	if got.Name != "Jersey del club" {
		t.Errorf("name = %q", got.Name)
	}
	if got.CostPoints != 1200 || got.Stock != 10 || !got.Active || got.MinTierID != 5 {
		t.Errorf("reward fields wrong: %+v", got)
	}
}

func TestReward_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Reward("ghost")
	if err != domain.ErrRewardNotFound {
		t.Errorf("err = %v, want ErrRewardNotFound", err)
	}
}

func TestActiveRewards_ExcludesInactive(t *testing.T) {
	db := newTestDB(t)
	db.UpsertReward(domain.RewardDefinition{ID: "r1", Name: "A", CostPoints: 500, Stock: domain.UnlimitedStock, Active: true})
	db.UpsertReward(domain.RewardDefinition{ID: "r2", Name: "B", CostPoints: 100, Stock: 1, Active: false})
	db.UpsertReward(domain.RewardDefinition{ID: "r3", Name: "C", CostPoints: 300, Stock: 2, Active: true})

	rewards, err := db.ActiveRewards()
	if err != nil {
		t.Fatal(err)
	}
	if len(rewards) != 2 {
		t.Fatalf("ActiveRewards() = %d items, want 2", len(rewards))
	}
	if rewards[0].ID != "r3" || rewards[1].ID != "r1" {
		t.Errorf("order = [%s, %s], want cheapest first [r3, r1]", rewards[0].ID, rewards[1].ID)
	}
}

// ─── Redemption Transaction ─────────────────────────────────────────────────

func seedMember(t *testing.T, db *DB, user string, points int64) {
	t.Helper()
	mustAppend(t, db, earningAt("seed-"+user, user, points, time.Now().Add(-time.Hour)))
}

func TestExecuteRedemption_Commits(t *testing.T) {
	db := newTestDB(t)
	seedMember(t, db, "u1", 1000)
	db.UpsertReward(domain.RewardDefinition{ID: "r1", Name: "Gorra", CostPoints: 600, Stock: 3, Active: true})

	rec, err := db.ExecuteRedemption("u1", "r1", "rec1", "led1", domain.DefaultTierTable(), time.Now())
	if err != nil {
		t.Fatalf("ExecuteRedemption() error: %v", err)
	}
	if rec.Status != domain.RedemptionCompleted {
		t.Errorf("status = %s, want completed", rec.Status)
	}
	if rec.PointsSpent != 600 {
		t.Errorf("points spent = %d, want 600", rec.PointsSpent)
	}

	balance, _ := db.Balance("u1")
	if balance != 400 {
		t.Errorf("balance = %d, want 400", balance)
	}
	reward, _ := db.Reward("r1")
	if reward.Stock != 2 {
		t.Errorf("stock = %d, want 2", reward.Stock)
	}
	if reward.CompletedRedemptions != 1 {
		t.Errorf("completed counter = %d, want 1", reward.CompletedRedemptions)
	}
	sum, _ := db.EntrySum("u1")
	if sum != balance {
		t.Errorf("balance %d != entry sum %d after redemption", balance, sum)
	}
}

func TestExecuteRedemption_ValidationOrder(t *testing.T) {
	db := newTestDB(t)
	tiers := domain.DefaultTierTable()
	now := time.Now()
	seedMember(t, db, "u1", 500)

	tests := []struct {
		name    string
		reward  domain.RewardDefinition
		wantErr error
	}{
		{
			name:    "inactive before out of stock",
			reward:  domain.RewardDefinition{ID: "ra", Name: "A", CostPoints: 100, Stock: 0, Active: false},
			wantErr: domain.ErrRewardInactive,
		},
		{
			name:    "out of stock",
			reward:  domain.RewardDefinition{ID: "rb", Name: "B", CostPoints: 100, Stock: 0, Active: true},
			wantErr: domain.ErrOutOfStock,
		},
		{
			name:    "tier too low before insufficient points",
			reward:  domain.RewardDefinition{ID: "rc", Name: "C", CostPoints: 9999, Stock: 1, Active: true, MinTierID: 6},
			wantErr: domain.ErrTierTooLow,
		},
		{
			name:    "insufficient points",
			reward:  domain.RewardDefinition{ID: "rd", Name: "D", CostPoints: 600, Stock: 1, Active: true},
			wantErr: domain.ErrInsufficientPoints,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.UpsertReward(tt.reward); err != nil {
				t.Fatal(err)
			}
			_, err := db.ExecuteRedemption("u1", tt.reward.ID, "rec-"+tt.reward.ID, "led-"+tt.reward.ID, tiers, now)
			if err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No failed attempt left any trace.
	balance, _ := db.Balance("u1")
	if balance != 500 {
		t.Errorf("balance = %d, want 500 untouched", balance)
	}
	if recs, _ := db.UserRedemptions("u1"); len(recs) != 0 {
		t.Errorf("%d redemption records after rejections, want 0", len(recs))
	}
}

func TestExecuteRedemption_RewardNotFound(t *testing.T) {
	db := newTestDB(t)
	seedMember(t, db, "u1", 500)
	_, err := db.ExecuteRedemption("u1", "ghost", "rec1", "led1", domain.DefaultTierTable(), time.Now())
	if err != domain.ErrRewardNotFound {
		t.Errorf("err = %v, want ErrRewardNotFound", err)
	}
}

func TestExecuteRedemption_StockNeverOversold(t *testing.T) {
	db := newTestDB(t)
	tiers := domain.DefaultTierTable()
	db.UpsertReward(domain.RewardDefinition{ID: "r1", Name: "Única", CostPoints: 100, Stock: 1, Active: true})
	seedMember(t, db, "u1", 500)
	seedMember(t, db, "u2", 500)

	var committed, outOfStock int
	for i, user := range []string{"u1", "u2"} {
		_, err := db.ExecuteRedemption(user, "r1", "rec-"+user, "led-"+user, tiers, time.Now().Add(time.Duration(i)*time.Millisecond))
		switch err {
		case nil:
			committed++
		case domain.ErrOutOfStock:
			outOfStock++
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if committed != 1 || outOfStock != 1 {
		t.Errorf("committed=%d outOfStock=%d, want 1/1", committed, outOfStock)
	}
	reward, _ := db.Reward("r1")
	if reward.Stock != 0 {
		t.Errorf("stock = %d, want 0", reward.Stock)
	}
}

func TestExecuteRedemption_UnlimitedStock(t *testing.T) {
	db := newTestDB(t)
	db.UpsertReward(domain.RewardDefinition{ID: "r1", Name: "Digital", CostPoints: 50, Stock: domain.UnlimitedStock, Active: true})
	seedMember(t, db, "u1", 500)

	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		if _, err := db.ExecuteRedemption("u1", "r1", "rec-"+id, "led-"+id, domain.DefaultTierTable(), time.Now()); err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
	}
	reward, _ := db.Reward("r1")
	if reward.Stock != domain.UnlimitedStock {
		t.Errorf("stock = %d, want unlimited sentinel", reward.Stock)
	}
}

func TestMarkReversed(t *testing.T) {
	db := newTestDB(t)
	seedMember(t, db, "u1", 1000)
	db.UpsertReward(domain.RewardDefinition{ID: "r1", Name: "Gorra", CostPoints: 600, Stock: 1, Active: true})

	if _, err := db.ExecuteRedemption("u1", "r1", "rec1", "led1", domain.DefaultTierTable(), time.Now()); err != nil {
		t.Fatal(err)
	}

	rec, err := db.MarkReversed("rec1", "led2", time.Now())
	if err != nil {
		t.Fatalf("MarkReversed() error: %v", err)
	}
	if rec.Status != domain.RedemptionReversed {
		t.Errorf("status = %s, want reversed", rec.Status)
	}

	balance, _ := db.Balance("u1")
	if balance != 1000 {
		t.Errorf("balance = %d, want 1000 refunded", balance)
	}
	reward, _ := db.Reward("r1")
	if reward.Stock != 1 {
		t.Errorf("stock = %d, want 1 restored", reward.Stock)
	}

	if _, err := db.MarkReversed("rec1", "led3", time.Now()); err != domain.ErrAlreadyReversed {
		t.Errorf("second reversal err = %v, want ErrAlreadyReversed", err)
	}
}

// ─── Achievements ───────────────────────────────────────────────────────────

func TestGrantAchievement_Idempotent(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	a := domain.Achievement{ID: "a1", UserID: "u1", CriteriaID: domain.CriteriaFirstEvent, UnlockedAt: now}
	bonus := &domain.LedgerEntry{
		ID: "b1", UserID: "u1", Amount: 50, Kind: domain.KindBonus,
		Reason: "logro: primer_evento", OccurredAt: now,
	}

	granted, err := db.GrantAchievement(a, bonus)
	if err != nil {
		t.Fatalf("GrantAchievement() error: %v", err)
	}
	if !granted {
		t.Fatal("first grant should succeed")
	}

	// Second attempt with fresh IDs: UNIQUE pair blocks it, no bonus written.
	dup := domain.Achievement{ID: "a2", UserID: "u1", CriteriaID: domain.CriteriaFirstEvent, UnlockedAt: now}
	dupBonus := &domain.LedgerEntry{
		ID: "b2", UserID: "u1", Amount: 50, Kind: domain.KindBonus,
		Reason: "logro: primer_evento", OccurredAt: now,
	}
	granted, err = db.GrantAchievement(dup, dupBonus)
	if err != nil {
		t.Fatal(err)
	}
	if granted {
		t.Error("duplicate grant should report granted=false")
	}

	balance, _ := db.Balance("u1")
	if balance != 50 {
		t.Errorf("balance = %d, want 50 (single bonus)", balance)
	}
	unlocks, _ := db.Achievements("u1")
	if len(unlocks) != 1 {
		t.Errorf("%d unlock records, want 1", len(unlocks))
	}
}

func TestGrantAchievement_NoBonus(t *testing.T) {
	db := newTestDB(t)
	granted, err := db.GrantAchievement(domain.Achievement{
		ID: "a1", UserID: "u1", CriteriaID: domain.CriteriaWeekStreak, UnlockedAt: time.Now(),
	}, nil)
	if err != nil || !granted {
		t.Fatalf("granted=%v err=%v, want true/nil", granted, err)
	}
	balance, _ := db.Balance("u1")
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}
}

// ─── Streaks ────────────────────────────────────────────────────────────────

func TestSaveStreak_BestIsMonotonic(t *testing.T) {
	db := newTestDB(t)
	db.SaveStreak(domain.StreakState{UserID: "u1", CurrentStreak: 5, BestStreak: 5, LastQualifyingDay: "2025-06-05"})
	db.SaveStreak(domain.StreakState{UserID: "u1", CurrentStreak: 1, BestStreak: 1, LastQualifyingDay: "2025-06-10"})

	s, err := db.StreakState("u1")
	if err != nil {
		t.Fatal(err)
	}
	if s.CurrentStreak != 1 {
		t.Errorf("current = %d, want 1", s.CurrentStreak)
	}
	if s.BestStreak != 5 {
		t.Errorf("best = %d, want 5 (monotonic)", s.BestStreak)
	}
}

// ─── Leaderboard ────────────────────────────────────────────────────────────

func TestEarnedTotals_WindowAndKinds(t *testing.T) {
	db := newTestDB(t)
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	mustAppend(t, db, earningAt("e1", "u1", 100, jan))
	mustAppend(t, db, earningAt("e2", "u1", 200, feb))
	mustAppend(t, db, earningAt("e3", "u2", 300, feb))
	// Redemption inside the window must not lower the competitive total.
	db.UpsertReward(domain.RewardDefinition{ID: "r1", Name: "X", CostPoints: 50, Stock: domain.UnlimitedStock, Active: true})
	if _, err := db.ExecuteRedemption("u1", "r1", "rec1", "led1", domain.DefaultTierTable(), feb.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	totals, err := db.EarnedTotals(start, end)
	if err != nil {
		t.Fatal(err)
	}
	byUser := make(map[string]int64)
	for _, tot := range totals {
		byUser[tot.UserID] = tot.Points
	}
	if byUser["u1"] != 200 {
		t.Errorf("u1 february total = %d, want 200", byUser["u1"])
	}
	if byUser["u2"] != 300 {
		t.Errorf("u2 february total = %d, want 300", byUser["u2"])
	}

	all, err := db.EarnedTotals(time.Time{}, end.AddDate(1, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	byUser = make(map[string]int64)
	for _, tot := range all {
		byUser[tot.UserID] = tot.Points
	}
	if byUser["u1"] != 300 {
		t.Errorf("u1 all-time total = %d, want 300", byUser["u1"])
	}
}

func TestRankingSnapshot_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	window := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []domain.LeaderboardEntry{
		{UserID: "u1", Position: 1, Points: 500, Percentile: 1.0},
		{UserID: "u2", Position: 2, Points: 300, Percentile: 0.5},
	}

	if err := db.SaveRanking(domain.PeriodMonthly, window, time.Now(), entries); err != nil {
		t.Fatalf("SaveRanking() error: %v", err)
	}

	got, ok, err := db.Ranking(domain.PeriodMonthly, window)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("snapshot should exist")
	}
	if len(got) != 2 || got[0].UserID != "u1" || got[1].Position != 2 {
		t.Errorf("round-trip = %+v", got)
	}

	latest, _, ok, err := db.LatestRanking(domain.PeriodMonthly)
	if err != nil || !ok {
		t.Fatalf("LatestRanking ok=%v err=%v", ok, err)
	}
	if len(latest) != 2 {
		t.Errorf("latest has %d entries, want 2", len(latest))
	}

	if _, ok, _ := db.Ranking(domain.PeriodAnnual, window); ok {
		t.Error("annual snapshot should not exist")
	}
}
