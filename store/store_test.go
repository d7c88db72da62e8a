package store

import (
	"path/filepath"
	"testing"
	"time"

	"newapi-suite-bot/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := New(db)
	if err := st.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func TestBindingRoundTrip(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateBinding(100, 1000); err != nil {
		t.Fatalf("create: %v", err)
	}

	byChat, err := st.BindingByChatID(100)
	if err != nil || byChat == nil {
		t.Fatalf("by chat: %v %v", byChat, err)
	}
	if byChat.SiteUserID != 1000 {
		t.Errorf("SiteUserID = %d, want 1000", byChat.SiteUserID)
	}

	bySite, err := st.BindingBySiteID(1000)
	if err != nil || bySite == nil {
		t.Fatalf("by site: %v %v", bySite, err)
	}
	if bySite.ChatID != 100 {
		t.Errorf("ChatID = %d, want 100", bySite.ChatID)
	}

	missing, err := st.BindingByChatID(555)
	if err != nil || missing != nil {
		t.Errorf("missing binding: got %v %v, want nil nil", missing, err)
	}
}

func TestBindingUniqueness(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateBinding(100, 1000); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateBinding(100, 2000); err == nil {
		t.Error("duplicate chat id accepted")
	}
	if err := st.CreateBinding(200, 1000); err == nil {
		t.Error("duplicate site id accepted")
	}
}

func TestLookupPrefersSiteID(t *testing.T) {
	st := newTestStore(t)
	// Binding A's site id collides with binding B's chat id; a lookup for
	// the shared value must resolve as a site id.
	if err := st.CreateBinding(100, 200); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateBinding(200, 300); err != nil {
		t.Fatal(err)
	}

	kind, b, err := st.Lookup(200)
	if err != nil {
		t.Fatal(err)
	}
	if kind != LookupSiteID || b.ChatID != 100 {
		t.Errorf("lookup(200) = %v chat=%d, want site-id match on binding 100", kind, b.ChatID)
	}

	kind, b, err = st.Lookup(100)
	if err != nil {
		t.Fatal(err)
	}
	if kind != LookupChatID || b.SiteUserID != 200 {
		t.Errorf("lookup(100) = %v, want chat-id match on binding 100", kind)
	}

	if kind, _, _ := st.Lookup(999); kind != LookupNotFound {
		t.Errorf("lookup(999) = %v, want NOT_FOUND", kind)
	}
}

func TestDeleteBindingByEitherKey(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateBinding(100, 1000); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateBinding(200, 2000); err != nil {
		t.Fatal(err)
	}

	rows, err := st.DeleteBindingByChatID(100)
	if err != nil || rows != 1 {
		t.Errorf("delete by chat: rows=%d err=%v", rows, err)
	}
	rows, err = st.DeleteBindingBySiteID(2000)
	if err != nil || rows != 1 {
		t.Errorf("delete by site: rows=%d err=%v", rows, err)
	}
	rows, _ = st.DeleteBindingBySiteID(2000)
	if rows != 0 {
		t.Errorf("second delete affected %d rows, want 0", rows)
	}
}

func TestSetCheckInTime(t *testing.T) {
	st := newTestStore(t)
	if err := st.CreateBinding(100, 1000); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if err := st.SetCheckInTime(100, now); err != nil {
		t.Fatal(err)
	}

	b, err := st.BindingByChatID(100)
	if err != nil || b == nil {
		t.Fatal("binding lost")
	}
	if b.LastCheckInAt == nil || !b.LastCheckInAt.Equal(now) {
		t.Errorf("LastCheckInAt = %v, want %v", b.LastCheckInAt, now)
	}
}

func TestDailyCounts(t *testing.T) {
	st := newTestStore(t)

	// Today's activity: robber 100 attempted twice (one failure, one
	// success against victim 2000); victim 2000 also lost to robber 300.
	if err := st.AppendHeistLog(100, 2000, model.OutcomeFailure, -50); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendHeistLog(100, 2000, model.OutcomeSuccess, 30); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendHeistLog(300, 2000, model.OutcomeCritical, 80); err != nil {
		t.Fatal(err)
	}

	// Yesterday's rows must not count.
	old := model.HeistLog{
		RobberChatID: 100,
		VictimSiteID: 2000,
		HeistTime:    time.Now().UTC().Add(-48 * time.Hour),
		Outcome:      model.OutcomeSuccess,
		Amount:       10,
	}
	if err := st.DB.Create(&old).Error; err != nil {
		t.Fatal(err)
	}

	attempts, err := st.CountAttemptsToday(100)
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 2 {
		t.Errorf("attempts today = %d, want 2", attempts)
	}

	// FAILURE rows are not defenses; SUCCESS and CRITICAL are.
	defenses, err := st.CountDefensesToday(2000)
	if err != nil {
		t.Fatal(err)
	}
	if defenses != 2 {
		t.Errorf("defenses today = %d, want 2", defenses)
	}

	if n, _ := st.CountAttemptsToday(999); n != 0 {
		t.Errorf("attempts for unknown robber = %d, want 0", n)
	}
}
