package economy

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"newapi-suite-bot/config"
	"newapi-suite-bot/newapi"
	"newapi-suite-bot/store"
)

func checkInConfig() config.CheckIn {
	return config.CheckIn{
		Enabled:         true,
		MinDisplayQuota: 5.0,
		MaxDisplayQuota: 5.0, // deterministic base draw
	}
}

func newCheckIn(cfg config.CheckIn, ratio int64, st *store.Store, gw Gateway) *CheckInEngine {
	return NewCheckInEngine(cfg, ratio, st, gw, rand.New(rand.NewSource(9)), discardLogger())
}

func TestCheckInDisabled(t *testing.T) {
	cfg := checkInConfig()
	cfg.Enabled = false
	e := newCheckIn(cfg, testRatio, newTestStore(t), newFakeGateway())

	if res := e.Execute(context.Background(), 100, nil); res.Status != CheckInDisabled {
		t.Errorf("status = %v, want DISABLED", res.Status)
	}
}

func TestCheckInNotBound(t *testing.T) {
	e := newCheckIn(checkInConfig(), testRatio, newTestStore(t), newFakeGateway())

	if res := e.Execute(context.Background(), 100, nil); res.Status != CheckInNotBound {
		t.Errorf("status = %v, want NOT_BOUND", res.Status)
	}
}

func TestCheckInFirstBonusSkipsDoubling(t *testing.T) {
	st := newTestStore(t)
	bind(t, st, 100, 1000)
	gw := newFakeGateway(&newapi.User{ID: 1000, Quota: 0})

	const ratio = 500000
	cfg := checkInConfig()
	cfg.FirstBonusEnabled = true
	cfg.FirstBonusQuota = 10.0
	cfg.DoubleChance = 1 // must be ignored on a bonused first check-in
	e := newCheckIn(cfg, ratio, st, gw)

	res := e.Execute(context.Background(), 100, nil)
	if res.Status != CheckInSuccess {
		t.Fatalf("status = %v, want SUCCESS", res.Status)
	}
	if !res.IsFirst {
		t.Error("IsFirst = false on first-ever check-in")
	}
	if res.IsDoubled {
		t.Error("IsDoubled = true despite first-bonus path")
	}
	// base 5.0 + bonus 10.0, both in raw units
	want := int64(15.0 * ratio)
	if got := gw.quota(1000); got != want {
		t.Errorf("quota = %d, want %d", got, want)
	}
	if res.DisplayAdded != 15.0 {
		t.Errorf("DisplayAdded = %v, want 15.0", res.DisplayAdded)
	}

	b, err := st.BindingByChatID(100)
	if err != nil || b == nil || b.LastCheckInAt == nil {
		t.Fatal("check-in timestamp was not persisted")
	}
}

func TestCheckInDoubling(t *testing.T) {
	st := newTestStore(t)
	bind(t, st, 100, 1000)
	yesterday := time.Now().UTC().Add(-48 * time.Hour)
	if err := st.SetCheckInTime(100, yesterday); err != nil {
		t.Fatal(err)
	}
	gw := newFakeGateway(&newapi.User{ID: 1000, Quota: 0})

	cfg := checkInConfig()
	cfg.DoubleChance = 1
	e := newCheckIn(cfg, testRatio, st, gw)

	res := e.Execute(context.Background(), 100, nil)
	if res.Status != CheckInSuccess {
		t.Fatalf("status = %v, want SUCCESS", res.Status)
	}
	if res.IsFirst || !res.IsDoubled {
		t.Errorf("IsFirst=%v IsDoubled=%v, want false/true", res.IsFirst, res.IsDoubled)
	}
	if res.DisplayAdded != 10.0 {
		t.Errorf("DisplayAdded = %v, want doubled 10.0", res.DisplayAdded)
	}
}

func TestCheckInSameLocalDayRejected(t *testing.T) {
	st := newTestStore(t)
	bind(t, st, 100, 1000)
	gw := newFakeGateway(&newapi.User{ID: 1000, Quota: 0})
	e := newCheckIn(checkInConfig(), testRatio, st, gw)

	if res := e.Execute(context.Background(), 100, nil); res.Status != CheckInSuccess {
		t.Fatalf("first call: status = %v, want SUCCESS", res.Status)
	}
	writes := len(gw.updates)

	if res := e.Execute(context.Background(), 100, nil); res.Status != CheckInAlreadyCheckedIn {
		t.Fatalf("second call: status = %v, want ALREADY_CHECKED_IN", res.Status)
	}
	if len(gw.updates) != writes {
		t.Errorf("second call performed %d remote writes, want 0", len(gw.updates)-writes)
	}
}

func TestCheckInOffsetShiftsDayBoundary(t *testing.T) {
	st := newTestStore(t)
	bind(t, st, 100, 1000)
	// Last check-in 2026-08-24 20:00 UTC, now 2026-08-25 01:00 UTC.
	// Plain UTC dates differ; with a +8h offset both land on local
	// 2026-08-25 and the second check-in must be rejected.
	last := time.Date(2026, 8, 24, 20, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 25, 1, 0, 0, 0, time.UTC)
	if err := st.SetCheckInTime(100, last); err != nil {
		t.Fatal(err)
	}
	gw := newFakeGateway(&newapi.User{ID: 1000, Quota: 0})

	cfg := checkInConfig()
	cfg.TimezoneOffsetHours = 8
	e := newCheckIn(cfg, testRatio, st, gw)
	e.now = func() time.Time { return now }

	if res := e.Execute(context.Background(), 100, nil); res.Status != CheckInAlreadyCheckedIn {
		t.Errorf("offset +8: status = %v, want ALREADY_CHECKED_IN", res.Status)
	}

	cfg.TimezoneOffsetHours = 0
	e = newCheckIn(cfg, testRatio, st, gw)
	e.now = func() time.Time { return now }

	if res := e.Execute(context.Background(), 100, nil); res.Status != CheckInSuccess {
		t.Errorf("offset 0: status = %v, want SUCCESS", res.Status)
	}
}

func TestCheckInUserNotFound(t *testing.T) {
	st := newTestStore(t)
	bind(t, st, 100, 1000)
	e := newCheckIn(checkInConfig(), testRatio, st, newFakeGateway())

	if res := e.Execute(context.Background(), 100, nil); res.Status != CheckInUserNotFound {
		t.Errorf("status = %v, want API_USER_NOT_FOUND", res.Status)
	}
}

func TestCheckInUpdateFailureKeepsRetryable(t *testing.T) {
	st := newTestStore(t)
	bind(t, st, 100, 1000)
	gw := newFakeGateway(&newapi.User{ID: 1000, Quota: 0})
	gw.updErr[1000] = context.DeadlineExceeded
	e := newCheckIn(checkInConfig(), testRatio, st, gw)

	if res := e.Execute(context.Background(), 100, nil); res.Status != CheckInUpdateFailed {
		t.Fatalf("status = %v, want API_UPDATE_FAILED", res.Status)
	}

	// Timestamp must not be persisted, so the user can retry today.
	b, err := st.BindingByChatID(100)
	if err != nil || b == nil {
		t.Fatal("binding disappeared")
	}
	if b.LastCheckInAt != nil {
		t.Error("check-in timestamp persisted despite failed update")
	}
}
