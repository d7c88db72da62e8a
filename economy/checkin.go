package economy

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"newapi-suite-bot/config"
	"newapi-suite-bot/model"
	"newapi-suite-bot/newapi"
)

// CheckInStatus is the terminal state of one check-in attempt.
type CheckInStatus int

const (
	CheckInDisabled CheckInStatus = iota
	CheckInNotBound
	CheckInAlreadyCheckedIn
	CheckInUserNotFound
	CheckInUpdateFailed
	CheckInSuccess
)

func (s CheckInStatus) String() string {
	switch s {
	case CheckInDisabled:
		return "DISABLED"
	case CheckInNotBound:
		return "NOT_BOUND"
	case CheckInAlreadyCheckedIn:
		return "ALREADY_CHECKED_IN"
	case CheckInUserNotFound:
		return "API_USER_NOT_FOUND"
	case CheckInUpdateFailed:
		return "API_UPDATE_FAILED"
	case CheckInSuccess:
		return "SUCCESS"
	}
	return "UNKNOWN"
}

// CheckInResult carries the status and, on success, the payout details in
// display units.
type CheckInResult struct {
	Status       CheckInStatus
	IsFirst      bool
	IsDoubled    bool
	DisplayAdded float64
	DisplayTotal float64
	ChatID       int64
	SiteUserID   int64
}

// BindingStore is the slice of the store the check-in engine needs.
type BindingStore interface {
	BindingByChatID(chatID int64) (*model.Binding, error)
	SetCheckInTime(chatID int64, t time.Time) error
}

// CheckInEngine grants the once-per-local-day quota reward. "Local day" is
// the UTC instant shifted by a configured fixed-hour offset; the offset is
// presentation-only and the persisted timestamp stays UTC.
type CheckInEngine struct {
	cfg   config.CheckIn
	ratio int64
	store BindingStore
	gw    Gateway
	rng   *rand.Rand
	now   func() time.Time
	log   *slog.Logger
}

func NewCheckInEngine(cfg config.CheckIn, ratio int64, store BindingStore, gw Gateway, rng *rand.Rand, log *slog.Logger) *CheckInEngine {
	return &CheckInEngine{
		cfg:   cfg,
		ratio: ratio,
		store: store,
		gw:    gw,
		rng:   rng,
		now:   func() time.Time { return time.Now().UTC() },
		log:   log,
	}
}

// Execute performs one check-in for chatID. binding may be passed by callers
// that already resolved it; pass nil to let the engine look it up.
func (e *CheckInEngine) Execute(ctx context.Context, chatID int64, binding *model.Binding) CheckInResult {
	if !e.cfg.Enabled {
		return CheckInResult{Status: CheckInDisabled}
	}

	if binding == nil {
		b, err := e.store.BindingByChatID(chatID)
		if err != nil {
			e.log.Error("checkin: binding lookup failed", "chat", chatID, "err", err)
			return CheckInResult{Status: CheckInUpdateFailed}
		}
		if b == nil {
			return CheckInResult{Status: CheckInNotBound}
		}
		binding = b
	}

	offset := time.Duration(e.cfg.TimezoneOffsetHours) * time.Hour
	now := e.now()
	isFirst := binding.LastCheckInAt == nil
	if !isFirst && sameDate(binding.LastCheckInAt.UTC().Add(offset), now.Add(offset)) {
		return CheckInResult{Status: CheckInAlreadyCheckedIn}
	}

	var bonus int64
	isDoubled := false
	if isFirst && e.cfg.FirstBonusEnabled {
		// First-ever check-in gets the flat bonus and skips the
		// doubling roll entirely.
		bonus = int64(e.cfg.FirstBonusQuota * float64(e.ratio))
	} else {
		isDoubled = e.rng.Float64() < e.cfg.DoubleChance
	}

	baseDisplay := e.cfg.MinDisplayQuota + e.rng.Float64()*(e.cfg.MaxDisplayQuota-e.cfg.MinDisplayQuota)
	regular := int64(baseDisplay * float64(e.ratio))
	if isDoubled {
		regular *= 2
	}
	final := regular + bonus

	user, err := e.gw.GetUser(ctx, binding.SiteUserID)
	if err != nil {
		if !errors.Is(err, newapi.ErrUserNotFound) {
			e.log.Error("checkin: fetch user failed", "site", binding.SiteUserID, "err", err)
		}
		return CheckInResult{Status: CheckInUserNotFound}
	}

	current := user.Quota
	user.Quota = current + final
	if err := e.gw.UpdateUser(ctx, user); err != nil {
		// Timestamp not persisted, so the user can simply retry.
		e.log.Error("checkin: quota update failed", "site", binding.SiteUserID, "err", err)
		return CheckInResult{Status: CheckInUpdateFailed}
	}

	if err := e.store.SetCheckInTime(chatID, now); err != nil {
		// Quota already granted; only the daily gate is weakened.
		e.log.Error("checkin: persist timestamp failed", "chat", chatID, "err", err)
	}

	return CheckInResult{
		Status:       CheckInSuccess,
		IsFirst:      isFirst,
		IsDoubled:    isDoubled,
		DisplayAdded: float64(final) / float64(e.ratio),
		DisplayTotal: float64(current+final) / float64(e.ratio),
		ChatID:       chatID,
		SiteUserID:   binding.SiteUserID,
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
