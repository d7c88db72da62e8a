package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"newapi-suite-bot/config"
	"newapi-suite-bot/model"
	"newapi-suite-bot/newapi"
	"newapi-suite-bot/store"
)

// BindStatus is the terminal state of a bind attempt.
type BindStatus int

const (
	BindAlreadyBound BindStatus = iota
	BindSiteUserMissing
	BindSiteIDTaken
	BindFailed
	BindOK
)

// AdjustStatus is the terminal state of an admin balance adjustment.
type AdjustStatus int

const (
	AdjustUserNotFound AdjustStatus = iota
	AdjustFetchFailed
	AdjustUpdateFailed
	AdjustOK
)

// AdjustResult reports a balance adjustment; NewDisplayQuota is the account's
// resulting total in display units.
type AdjustResult struct {
	Status          AdjustStatus
	SiteUserID      int64
	NewDisplayQuota float64
}

// AccountAdmin implements the binding lifecycle and admin balance tools:
// the bind ritual with rollback, unbind purge with group revert, and
// clamp-at-zero balance adjustment.
type AccountAdmin struct {
	cfg   config.Binding
	store *store.Store
	gw    Gateway
	log   *slog.Logger
}

func NewAccountAdmin(cfg config.Binding, st *store.Store, gw Gateway, log *slog.Logger) *AccountAdmin {
	return &AccountAdmin{cfg: cfg, store: st, gw: gw, log: log}
}

// Bind validates and creates a binding between chatID and siteUserID, then
// promotes the remote user into the configured binding group. The binding row
// is deleted again if any later step fails, so a failed ritual leaves no
// trace. The returned int64 is the already-bound site id for BindAlreadyBound.
func (a *AccountAdmin) Bind(ctx context.Context, chatID, siteUserID int64) (BindStatus, int64, error) {
	existing, err := a.store.BindingByChatID(chatID)
	if err != nil {
		return BindFailed, 0, err
	}
	if existing != nil {
		return BindAlreadyBound, existing.SiteUserID, nil
	}

	if _, err := a.gw.GetUser(ctx, siteUserID); err != nil {
		if errors.Is(err, newapi.ErrUserNotFound) {
			return BindSiteUserMissing, 0, nil
		}
		return BindFailed, 0, err
	}

	taken, err := a.store.BindingBySiteID(siteUserID)
	if err != nil {
		return BindFailed, 0, err
	}
	if taken != nil {
		return BindSiteIDTaken, 0, nil
	}

	if err := a.store.CreateBinding(chatID, siteUserID); err != nil {
		return BindFailed, 0, err
	}

	if err := a.setGroup(ctx, siteUserID, a.cfg.BindingGroup); err != nil {
		a.log.Error("bind: group promotion failed, rolling back binding",
			"chat", chatID, "site", siteUserID, "err", err)
		if _, delErr := a.store.DeleteBindingByChatID(chatID); delErr != nil {
			a.log.Error("bind: rollback delete failed", "chat", chatID, "err", delErr)
		}
		return BindFailed, 0, err
	}

	return BindOK, siteUserID, nil
}

// Purge force-unbinds a site user: revert its remote group, then delete the
// binding row. Returns the deleted binding for reporting, or nil when no
// binding existed.
func (a *AccountAdmin) Purge(ctx context.Context, siteUserID int64) (bool, *model.Binding, error) {
	binding, err := a.store.BindingBySiteID(siteUserID)
	if err != nil {
		return false, nil, err
	}
	if binding == nil {
		return false, nil, nil
	}

	// Best effort: a failed revert must not keep the binding alive.
	if err := a.revertGroup(ctx, siteUserID); err != nil {
		a.log.Warn("purge: group revert failed", "site", siteUserID, "err", err)
	}

	rows, err := a.store.DeleteBindingBySiteID(siteUserID)
	if err != nil {
		return false, binding, err
	}
	if rows == 0 {
		return false, binding, fmt.Errorf("binding for site %d existed but delete affected no rows", siteUserID)
	}
	return true, binding, nil
}

// AdjustBalance adds displayDelta (possibly negative) display quota to the
// account found by smart lookup. A resulting negative total is clamped to
// zero; the remote store must never see a negative quota.
func (a *AccountAdmin) AdjustBalance(ctx context.Context, identifier int64, displayDelta float64) AdjustResult {
	kind, binding, err := a.store.Lookup(identifier)
	if err != nil {
		a.log.Error("adjust: lookup failed", "identifier", identifier, "err", err)
		return AdjustResult{Status: AdjustUserNotFound}
	}
	if kind == store.LookupNotFound {
		return AdjustResult{Status: AdjustUserNotFound}
	}
	siteID := binding.SiteUserID

	user, err := a.gw.GetUser(ctx, siteID)
	if err != nil {
		return AdjustResult{Status: AdjustFetchFailed, SiteUserID: siteID}
	}

	delta := int64(displayDelta * float64(a.cfg.QuotaDisplayRatio))
	total := user.Quota + delta
	if total < 0 {
		a.log.Warn("adjust: clamped negative total to zero", "site", siteID, "delta", delta)
		total = 0
	}
	user.Quota = total

	if err := a.gw.UpdateUser(ctx, user); err != nil {
		return AdjustResult{Status: AdjustUpdateFailed, SiteUserID: siteID}
	}

	return AdjustResult{
		Status:          AdjustOK,
		SiteUserID:      siteID,
		NewDisplayQuota: float64(total) / float64(a.cfg.QuotaDisplayRatio),
	}
}

func (a *AccountAdmin) setGroup(ctx context.Context, siteUserID int64, group string) error {
	user, err := a.gw.GetUser(ctx, siteUserID)
	if err != nil {
		return err
	}
	user.Group = group
	return a.gw.UpdateUser(ctx, user)
}

func (a *AccountAdmin) revertGroup(ctx context.Context, siteUserID int64) error {
	user, err := a.gw.GetUser(ctx, siteUserID)
	if err != nil {
		return err
	}
	if user.Group == a.cfg.RevertGroup {
		return nil
	}
	user.Group = a.cfg.RevertGroup
	return a.gw.UpdateUser(ctx, user)
}
