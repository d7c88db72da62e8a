package economy

import (
	"context"
	"log/slog"
	"math/rand"

	"newapi-suite-bot/config"
	"newapi-suite-bot/model"
	"newapi-suite-bot/store"
)

// HeistStatus is the terminal state of one heist attempt.
type HeistStatus int

const (
	HeistDisabled HeistStatus = iota
	HeistRobberNotBound
	HeistVictimNotFound
	HeistCannotRobSelf
	HeistAttemptsExceeded
	HeistDefensesExceeded
	HeistFailure
	HeistSuccess
	HeistCritical
	HeistAPIError
)

func (s HeistStatus) String() string {
	switch s {
	case HeistDisabled:
		return "DISABLED"
	case HeistRobberNotBound:
		return "ROBBER_NOT_BOUND"
	case HeistVictimNotFound:
		return "VICTIM_NOT_FOUND"
	case HeistCannotRobSelf:
		return "CANNOT_ROB_SELF"
	case HeistAttemptsExceeded:
		return "ATTEMPTS_EXCEEDED"
	case HeistDefensesExceeded:
		return "DEFENSES_EXCEEDED"
	case HeistFailure:
		return "FAILURE"
	case HeistSuccess:
		return "SUCCESS"
	case HeistCritical:
		return "CRITICAL"
	case HeistAPIError:
		return "API_ERROR"
	}
	return "UNKNOWN"
}

// HeistResult carries the terminal status plus whatever payload that status
// defines: Gain for SUCCESS/CRITICAL, Penalty for FAILURE, VictimSiteID for
// DEFENSES_EXCEEDED. Amounts are display units.
type HeistResult struct {
	Status       HeistStatus
	Gain         float64
	Penalty      float64
	VictimSiteID int64
}

// Ledger is the slice of the store the heist engine needs.
type Ledger interface {
	BindingByChatID(chatID int64) (*model.Binding, error)
	Lookup(identifier int64) (store.LookupKind, *model.Binding, error)
	CountAttemptsToday(robberChatID int64) (int, error)
	CountDefensesToday(victimSiteID int64) (int, error)
	AppendHeistLog(robberChatID, victimSiteID int64, outcome string, amount int64) error
}

// HeistEngine validates, resolves and settles heist attempts. Errors never
// escape Execute; every distinguishable condition maps to a HeistStatus and
// remote/storage failures collapse into HeistAPIError.
type HeistEngine struct {
	cfg      config.Heist
	ledger   Ledger
	transfer *Transferrer
	rng      *rand.Rand
	log      *slog.Logger
}

func NewHeistEngine(cfg config.Heist, ledger Ledger, transfer *Transferrer, rng *rand.Rand, log *slog.Logger) *HeistEngine {
	return &HeistEngine{cfg: cfg, ledger: ledger, transfer: transfer, rng: rng, log: log}
}

// Execute runs one heist attempt by robberChatID against victimIdentifier
// (a site user id or a chat id, resolved by smart lookup). Guards run in
// order of increasing cost; the first failing guard wins.
func (h *HeistEngine) Execute(ctx context.Context, robberChatID, victimIdentifier int64) HeistResult {
	if !h.cfg.Enabled {
		return HeistResult{Status: HeistDisabled}
	}

	robber, err := h.ledger.BindingByChatID(robberChatID)
	if err != nil {
		h.log.Error("heist: robber lookup failed", "robber", robberChatID, "err", err)
		return HeistResult{Status: HeistAPIError}
	}
	if robber == nil {
		return HeistResult{Status: HeistRobberNotBound}
	}

	kind, victim, err := h.ledger.Lookup(victimIdentifier)
	if err != nil {
		h.log.Error("heist: victim lookup failed", "victim", victimIdentifier, "err", err)
		return HeistResult{Status: HeistAPIError}
	}
	if kind == store.LookupNotFound {
		return HeistResult{Status: HeistVictimNotFound}
	}

	if robber.SiteUserID == victim.SiteUserID {
		return HeistResult{Status: HeistCannotRobSelf}
	}

	attempts, err := h.ledger.CountAttemptsToday(robberChatID)
	if err != nil {
		h.log.Error("heist: attempt count failed", "robber", robberChatID, "err", err)
		return HeistResult{Status: HeistAPIError}
	}
	if attempts >= h.cfg.MaxAttemptsPerDay {
		return HeistResult{Status: HeistAttemptsExceeded}
	}

	defenses, err := h.ledger.CountDefensesToday(victim.SiteUserID)
	if err != nil {
		h.log.Error("heist: defense count failed", "victim", victim.SiteUserID, "err", err)
		return HeistResult{Status: HeistAPIError}
	}
	if defenses >= h.cfg.MaxDefensesPerDay {
		return HeistResult{Status: HeistDefensesExceeded, VictimSiteID: victim.SiteUserID}
	}

	outcome, amount := ResolveOutcome(h.rng, h.cfg)
	return h.settle(ctx, outcome, amount, robberChatID, robber.SiteUserID, victim.SiteUserID)
}

func (h *HeistEngine) settle(ctx context.Context, outcome Outcome, amount float64, robberChatID, robberSiteID, victimSiteID int64) HeistResult {
	if outcome == OutcomeFailure {
		// The robber pays the victim; the full penalty must be available.
		res := h.transfer.Transfer(ctx, robberSiteID, victimSiteID, amount, false)
		if !res.OK {
			return HeistResult{Status: HeistAPIError}
		}
		h.appendLog(robberChatID, victimSiteID, OutcomeFailure, -res.RawAmount)
		return HeistResult{Status: HeistFailure, Penalty: res.DisplayAmount}
	}

	// base is the pre-double amount, the threshold a critical must clear
	// after partial clamping to still count as a critical.
	base := amount
	if outcome == OutcomeCritical {
		base = amount / 2
	}

	res := h.transfer.Transfer(ctx, victimSiteID, robberSiteID, amount, true)
	if !res.OK {
		return HeistResult{Status: HeistAPIError}
	}

	final := OutcomeSuccess
	status := HeistSuccess
	if outcome == OutcomeCritical && res.DisplayAmount > base {
		final = OutcomeCritical
		status = HeistCritical
	}
	h.appendLog(robberChatID, victimSiteID, final, res.RawAmount)
	return HeistResult{Status: status, Gain: res.DisplayAmount}
}

func (h *HeistEngine) appendLog(robberChatID, victimSiteID int64, outcome Outcome, rawAmount int64) {
	// Funds have already moved; a failed append only weakens the daily
	// limits, so it is logged rather than turned into an API error.
	if err := h.ledger.AppendHeistLog(robberChatID, victimSiteID, outcome.String(), rawAmount); err != nil {
		h.log.Error("heist: ledger append failed",
			"robber", robberChatID, "victim", victimSiteID, "outcome", outcome.String(), "amount", rawAmount, "err", err)
	}
}
