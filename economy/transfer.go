package economy

import (
	"context"
	"log/slog"

	"newapi-suite-bot/newapi"
)

// Gateway is the slice of the NewAPI client the economy engines use.
type Gateway interface {
	GetUser(ctx context.Context, id int64) (*newapi.User, error)
	UpdateUser(ctx context.Context, u *newapi.User) error
}

// TransferResult reports one attempted quota move. On a failed transfer both
// amounts are zero and the caller must not assume a lossless round trip: the
// debit may have happened and been compensated, or in the worst case the
// compensation itself failed and was logged for manual reconciliation.
type TransferResult struct {
	OK            bool
	DisplayAmount float64 // actually moved, display units
	RawAmount     int64   // actually moved, raw units
}

// Transferrer moves raw quota between two site accounts through the
// non-transactional NewAPI update endpoint. The remote store has no
// cross-account transaction, so this is a two-leg saga: debit the source
// first, credit the destination second, and compensate the debit if the
// credit fails. The ordering prefers "never increase total quota" over
// "never decrease it" — a lost debit is recoverable by support, a duplicate
// credit is not detectable.
type Transferrer struct {
	gw    Gateway
	ratio int64
	log   *slog.Logger
}

func NewTransferrer(gw Gateway, ratio int64, log *slog.Logger) *Transferrer {
	return &Transferrer{gw: gw, ratio: ratio, log: log}
}

// Transfer moves displayAmount of display quota from fromID to toID.
// With allowPartial the amount is clamped to the source's balance; without
// it an underfunded source fails the transfer with no writes. A clamped or
// requested amount of zero succeeds with no remote writes.
func (t *Transferrer) Transfer(ctx context.Context, fromID, toID int64, displayAmount float64, allowPartial bool) TransferResult {
	raw := int64(displayAmount * float64(t.ratio))
	ok, moved := t.transferRaw(ctx, fromID, toID, raw, allowPartial)
	if !ok {
		return TransferResult{}
	}
	return TransferResult{
		OK:            true,
		DisplayAmount: float64(moved) / float64(t.ratio),
		RawAmount:     moved,
	}
}

func (t *Transferrer) transferRaw(ctx context.Context, fromID, toID, raw int64, allowPartial bool) (bool, int64) {
	from, err := t.gw.GetUser(ctx, fromID)
	if err != nil {
		t.log.Error("transfer: fetch source failed", "from", fromID, "err", err)
		return false, 0
	}
	to, err := t.gw.GetUser(ctx, toID)
	if err != nil {
		t.log.Error("transfer: fetch destination failed", "to", toID, "err", err)
		return false, 0
	}

	actual := raw
	if from.Quota < raw {
		if !allowPartial {
			return false, 0
		}
		actual = from.Quota
	}
	if actual <= 0 {
		// Valid no-op, e.g. draining an already empty account.
		return true, 0
	}

	from.Quota -= actual
	if err := t.gw.UpdateUser(ctx, from); err != nil {
		// Nothing moved yet; the source keeps its quota.
		t.log.Error("transfer: debit failed", "from", fromID, "amount", actual, "err", err)
		return false, 0
	}

	to.Quota += actual
	if err := t.gw.UpdateUser(ctx, to); err != nil {
		t.log.Error("transfer: credit failed, compensating debit",
			"from", fromID, "to", toID, "amount", actual, "err", err)
		from.Quota += actual
		if rbErr := t.gw.UpdateUser(ctx, from); rbErr != nil {
			t.log.Error("CRITICAL: transfer compensation failed, quota debited but not credited; manual reconciliation required",
				"from", fromID, "to", toID, "amount", actual, "err", rbErr)
		}
		return false, 0
	}

	return true, actual
}
