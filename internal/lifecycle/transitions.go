package lifecycle

import (
	"github.com/nvlong/workdesk/internal/models"
)

// transition describes the outcome of applying one ledger entry kind.
// A nil from list means the kind applies from any non-terminal status.
type transition struct {
	from []string // statuses the kind is legal from; nil = any non-terminal
	next string   // resulting status; "" = decided by the closure gate
}

// transitionTable is the single source of truth for the state machine:
// entry kind → legal source statuses → resulting status. CREATE never
// appears here because it only exists as an item's first entry.
var transitionTable = map[string]transition{
	models.KindProgress:     {next: models.StatusPending},
	models.KindBlocked:      {next: models.StatusBlocked},
	models.KindHelpCall:     {next: models.StatusHelpNeeded},
	models.KindRequestClose: {next: ""}, // closure gate decides
	models.KindApproveClose: {from: []string{models.StatusWaitingConfirm}, next: models.StatusCompleted},
	models.KindRejectClose:  {from: []string{models.StatusWaitingConfirm}, next: models.StatusPending},
}

// rejectedProgress is the progress an item is reset to when a supervisor
// rejects a close request. Resetting to a fixed 90 rather than the
// pre-closure value is a product decision carried over as-is.
const rejectedProgress = 90

// Next computes the status resulting from applying an entry of the given
// kind to an item in the current status. closeNow is the closure gate's
// verdict and is only consulted for REQUEST_CLOSE.
func Next(current, kind string, closeNow bool) (string, error) {
	if current == models.StatusCompleted {
		return "", ErrTerminal
	}

	t, ok := transitionTable[kind]
	if !ok {
		return "", ErrInvalidTransition
	}

	if t.from != nil {
		legal := false
		for _, s := range t.from {
			if s == current {
				legal = true
				break
			}
		}
		if !legal {
			return "", ErrInvalidState
		}
	}

	if kind == models.KindRequestClose {
		if closeNow {
			return models.StatusCompleted, nil
		}
		return models.StatusWaitingConfirm, nil
	}
	return t.next, nil
}

// Replay folds an item's ledger entries, in order, through the transition
// table and returns the implied (status, progress). The decide callback
// resolves the closure gate for REQUEST_CLOSE entries, keyed by the
// entry's actor. The projection row must always agree with Replay over the
// item's full entry list.
func Replay(entries []models.LedgerEntry, decide func(actor string) bool) (string, int, error) {
	status := models.StatusOpen
	percent := 0
	for _, e := range entries {
		if e.EntryKind == models.KindCreate {
			status = models.StatusOpen
			percent = e.ProgressPercent
			continue
		}
		next, err := Next(status, e.EntryKind, decide(e.Actor))
		if err != nil {
			return "", 0, err
		}
		status = next
		switch {
		case e.EntryKind == models.KindRejectClose:
			percent = rejectedProgress
		case status == models.StatusCompleted || status == models.StatusWaitingConfirm:
			percent = 100
		default:
			percent = e.ProgressPercent
		}
	}
	return status, percent, nil
}
