package lifecycle

import (
	"strings"

	"github.com/nvlong/workdesk/internal/models"
)

// CloseNow decides whether a close request by actor finalizes the item
// immediately. An actor may close immediately when they are the item's
// recorded supervisor, a directory-flagged administrator, or the item's
// owner on an item with no assigned supervisor. Anyone else's report lands
// in WAITING_CONFIRM until one of those three parties attests it.
//
// The admin flag is pre-resolved by the caller so the decision stays pure.
func CloseNow(item *models.WorkItem, actor string, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	a := strings.TrimSpace(actor)
	sup := strings.TrimSpace(item.Supervisor)
	if sup != "" {
		return strings.EqualFold(a, sup)
	}
	// No supervisor on file: the owner attests their own work.
	return strings.EqualFold(a, strings.TrimSpace(item.Owner))
}
