package lifecycle

// Reward activity codes understood by the gamification sink.
const (
	ActivitySelfCompleted     = "COMPLETE_TASK_SELF"
	ActivityAssistedCompleted = "COMPLETE_TASK_ASSIGNED"
	ActivityHelpCompleted     = "TASK_HELP_COMPLETED"
)

// Audit severities.
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
)

// RewardEvent signals one gamification activity for a user.
type RewardEvent struct {
	User         string
	ActivityCode string
}

// AuditEvent is one audit-log line describing an action.
type AuditEvent struct {
	Actor      string
	ActionCode string
	Severity   string
	Details    string
	SourceAddr string
}

// SideEffects carries the reward and audit signals implied by a state
// transition. The transition itself never performs this I/O: the caller
// hands SideEffects to a dispatcher after the transaction commits, and a
// delivery failure there can never make the transition appear failed.
type SideEffects struct {
	Rewards []RewardEvent
	Audits  []AuditEvent
}

func (fx *SideEffects) reward(user, code string) {
	fx.Rewards = append(fx.Rewards, RewardEvent{User: user, ActivityCode: code})
}

func (fx *SideEffects) audit(actor, action, severity, details, source string) {
	fx.Audits = append(fx.Audits, AuditEvent{
		Actor: actor, ActionCode: action, Severity: severity,
		Details: details, SourceAddr: source,
	})
}
