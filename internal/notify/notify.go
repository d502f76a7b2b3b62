// Package notify delivers the side effects a state transition implies:
// reward signals, audit entries, and chat notices. Delivery is best effort;
// a failure here never surfaces back into the transition that caused it.
package notify

import (
	"context"
	"log"

	"github.com/nvlong/workdesk/internal/lifecycle"
)

// RewardSink receives gamification activity signals.
type RewardSink interface {
	LogActivity(user, activityCode string) error
}

// AuditSink persists audit-log entries.
type AuditSink interface {
	WriteEntry(actor, actionCode, severity, details, sourceAddr string) error
}

// Notice is one human-facing notification.
type Notice struct {
	Title    string
	Body     string
	Severity string // INFO or WARNING
}

// Notifier posts notices to a chat platform.
type Notifier interface {
	Post(ctx context.Context, n Notice) error
	Close() error
}

// Dispatcher fans side effects out to the configured sinks and notifiers.
type Dispatcher struct {
	rewards   RewardSink
	audits    AuditSink
	notifiers []Notifier
}

// NewDispatcher wires a Dispatcher. Nil sinks are skipped.
func NewDispatcher(rewards RewardSink, audits AuditSink, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{rewards: rewards, audits: audits, notifiers: notifiers}
}

// Deliver pushes every event in fx to its sink. Failures are logged and
// swallowed.
func (d *Dispatcher) Deliver(fx lifecycle.SideEffects) {
	if d == nil {
		return
	}
	if d.rewards != nil {
		for _, r := range fx.Rewards {
			if err := d.rewards.LogActivity(r.User, r.ActivityCode); err != nil {
				log.Printf("notify: reward %s for %s failed: %v", r.ActivityCode, r.User, err)
			}
		}
	}
	if d.audits != nil {
		for _, a := range fx.Audits {
			if err := d.audits.WriteEntry(a.Actor, a.ActionCode, a.Severity, a.Details, a.SourceAddr); err != nil {
				log.Printf("notify: audit %s by %s failed: %v", a.ActionCode, a.Actor, err)
			}
		}
	}
}

// Announce posts a notice through every notifier. Failures are logged and
// swallowed.
func (d *Dispatcher) Announce(ctx context.Context, n Notice) {
	if d == nil {
		return
	}
	for _, nf := range d.notifiers {
		if err := nf.Post(ctx, n); err != nil {
			log.Printf("notify: announce %q failed: %v", n.Title, err)
		}
	}
}

// Close shuts down all notifiers.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	for _, nf := range d.notifiers {
		if err := nf.Close(); err != nil {
			log.Printf("notify: close notifier: %v", err)
		}
	}
}

// LogRewards is a RewardSink that writes to the process log. Used until a
// real gamification backend is wired in.
type LogRewards struct{}

// LogActivity logs the activity signal.
func (LogRewards) LogActivity(user, activityCode string) error {
	log.Printf("reward: %s -> %s", activityCode, user)
	return nil
}

// LogAudits is an AuditSink that writes to the process log.
type LogAudits struct{}

// WriteEntry logs the audit line.
func (LogAudits) WriteEntry(actor, actionCode, severity, details, sourceAddr string) error {
	log.Printf("audit: [%s] %s %s: %s (from %s)", severity, actor, actionCode, details, sourceAddr)
	return nil
}
