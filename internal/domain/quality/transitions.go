package quality

import (
	"fmt"
	"strings"
	"time"
)

// Trigger names a workflow command.
type Trigger string

const (
	TriggerAssignWorker      Trigger = "assign_worker"
	TriggerStartWork         Trigger = "start_work"
	TriggerSubmitFix         Trigger = "submit_fix"
	TriggerAcceptForReview   Trigger = "accept_for_review"
	TriggerRejectAtFirstPass Trigger = "reject_at_first_pass"
	TriggerFinalize          Trigger = "finalize"
)

var allTriggers = []Trigger{
	TriggerAssignWorker,
	TriggerStartWork,
	TriggerSubmitFix,
	TriggerAcceptForReview,
	TriggerRejectAtFirstPass,
	TriggerFinalize,
}

// Triggers returns every workflow trigger.
func Triggers() []Trigger {
	out := make([]Trigger, len(allTriggers))
	copy(out, allTriggers)
	return out
}

// Command is one requested transition with its arguments. Only the fields
// relevant to Trigger are read.
type Command struct {
	Trigger       Trigger
	WorkerID      string
	AfterPhotoRef string
	Decision      Decision
	Reason        string
}

// Transition describes an accepted state change.
type Transition struct {
	Trigger Trigger
	From    Status
	To      Status
	Reason  string
	At      time.Time
}

type transitionKey struct {
	from    Status
	trigger Trigger
}

type transitionRule struct {
	guard  func(Issue, Actor) bool
	guardN string
	apply  func(next *Issue, cmd Command, now time.Time) (Status, string, error)
}

var transitionTable = map[transitionKey]transitionRule{
	{StatusReported, TriggerAssignWorker}: {
		guard:  Issue.isSupervisorOrAdmin,
		guardN: "admin or issue supervisor",
		apply: func(next *Issue, cmd Command, now time.Time) (Status, string, error) {
			workerID := strings.TrimSpace(cmd.WorkerID)
			if workerID == "" {
				return "", "", preconditionf("worker id is required")
			}
			next.AssignedTo = workerID
			next.AssignedAt = &now
			return StatusAssigned, "", nil
		},
	},
	{StatusAssigned, TriggerStartWork}: {
		guard:  Issue.isAssignee,
		guardN: "assigned worker",
		apply: func(next *Issue, _ Command, now time.Time) (Status, string, error) {
			next.StartedAt = &now
			return StatusInProgress, "", nil
		},
	},
	{StatusInProgress, TriggerSubmitFix}: {
		guard:  Issue.isAssignee,
		guardN: "assigned worker",
		apply: func(next *Issue, cmd Command, now time.Time) (Status, string, error) {
			photo := strings.TrimSpace(cmd.AfterPhotoRef)
			if photo == "" {
				return "", "", preconditionf("after photo reference is required")
			}
			next.AfterPhotoRef = photo
			next.CompletedAt = &now
			return StatusFixed, "", nil
		},
	},
	{StatusFixed, TriggerAcceptForReview}: {
		guard:  Issue.isSupervisorOrAdmin,
		guardN: "admin or issue supervisor",
		apply: func(next *Issue, cmd Command, now time.Time) (Status, string, error) {
			if next.StartedAt == nil {
				return "", "", fmt.Errorf("issue %s: fixed without startedAt", next.ID)
			}
			minutes := FixTimeMinutes(*next.StartedAt, now)
			next.ActualFixTimeMinutes = &minutes
			next.ReviewedAt = &now
			return StatusReview, strings.TrimSpace(cmd.Reason), nil
		},
	},
	{StatusFixed, TriggerRejectAtFirstPass}: {
		guard:  Issue.isSupervisorOrAdmin,
		guardN: "admin or issue supervisor",
		apply: func(_ *Issue, cmd Command, _ time.Time) (Status, string, error) {
			reason := strings.TrimSpace(cmd.Reason)
			if reason == "" {
				return "", "", preconditionf("reason is required to reject")
			}
			return StatusRejected, reason, nil
		},
	},
	{StatusReview, TriggerFinalize}: {
		guard:  Issue.isSupervisorOrAdmin,
		guardN: "admin or issue supervisor",
		apply: func(next *Issue, cmd Command, now time.Time) (Status, string, error) {
			reason := strings.TrimSpace(cmd.Reason)
			switch cmd.Decision {
			case DecisionApproved:
				next.ApprovedAt = &now
				return StatusApproved, reason, nil
			case DecisionRejected:
				if reason == "" {
					return "", "", preconditionf("reason is required to reject")
				}
				return StatusRejected, reason, nil
			default:
				return "", "", preconditionf("decision must be %q or %q", DecisionApproved, DecisionRejected)
			}
		},
	},
}

// AvailableTriggers lists the triggers defined from status, in table order.
func AvailableTriggers(from Status) []Trigger {
	out := make([]Trigger, 0, 2)
	for _, trigger := range allTriggers {
		if _, ok := transitionTable[transitionKey{from: from, trigger: trigger}]; ok {
			out = append(out, trigger)
		}
	}
	return out
}

// Apply validates cmd against the transition table and actor guard, then
// returns the transitioned copy of the issue. The receiver is never modified.
// Checks run in order: table lookup (ErrInvalidTransition), guard
// (ErrForbidden), arguments (ErrPreconditionFailed).
func (i Issue) Apply(actor Actor, cmd Command, now time.Time) (Issue, Transition, error) {
	rule, ok := transitionTable[transitionKey{from: i.Status, trigger: cmd.Trigger}]
	if !ok {
		return i, Transition{}, fmt.Errorf("%w: %s is not allowed from %s", ErrInvalidTransition, cmd.Trigger, i.Status)
	}
	if !rule.guard(i, actor) {
		return i, Transition{}, forbiddenf("%s requires the %s", cmd.Trigger, rule.guardN)
	}

	at := laterOf(now.UTC(), i.latestTimestamp())
	next := i.Clone()
	to, reason, err := rule.apply(&next, cmd, at)
	if err != nil {
		return i, Transition{}, err
	}
	next.Status = to
	next.UpdatedAt = laterOf(at, i.UpdatedAt)

	if err := next.CheckTimestamps(); err != nil {
		return i, Transition{}, err
	}

	return next, Transition{
		Trigger: cmd.Trigger,
		From:    i.Status,
		To:      to,
		Reason:  reason,
		At:      at,
	}, nil
}

// FixTimeMinutes is the elapsed whole minutes from start to end, floored and
// never negative.
func FixTimeMinutes(start, end time.Time) int {
	elapsed := end.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Minute)
}
