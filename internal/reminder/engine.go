package reminder

import (
	"time"

	"github.com/LahoumaBarik/SchoolBag/internal/models"
)

// Candidate is a reminder the engine proposes for creation. The store decides
// whether it is new or an absorbed duplicate.
type Candidate struct {
	Rule     Rule
	Task     models.Task
	Type     models.NotificationType
	Title    string
	Message  string
	Priority string
	Dedup    models.DedupData
	DueAt    time.Time
}

// Evaluate applies the rule table to a single task for the tick window
// [windowStart, windowStart+period). A rule matches when its fire target
// (due instant plus offset) falls inside the window, so each occurrence is
// claimed by exactly one tick even if the process restarts between ticks.
//
// existing holds the dedup keys already recorded for the task and lets
// callers skip proposals without a round trip per rule; the storage unique
// index remains the final arbiter. Keys embed the due instant, so records
// minted for an earlier due date never suppress the current one.
func Evaluate(task models.Task, windowStart time.Time, period time.Duration, existing map[string]struct{}) []Candidate {
	if !task.IsReminderCandidate() {
		return nil
	}

	dueAt := task.DueInstant()
	windowEnd := windowStart.Add(period)

	var out []Candidate
	for _, rule := range Rules {
		target := dueAt.Add(rule.Offset)
		if target.Before(windowStart) || !target.Before(windowEnd) {
			continue
		}

		notifType := rule.NotificationType(task)
		if existing != nil {
			if _, seen := existing[models.BuildDedupKey(task.ID, notifType, rule.Interval, dueAt)]; seen {
				continue
			}
		}

		out = append(out, Candidate{
			Rule:     rule,
			Task:     task,
			Type:     notifType,
			Title:    rule.Title(task),
			Message:  rule.Message(task),
			Priority: rule.Priority(task),
			Dedup: models.DedupData{
				TaskID:           task.ID,
				ReminderInterval: rule.Interval,
			},
			DueAt: dueAt,
		})
	}
	return out
}

// FetchWindow returns the [from, to) task due-instant range a tick starting
// at windowStart must load so that every rule's targets are covered by a
// single query.
func FetchWindow(windowStart time.Time, period time.Duration) (from, to time.Time) {
	before, after := MaxLookback()
	// A rule firing at target needs tasks due at target-offset. Negative
	// offsets pull due instants from the future, positive from the past.
	return windowStart.Add(-after), windowStart.Add(period).Add(before)
}
