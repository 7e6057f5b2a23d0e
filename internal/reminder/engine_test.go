package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LahoumaBarik/SchoolBag/internal/models"
)

func essayDraft() models.Task {
	task := models.Task{
		Title:   "Essay Draft",
		Type:    models.TaskTypeAssignment,
		Status:  models.TaskStatusPending,
		DueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueTime: "23:59",
	}
	task.ID = "task-1"
	task.UserID = "user-1"
	return task
}

func TestEvaluateFiresEachRuleInItsWindow(t *testing.T) {
	task := essayDraft()
	period := time.Minute

	cases := []struct {
		name        string
		windowStart time.Time
		interval    string
		notifType   models.NotificationType
	}{
		{"three days out", time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC), "3_days", models.NotificationTaskReminder},
		{"one day out", time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC), "1_day", models.NotificationTaskReminder},
		{"two hours out", time.Date(2025, 3, 10, 21, 59, 0, 0, time.UTC), "2_hours", models.NotificationTaskDueSoon},
		{"day overdue", time.Date(2025, 3, 11, 23, 59, 0, 0, time.UTC), "overdue", models.NotificationTaskOverdue},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			candidates := Evaluate(task, tc.windowStart, period, nil)
			require.Len(t, candidates, 1)
			assert.Equal(t, tc.interval, candidates[0].Dedup.ReminderInterval)
			assert.Equal(t, tc.notifType, candidates[0].Type)
			assert.Equal(t, "task-1", candidates[0].Dedup.TaskID)
			assert.Equal(t, task.DueInstant(), candidates[0].DueAt)
		})
	}
}

func TestEvaluateQuietBetweenWindows(t *testing.T) {
	task := essayDraft()

	// One minute after the 3_days window has passed.
	candidates := Evaluate(task, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), time.Minute, nil)
	assert.Empty(t, candidates)
}

func TestEvaluateWindowBoundaries(t *testing.T) {
	task := essayDraft()
	target := time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC) // due - 24h

	// Target exactly at window start is claimed.
	assert.Len(t, Evaluate(task, target, time.Minute, nil), 1)

	// Target exactly at window end belongs to the next tick.
	assert.Empty(t, Evaluate(task, target.Add(-time.Minute), time.Minute, nil))
}

func TestEvaluateSkipsCompletedAndUndated(t *testing.T) {
	done := essayDraft()
	done.Status = models.TaskStatusCompleted
	assert.Empty(t, Evaluate(done, time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC), time.Minute, nil))

	undated := essayDraft()
	undated.DueDate = time.Time{}
	assert.Empty(t, Evaluate(undated, time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC), time.Minute, nil))
}

func TestEvaluateSweepFiresEachRuleExactlyOnce(t *testing.T) {
	task := essayDraft()
	dueAt := task.DueInstant()
	period := 15 * time.Minute

	// Contiguous tick windows from four days before the deadline to two
	// days after, recording minted keys the way the scheduler would.
	existing := map[string]struct{}{}
	fired := map[string]int{}
	for ws := dueAt.Add(-96 * time.Hour); ws.Before(dueAt.Add(48 * time.Hour)); ws = ws.Add(period) {
		for _, candidate := range Evaluate(task, ws, period, existing) {
			fired[candidate.Rule.Interval]++
			key := models.BuildDedupKey(task.ID, candidate.Type, candidate.Rule.Interval, candidate.DueAt)
			existing[key] = struct{}{}
		}
	}

	want := map[string]int{"3_days": 1, "1_day": 1, "2_hours": 1, "overdue": 1}
	assert.Equal(t, want, fired)
}

func TestEvaluateSkipsRecordedOccurrences(t *testing.T) {
	task := essayDraft()
	dueAt := task.DueInstant()
	windowStart := time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)

	existing := map[string]struct{}{
		models.BuildDedupKey(task.ID, models.NotificationTaskReminder, "1_day", dueAt): {},
	}
	assert.Empty(t, Evaluate(task, windowStart, time.Minute, existing))

	// Other recorded intervals do not block this one.
	existing = map[string]struct{}{
		models.BuildDedupKey(task.ID, models.NotificationTaskReminder, "3_days", dueAt): {},
	}
	assert.Len(t, Evaluate(task, windowStart, time.Minute, existing), 1)

	// A key minted for a superseded due date does not block the current one.
	existing = map[string]struct{}{
		models.BuildDedupKey(task.ID, models.NotificationTaskReminder, "1_day", dueAt.Add(-48*time.Hour)): {},
	}
	assert.Len(t, Evaluate(task, windowStart, time.Minute, existing), 1)
}

func TestEvaluateExamSubstitution(t *testing.T) {
	exam := essayDraft()
	exam.Title = "Calculus Midterm"
	exam.Type = models.TaskTypeExam

	dayOut := Evaluate(exam, time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC), time.Minute, nil)
	require.Len(t, dayOut, 1)
	assert.Equal(t, models.NotificationExamReminder, dayOut[0].Type)
	assert.Equal(t, "Exam Coming Up", dayOut[0].Title)
	assert.Contains(t, dayOut[0].Message, "tomorrow")

	// The short-fuse rule keeps its urgency type even for exams.
	soon := Evaluate(exam, time.Date(2025, 3, 10, 21, 59, 0, 0, time.UTC), time.Minute, nil)
	require.Len(t, soon, 1)
	assert.Equal(t, models.NotificationTaskDueSoon, soon[0].Type)
}

func TestEvaluatePriority(t *testing.T) {
	task := essayDraft()
	task.Priority = models.PriorityHigh

	candidates := Evaluate(task, time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC), time.Minute, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.PriorityHigh, candidates[0].Priority)

	task.Priority = models.PriorityLow
	candidates = Evaluate(task, time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC), time.Minute, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.PriorityMedium, candidates[0].Priority)

	// The last-call rule always escalates.
	candidates = Evaluate(task, time.Date(2025, 3, 10, 21, 59, 0, 0, time.UTC), time.Minute, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, models.PriorityHigh, candidates[0].Priority)
}

func TestFetchWindowCoversAllRules(t *testing.T) {
	windowStart := time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)
	from, to := FetchWindow(windowStart, time.Minute)

	assert.Equal(t, windowStart.Add(-24*time.Hour), from)
	assert.Equal(t, windowStart.Add(time.Minute).Add(72*time.Hour), to)
}
