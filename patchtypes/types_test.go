package patchtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlan_Filters(t *testing.T) {
	plan := &Plan{
		Actions: []Action{
			{Type: ActionFetch, Path: "a.txt", Reason: ReasonMissing},
			{Type: ActionNoOp, Path: "b.txt", Reason: ReasonUnchanged},
			{Type: ActionFetch, Path: "c.txt", Reason: ReasonModified},
			{Type: ActionDelete, Path: "arena.eqg", Reason: ReasonDeprecated},
		},
		Stats: PlanStats{Fetches: 2, Deletes: 1, NoOps: 1},
	}

	fetches := plan.Fetches()
	assert.Len(t, fetches, 2)
	assert.Equal(t, "a.txt", fetches[0].Path)
	assert.Equal(t, "c.txt", fetches[1].Path)

	deletes := plan.Deletes()
	assert.Len(t, deletes, 1)
	assert.Equal(t, "arena.eqg", deletes[0].Path)

	assert.False(t, plan.IsEmpty())
	assert.True(t, (&Plan{Stats: PlanStats{NoOps: 3}}).IsEmpty())
}

func TestProgress_Fraction(t *testing.T) {
	assert.Equal(t, 1.0, Progress{}.Fraction())
	assert.Equal(t, 0.5, Progress{Index: 1, Total: 2}.Fraction())
}

func TestOutcome_OK(t *testing.T) {
	assert.True(t, (&Outcome{Status: StatusCompleted}).OK())
	assert.False(t, (&Outcome{Status: StatusCompleted, FilesWarned: []string{"a"}}).OK())
	assert.False(t, (&Outcome{Status: StatusCompleted, FilesFailed: []string{"a"}}).OK())
	assert.False(t, (&Outcome{Status: StatusCancelled}).OK())
}
