package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func TestCostEntries_PendingDecisions(t *testing.T) {
	for _, to := range []Status{StatusApproved, StatusRejected} {
		next, err := CostEntries.Apply(NewPending(at), to, "appr-1", nil, at)
		require.NoError(t, err)
		assert.Equal(t, to, next.Status)
		require.NotNil(t, next.DecidedBy)
		assert.Equal(t, "appr-1", *next.DecidedBy)
		assert.Equal(t, at, *next.DecidedAt)
	}
}

func TestCostEntries_SecondDecisionIsIllegal(t *testing.T) {
	approved, err := CostEntries.Apply(NewPending(at), StatusApproved, "appr-1", nil, at)
	require.NoError(t, err)

	for _, to := range []Status{StatusApproved, StatusRejected, StatusCancelled, StatusPending} {
		same, err := CostEntries.Apply(approved, to, "appr-2", nil, at.Add(time.Hour))
		assert.ErrorIs(t, err, ErrIllegalTransition)
		assert.Equal(t, approved, same)

		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, StatusApproved, terr.From)
		assert.Equal(t, to, terr.To)
	}
}

func TestLeaves_CancelOnlyFromApproved(t *testing.T) {
	_, err := Leaves.Apply(NewPending(at), StatusCancelled, "a", nil, at)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	approved, err := Leaves.Apply(NewPending(at), StatusApproved, "a", nil, at)
	require.NoError(t, err)
	assert.True(t, Leaves.CanTransition(approved.Status, StatusCancelled))

	reason := "проект перенесен"
	cancelled, err := Leaves.Apply(approved, StatusCancelled, "a", &reason, at)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, reason, *cancelled.Comment)

	rejected, err := Leaves.Apply(NewPending(at), StatusRejected, "a", nil, at)
	require.NoError(t, err)
	_, err = Leaves.Apply(rejected, StatusCancelled, "a", nil, at)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)
	_, err = ParseStatus("done")
	assert.Error(t, err)
}
