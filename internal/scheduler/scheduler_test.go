package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(quietLogger())
	err := s.Add(JobAutoPayout, "not a spec", func(context.Context) (int, error) { return 0, nil })
	assert.Error(t, err)
	assert.Empty(t, s.Status())
}

func TestRunNow(t *testing.T) {
	s := New(quietLogger())
	calls := 0
	require.NoError(t, s.Add(JobDueReminder, "0 0 9 * * *", func(ctx context.Context) (int, error) {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 4, nil
	}))

	n, err := s.RunNow(JobDueReminder)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, calls)

	_, err = s.RunNow("nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRunNowPropagatesFailure(t *testing.T) {
	s := New(quietLogger())
	boom := errors.New("boom")
	require.NoError(t, s.Add(JobAutoPayout, "0 30 1 * * *", func(context.Context) (int, error) { return 0, boom }))

	_, err := s.RunNow(JobAutoPayout)
	assert.ErrorIs(t, err, boom)
}

func TestStatusListsNextRun(t *testing.T) {
	s := New(quietLogger())
	require.NoError(t, s.Add(JobAutoPayout, "0 30 1 * * *", func(context.Context) (int, error) { return 0, nil }))
	s.Start()
	defer s.Stop()

	st := s.Status()
	require.Len(t, st, 1)
	assert.Equal(t, JobAutoPayout, st[0].Name)
	assert.Equal(t, "0 30 1 * * *", st[0].Spec)
	assert.False(t, st[0].NextRun.IsZero())
}
