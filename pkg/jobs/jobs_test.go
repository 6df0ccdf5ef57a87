package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupInBackground(t *testing.T) {
	noop := func(context.Context) error { return nil }

	s, err := SetupInBackground(time.Minute,
		Refresher{Name: "catalog", Run: noop},
		Refresher{Name: "playlist", Run: noop},
		Refresher{Name: "empty"},
	)
	require.NoError(t, err)
	assert.Len(t, s.Jobs(), 2)
	assert.False(t, s.IsRunning())
}

func TestRun_PassesDeadline(t *testing.T) {
	var sawDeadline bool
	run(Refresher{Name: "playlist", Run: func(ctx context.Context) error {
		_, sawDeadline = ctx.Deadline()
		return nil
	}})
	assert.True(t, sawDeadline)
}

func TestRun_SwallowsErrors(t *testing.T) {
	calls := 0
	assert.NotPanics(t, func() {
		run(Refresher{Name: "broken", Run: func(context.Context) error {
			calls++
			return errors.New("backend down")
		}})
	})
	assert.Equal(t, 1, calls)
}
