package job

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	t.Parallel()

	valid := [][2]State{
		{StateIdle, StateLoading},
		{StateLoading, StateRunning},
		{StateLoading, StateFailed},
		{StateRunning, StateCompleted},
		{StateRunning, StateFailed},
		{StateCompleted, StateIdle},
		{StateFailed, StateIdle},
	}
	for _, edge := range valid {
		require.True(t, isValidTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	invalid := [][2]State{
		{StateIdle, StateRunning},
		{StateLoading, StateCompleted},
		{StateCompleted, StateLoading},
		{StateRunning, StateIdle},
		{State("bogus"), StateIdle},
	}
	for _, edge := range invalid {
		require.False(t, isValidTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}
}

func TestPhaseLabels(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Loading model", StateLoading.Phase())
	require.Equal(t, "Transcribing audio...", StateRunning.Phase())
	require.Empty(t, StateIdle.Phase())
	require.True(t, StateFailed.Terminal())
	require.False(t, StateRunning.Terminal())
}
