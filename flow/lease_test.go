package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeases_SecondHolderRejected(t *testing.T) {
	l := NewLeases()

	require.NoError(t, l.Acquire("RT-1", "alice"))
	err := l.Acquire("RT-1", "bob")
	require.ErrorIs(t, err, ErrRuntimeBusy)

	holder, ok := l.Holder("RT-1")
	require.True(t, ok)
	assert.Equal(t, "alice", holder)
}

func TestLeases_ReacquireBySameHolder(t *testing.T) {
	l := NewLeases()

	require.NoError(t, l.Acquire("RT-1", "alice"))
	require.NoError(t, l.Acquire("RT-1", "alice"))
}

func TestLeases_ReleaseFreesRuntime(t *testing.T) {
	l := NewLeases()

	require.NoError(t, l.Acquire("RT-1", "alice"))
	l.Release("RT-1", "alice")

	_, ok := l.Holder("RT-1")
	assert.False(t, ok)
	require.NoError(t, l.Acquire("RT-1", "bob"))
}

func TestLeases_ReleaseByNonHolderIgnored(t *testing.T) {
	l := NewLeases()

	require.NoError(t, l.Acquire("RT-1", "alice"))
	l.Release("RT-1", "bob")

	holder, ok := l.Holder("RT-1")
	require.True(t, ok)
	assert.Equal(t, "alice", holder)
}

func TestLeases_IndependentRuntimes(t *testing.T) {
	l := NewLeases()

	require.NoError(t, l.Acquire("RT-1", "alice"))
	require.NoError(t, l.Acquire("RT-2", "bob"))
}
