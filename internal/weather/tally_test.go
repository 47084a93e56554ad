package weather

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTally(t *testing.T) {
	tl := NewTally()
	_, ok := tl.Winner()
	require.False(t, ok)

	for _, k := range []string{"b", "a", "a", "b", "c"} {
		tl.Add(k)
	}
	require.Equal(t, []string{"b", "a", "c"}, tl.order)

	winner, ok := tl.Winner()
	require.True(t, ok)
	require.Equal(t, "b", winner)

	tl.Add("c")
	tl.Add("c")
	winner, _ = tl.Winner()
	require.Equal(t, "c", winner)
}
