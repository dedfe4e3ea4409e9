package checksum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoryRemembersAndReports(t *testing.T) {
	h := NewHistory(4)
	_, seen := h.Seen("abc")
	require.False(t, seen)

	h.Remember("abc", "run-1")
	runID, seen := h.Seen("abc")
	require.True(t, seen)
	require.Equal(t, "run-1", runID)
}

func TestHistoryUpdatesRunForKnownHash(t *testing.T) {
	h := NewHistory(4)
	h.Remember("abc", "run-1")
	h.Remember("abc", "run-2")

	runID, seen := h.Seen("abc")
	require.True(t, seen)
	require.Equal(t, "run-2", runID)
	require.Equal(t, 1, h.Len())
}

func TestHistoryEvictsOldestPastCapacity(t *testing.T) {
	h := NewHistory(2)
	h.Remember("h1", "run-1")
	h.Remember("h2", "run-2")
	h.Remember("h3", "run-3")

	_, seen := h.Seen("h1")
	require.False(t, seen)
	_, seen = h.Seen("h2")
	require.True(t, seen)
	_, seen = h.Seen("h3")
	require.True(t, seen)
	require.Equal(t, 2, h.Len())
}

func TestHistoryIgnoresEmptyHash(t *testing.T) {
	h := NewHistory(2)
	h.Remember("", "run-1")
	require.Equal(t, 0, h.Len())
}
