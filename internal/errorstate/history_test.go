package errorstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_BelowCapacity(t *testing.T) {
	h := NewHistory(3)
	h.Add(HistoryEntry{Code: GeneralException})
	h.Add(HistoryEntry{Code: TypeMismatch})

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, GeneralException, entries[0].Code)
	assert.Equal(t, TypeMismatch, entries[1].Code)
}

func TestHistory_OverwritesOldest(t *testing.T) {
	h := NewHistory(3)
	for _, c := range []Code{101, 201, 301, 401, 402} {
		h.Add(HistoryEntry{Code: c})
	}

	assert.Equal(t, 3, h.Len())
	entries := h.Entries()
	assert.Equal(t, []Code{301, 401, 402}, []Code{entries[0].Code, entries[1].Code, entries[2].Code})
}

func TestHistory_ErrorStateCapacity(t *testing.T) {
	s := New()
	for i := 0; i < DefaultHistoryCapacity+25; i++ {
		s.SetError(GeneralException, "", "loop")
	}
	assert.Len(t, s.History(), DefaultHistoryCapacity)
}

func TestHistory_MinimumCapacity(t *testing.T) {
	h := NewHistory(0)
	h.Add(HistoryEntry{Code: 101})
	h.Add(HistoryEntry{Code: 102})
	entries := h.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, Code(102), entries[0].Code)
}
