package eventlog

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"custodychain/core/types"
)

func openTestJournal(t *testing.T, path string) *Journal {
	t.Helper()
	j, err := Open(path, nil)
	require.NoError(t, err)
	return j
}

func TestJournalAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	j := openTestJournal(t, path)

	_, found, err := j.LastHeight()
	require.NoError(t, err)
	require.False(t, found)

	records, err := j.Append(3, []types.Event{
		{Type: "custody.contract.created", Attributes: map[string]string{"trustor": "a"}},
		{Type: "custody.pinged", Attributes: map[string]string{"trustor": "a", "executionBlock": "13"}},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		_, err := uuid.Parse(rec.ID)
		require.NoError(t, err)
		require.Equal(t, uint64(3), rec.Height)
	}
	_, err = j.Append(9, []types.Event{{Type: "custody.contract.deleted"}})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j = openTestJournal(t, path)
	defer j.Close()

	replayed, err := j.ByHeight(3)
	require.NoError(t, err)
	require.Equal(t, records, replayed)

	empty, err := j.ByHeight(4)
	require.NoError(t, err)
	require.Empty(t, empty)

	last, found, err := j.LastHeight()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(9), last)
}

func TestJournalClosed(t *testing.T) {
	j := openTestJournal(t, filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, j.Close())
	_, err := j.Append(1, []types.Event{{Type: "x"}})
	require.ErrorIs(t, err, ErrClosed)
	_, err = j.ByHeight(1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestJournalDropHeight(t *testing.T) {
	j := openTestJournal(t, filepath.Join(t.TempDir(), "events.db"))
	defer j.Close()

	_, err := j.Append(4, []types.Event{{Type: "custody.pinged"}})
	require.NoError(t, err)
	_, err = j.Append(5, []types.Event{{Type: "custody.contract.deleted"}})
	require.NoError(t, err)

	require.NoError(t, j.DropHeight(5))
	require.NoError(t, j.DropHeight(42))

	dropped, err := j.ByHeight(5)
	require.NoError(t, err)
	require.Empty(t, dropped)
	kept, err := j.ByHeight(4)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	last, found, err := j.LastHeight()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(4), last)

	require.NoError(t, j.Close())
	require.ErrorIs(t, j.DropHeight(4), ErrClosed)
}
