package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	jnl, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { jnl.Close() })
	return jnl
}

func TestAppendAndRecent(t *testing.T) {
	jnl := openTestJournal(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, jnl.Append(&PassRecord{
			StartedAt:    time.Date(2026, 8, 29, 12, 0, i, 0, time.UTC),
			CreatedFiles: i,
		}))
	}

	records, err := jnl.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// 从新到旧
	assert.EqualValues(t, 3, records[0].Seq)
	assert.EqualValues(t, 2, records[1].Seq)
	assert.Equal(t, 2, records[0].CreatedFiles)
}

func TestRecentMoreThanStored(t *testing.T) {
	jnl := openTestJournal(t)
	require.NoError(t, jnl.Append(&PassRecord{Errors: 1}))

	records, err := jnl.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Errors)
}

func TestRecentNonPositiveLimit(t *testing.T) {
	jnl := openTestJournal(t)
	require.NoError(t, jnl.Append(&PassRecord{CreatedFiles: 1}))

	// 负数和零都只返回空结果，不允许崩溃
	records, err := jnl.Recent(-1)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = jnl.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordRoundTrip(t *testing.T) {
	jnl := openTestJournal(t)

	in := &PassRecord{
		StartedAt:    time.Date(2026, 8, 29, 8, 30, 0, 0, time.UTC),
		DurationMS:   1500,
		CreatedDirs:  1,
		CreatedFiles: 2,
		UpdatedFiles: 3,
		DeletedFiles: 4,
		DeletedDirs:  5,
		Errors:       6,
		BytesCopied:  7890,
	}
	require.NoError(t, jnl.Append(in))

	records, err := jnl.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	out := records[0]
	assert.EqualValues(t, 1, out.Seq)
	assert.True(t, in.StartedAt.Equal(out.StartedAt))
	assert.Equal(t, in.DurationMS, out.DurationMS)
	assert.Equal(t, in.BytesCopied, out.BytesCopied)
	assert.Equal(t, in.DeletedDirs, out.DeletedDirs)
}
