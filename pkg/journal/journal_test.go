package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/reconcile"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.journal")

	w, err := Open(path)
	require.NoError(t, err)

	seq, err := w.Append(
		Record{RunID: "r1", Op: OpRun, Detail: "in.xml", Timestamp: testTime},
		Record{RunID: "r1", Op: OpInsert, Kind: "block", Key: "A1.body", Timestamp: testTime},
		Record{RunID: "r1", Op: OpAllocate, Kind: "block", SystemName: "IB7", Timestamp: testTime},
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq)
	assert.Equal(t, uint64(3), w.Stats().Records)
	assert.Greater(t, w.Stats().BytesRaw, uint64(0))
	require.NoError(t, w.Close())

	entries, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, OpRun, entries[0].Op)
	assert.Equal(t, "in.xml", entries[0].Record.Detail)

	assert.Equal(t, OpInsert, entries[1].Op)
	assert.Equal(t, "A1.body", entries[1].Record.Key)
	assert.Equal(t, "block", entries[1].Record.Kind)

	assert.Equal(t, "IB7", entries[2].Record.SystemName)
	assert.True(t, testTime.Equal(entries[2].Record.Timestamp))
	assert.Equal(t, testTime.Unix(), entries[2].Timestamp.Unix())
}

func TestOpenContinuesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.journal")

	for run := 0; run < 2; run++ {
		w, err := Open(path)
		require.NoError(t, err)
		_, err = w.Append(
			Record{RunID: "r", Op: OpUpdate, Key: "a", Timestamp: testTime},
			Record{RunID: "r", Op: OpUpdate, Key: "b", Timestamp: testTime},
		)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), w.Stats().Records)
		require.NoError(t, w.Close())
	}

	var seqs []uint64
	require.NoError(t, Replay(path, func(e *Entry) error {
		seqs = append(seqs, e.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 3, 4}, seqs)
}

func TestReadAll_Missing(t *testing.T) {
	entries, err := ReadAll(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadAll_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.journal")
	w, err := Open(path)
	require.NoError(t, err)
	_, err = w.Append(Record{RunID: "r", Op: OpInsert, Key: "x", Timestamp: testTime})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[14] ^= 0xff
	require.NoError(t, os.WriteFile(path, flipped, 0644))
	_, err = ReadAll(path)
	require.Error(t, err)
	assert.True(t, faults.IsFormat(err))
	assert.Contains(t, err.Error(), "checksum mismatch")

	require.NoError(t, os.WriteFile(path, data[:len(data)-3], 0644))
	_, err = ReadAll(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestFromResult(t *testing.T) {
	res := &reconcile.Result{
		Kind:       entity.KindSystemBlock,
		Inserted:   []string{"A1"},
		Updated:    []string{"B2"},
		Unchanged:  []string{"C3"},
		Undesired:  []string{"old", "gone"},
		Purged:     []string{"gone"},
		Duplicates: []string{"B2"},
		Allocated:  []string{"IB9"},
	}

	recs := FromResult("run-1", res, testTime)
	require.Len(t, recs, 6)

	var ops []Op
	for _, r := range recs {
		ops = append(ops, r.Op)
		assert.Equal(t, "run-1", r.RunID)
		assert.Equal(t, entity.KindSystemBlock.String(), r.Kind)
	}
	assert.Equal(t, []Op{OpDuplicate, OpInsert, OpUpdate, OpAllocate, OpUndesired, OpPurge}, ops)
	assert.Equal(t, "IB9", recs[3].SystemName)
	assert.Empty(t, recs[3].Key)
	assert.Equal(t, "gone", recs[5].Key)

	assert.Nil(t, FromResult("run-1", nil, testTime))
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "purge", OpPurge.String())
	assert.Equal(t, "op(99)", Op(99).String())
}
