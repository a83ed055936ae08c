package syncstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpdate struct {
	rts uint64
}

func newBookish() (*Synchronizer[fakeUpdate], *[]uint64) {
	var applied []uint64
	s := New(
		func(u fakeUpdate) uint64 { return u.rts },
		func(sp uint64, u fakeUpdate) bool { return u.rts > sp },
		func(u fakeUpdate) error { applied = append(applied, u.rts); return nil },
		func(snap fakeUpdate) (uint64, error) { return snap.rts, nil },
	)
	return s, &applied
}

// TestSynchronizerRace is scenario S2 from spec.md §8.
func TestSynchronizerRace(t *testing.T) {
	t.Parallel()
	s, applied := newBookish()

	for _, rts := range []uint64{5, 6, 7, 8} {
		require.NoError(t, s.SubmitStream(fakeUpdate{rts: rts}))
	}
	assert.True(t, s.IsBuffering())

	require.NoError(t, s.SubmitSnapshot(fakeUpdate{rts: 6}))

	assert.Equal(t, []uint64{7, 8}, *applied)
	assert.GreaterOrEqual(t, s.Syncpoint(), uint64(8))
	assert.False(t, s.IsBuffering())
}

func TestSnapshotBeforeAnyStreamDelta(t *testing.T) {
	t.Parallel()
	s, applied := newBookish()
	require.NoError(t, s.SubmitSnapshot(fakeUpdate{rts: 1}))
	assert.Empty(t, *applied)
	require.NoError(t, s.SubmitStream(fakeUpdate{rts: 2}))
	assert.Equal(t, []uint64{2}, *applied)
}

func TestMultipleSnapshotsMostRecentWins(t *testing.T) {
	t.Parallel()
	s, applied := newBookish()
	require.NoError(t, s.SubmitSnapshot(fakeUpdate{rts: 5}))
	require.NoError(t, s.SubmitStream(fakeUpdate{rts: 6}))
	require.NoError(t, s.SubmitSnapshot(fakeUpdate{rts: 20})) // reconnect, fresh snapshot
	require.NoError(t, s.SubmitStream(fakeUpdate{rts: 21}))
	assert.Equal(t, []uint64{6, 21}, *applied)
	assert.Equal(t, uint64(21), s.Syncpoint())
}

// TestGapOnBinance is scenario S6 from spec.md §8.
func TestGapOnBinance(t *testing.T) {
	t.Parallel()
	s, applied := newBookish()
	s.RequireDenseSequencing = true

	for _, rts := range []uint64{98, 99, 101, 102} {
		require.NoError(t, s.SubmitStream(fakeUpdate{rts: rts}))
	}
	require.NoError(t, s.SubmitSnapshot(fakeUpdate{rts: 100}))
	assert.Equal(t, []uint64{101, 102}, *applied)
}

func TestGapDetectedWhenDenseSequencingRequired(t *testing.T) {
	t.Parallel()
	s, _ := newBookish()
	s.RequireDenseSequencing = true
	require.NoError(t, s.SubmitSnapshot(fakeUpdate{rts: 10}))
	err := s.SubmitStream(fakeUpdate{rts: 13}) // gap: expected 11
	assert.ErrorIs(t, err, ErrGapDetected)
}

// TestReplaySetEquality covers invariant 6 from spec.md §8: after replay,
// the set of deltas applied to the book equals S ∪ {u ∈ U : rts(u) >
// rts(S)} in arrival order (S first, then U by arrival).
func TestReplaySetEquality(t *testing.T) {
	t.Parallel()
	s, applied := newBookish()
	for _, rts := range []uint64{1, 2, 3, 4, 5} {
		require.NoError(t, s.SubmitStream(fakeUpdate{rts: rts}))
	}
	require.NoError(t, s.SubmitSnapshot(fakeUpdate{rts: 3}))
	assert.Equal(t, []uint64{4, 5}, *applied)
}
