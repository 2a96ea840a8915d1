package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_SingleRecordsPassThrough(t *testing.T) {
	a := record("36691_2#7", QCPass, &t1)
	b := record("36691_2#8", QCFail, &t1)

	out, collisions := Resolve([]Record{b, a})
	assert.Empty(t, collisions)
	require.Len(t, out, 2)
	assert.Equal(t, "36691_2#7", out[0].NameRoot)
	assert.Equal(t, "36691_2#8", out[1].NameRoot)
}

func TestResolve_LatestQCDateWins(t *testing.T) {
	older := record("36691_2#7", QCFail, &t1)
	older.Seq = 0
	newer := record("36691_2#7", QCPass, &t2)
	newer.Seq = 1

	out, collisions := Resolve([]Record{older, newer})
	require.Len(t, out, 1)
	assert.Equal(t, QCPass, out[0].LimsQC)
	assert.Equal(t, 1, out[0].Seq)

	require.Len(t, collisions, 1)
	assert.Equal(t, Key{Platform: PlatformShortRead, NameRoot: "36691_2#7"}, collisions[0].Key)
	assert.Equal(t, 1, collisions[0].Kept)
	assert.Equal(t, 0, collisions[0].Dropped)
	assert.Equal(t, "newer qc_date", collisions[0].Reason)
}

func TestResolve_NullQCDateLoses(t *testing.T) {
	undated := record("x", QCUnknown, nil)
	undated.Seq = 0
	dated := record("x", QCPass, &t0)
	dated.Seq = 5

	out, _ := Resolve([]Record{undated, dated})
	require.Len(t, out, 1)
	assert.Equal(t, 5, out[0].Seq)
}

func TestResolve_TieBreaks(t *testing.T) {
	t.Run("more populated fields", func(t *testing.T) {
		sparse := record("x", QCPass, &t1)
		sparse.Seq = 0
		rich := record("x", QCPass, &t1)
		rich.Seq = 1
		rich.LibraryID = ptr("DN123456")
		rich.InstrumentModel = ptr("NovaSeq")

		out, collisions := Resolve([]Record{sparse, rich})
		require.Len(t, out, 1)
		assert.Equal(t, 1, out[0].Seq)
		require.Len(t, collisions, 1)
		assert.Equal(t, "more populated fields", collisions[0].Reason)
	})

	t.Run("earliest extraction", func(t *testing.T) {
		var recs []Record
		for i := 3; i >= 0; i-- {
			r := record("x", QCPass, &t1)
			r.Seq = i
			recs = append(recs, r)
		}

		out, collisions := Resolve(recs)
		require.Len(t, out, 1)
		assert.Equal(t, 0, out[0].Seq)
		require.Len(t, collisions, 3)
		for i, c := range collisions {
			assert.Equal(t, i+1, c.Dropped)
			assert.Equal(t, "earlier extraction", c.Reason)
		}
	})
}

func TestResolve_KeysArePerPlatform(t *testing.T) {
	a := record("m64097e_210221_172213", QCPass, &t1)
	b := a
	b.Platform = PlatformLongReadContinuous

	out, collisions := Resolve([]Record{a, b})
	assert.Len(t, out, 2)
	assert.Empty(t, collisions)
}
