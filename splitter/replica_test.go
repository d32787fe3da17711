package splitter

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danthegoodman1/marksplit/part"
)

func TestScopeForReplica(t *testing.T) {
	input := []part.PartRanges{
		entry("a", 0, 0, ranges(0, 30)...),
		entry("b", 1, 1, ranges(0, 5)...),
	}

	first, offset, err := ScopeForReplica(input, 0, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset)
	require.Equal(t, []part.PartRanges{entry("a", 0, 0, ranges(0, 18)...)}, first)

	second, offset, err := ScopeForReplica(input, 1, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(18), offset)
	require.Equal(t, []part.PartRanges{
		entry("a", 0, 1, ranges(18, 30)...),
		entry("b", 1, 2, ranges(0, 5)...),
	}, second)
}

func TestScopeForReplicaWithLittleWork(t *testing.T) {
	input := []part.PartRanges{entry("a", 0, 0, ranges(0, 2)...)}

	want := []struct {
		scoped []part.PartRanges
		offset uint64
	}{
		{[]part.PartRanges{entry("a", 0, 0, ranges(0, 1)...)}, 0},
		{[]part.PartRanges{entry("a", 0, 1, ranges(1, 2)...)}, 1},
		{[]part.PartRanges{}, 2},
		{[]part.PartRanges{}, 2},
	}
	for i, w := range want {
		scoped, offset, err := ScopeForReplica(input, uint64(i), uint64(len(want)))
		require.NoError(t, err)
		require.Equal(t, w.scoped, scoped, "replica %d", i)
		require.Equal(t, w.offset, offset, "replica %d", i)
	}
}

func TestScopeForReplicaInvalid(t *testing.T) {
	input := []part.PartRanges{entry("a", 0, 0, ranges(0, 2)...)}

	_, _, err := ScopeForReplica(input, 0, 0)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, _, err = ScopeForReplica(input, 3, 3)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, _, err = ScopeForReplica([]part.PartRanges{entry("a", 0, 0, ranges(2, 1)...)}, 0, 3)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

// Every replica plans its own slice independently, together they have to
// cover the input exactly once and never reuse an ordinal.
func TestReplicasPartitionTheWork(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		input := randomInput(r)
		replicas := 1 + uint64(r.Intn(5))
		o := opts(uint64(r.Intn(10)), 1+uint64(r.Intn(4)))

		var (
			all      []part.PartRanges
			ordinals = map[uint64]struct{}{}
		)
		for i := uint64(0); i < replicas; i++ {
			scoped, offset, err := ScopeForReplica(input, i, replicas)
			require.NoError(t, err)
			require.Equal(t, part.TotalMarks(all), offset)

			ro := o
			ro.ParallelReplicaOffset = offset
			for _, seg := range mustSplit(t, scoped, ro) {
				for _, e := range seg {
					_, seen := ordinals[e.PartIndexInQuery]
					require.False(t, seen, "ordinal %d reused", e.PartIndexInQuery)
					ordinals[e.PartIndexInQuery] = struct{}{}
					require.GreaterOrEqual(t, e.PartIndexInQuery, offset)
					require.Less(t, e.PartIndexInQuery, offset+part.TotalMarks(scoped))
				}
				all = append(all, seg...)
			}
		}
		require.Equal(t, flatten(input), flatten(all))
	}
}
