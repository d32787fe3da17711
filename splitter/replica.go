package splitter

import (
	"fmt"

	"github.com/danthegoodman1/marksplit/part"
)

// ScopeForReplica returns the slice of the global input that replica
// replicaIndex out of replicasCount should plan, and the offset to pass as
// Options.ParallelReplicaOffset when it does.
//
// The input is cut into replicasCount contiguous, disjoint slices of
// balanced size. The offset is the number of marks in the slices before this
// one. A replica never emits more entries than it has marks, so its
// PartIndexInQuery values stay inside [offset, offset+marks) and never collide
// with another replica's.
func ScopeForReplica(input []part.PartRanges, replicaIndex, replicasCount uint64) ([]part.PartRanges, uint64, error) {
	if replicasCount == 0 {
		return nil, 0, fmt.Errorf("%w: replicas count must be positive", ErrInvalidParameters)
	}
	if replicaIndex >= replicasCount {
		return nil, 0, fmt.Errorf("%w: replica index %d out of range for %d replicas", ErrInvalidParameters, replicaIndex, replicasCount)
	}

	s, err := New(input, Options{
		Granularity:      1,
		MinSegmentSize:   1,
		MaxSegmentsCount: replicasCount,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error in New: %w", err)
	}

	var offset uint64
	for i, seg := range s.Perform() {
		if uint64(i) == replicaIndex {
			return []part.PartRanges(seg), offset, nil
		}
		offset += seg.Marks()
	}

	// Less work than replicas, this one has nothing to do
	return []part.PartRanges{}, offset, nil
}
