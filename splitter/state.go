package splitter

import "github.com/danthegoodman1/marksplit/part"

// state is the accumulator threaded through the scan. Only the entries of
// current are ever appended to, closed segments are not touched again.
type state struct {
	closed  part.Segments
	current part.Segment
	filled  uint64

	// source is the input position the last entry of current was built from
	source      int
	nextOrdinal uint64
}

// appendRange adds r to the current segment. Ranges coming from the same
// input entry share one output entry, anything else opens a new one.
func (acc state) appendRange(source int, ref part.PartRef, r part.MarkRange) state {
	if len(acc.current) == 0 || acc.source != source {
		acc.current = append(acc.current, part.PartRanges{
			Part:             ref,
			PartIndexInQuery: acc.nextOrdinal,
		})
		acc.nextOrdinal++
		acc.source = source
	}

	last := &acc.current[len(acc.current)-1]
	last.Ranges = append(last.Ranges, r)
	acc.filled += r.Size()
	return acc
}

func (acc state) switchToNextSegment() state {
	if len(acc.current) == 0 {
		return acc
	}
	acc.closed = append(acc.closed, acc.current)
	acc.current = nil
	acc.filled = 0
	acc.source = -1
	return acc
}

func (acc state) finish() part.Segments {
	return acc.switchToNextSegment().closed
}
