// Package splitter cuts the mark ranges a query has to read into a bounded
// number of balanced segments that can be scanned in parallel.
//
// Segments are filled greedily in input order. Every segment but the last
// one holds exactly the target size, a range that crosses a segment boundary
// is split in two and the tail opens the next segment. Nothing is reordered
// or merged, so concatenating the segments gives back the input.
package splitter

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/hashicorp/go-multierror"

	"github.com/danthegoodman1/marksplit/part"
)

var (
	ErrInvalidParameters = errors.New("invalid segmentation parameters")
)

type (
	Options struct {
		// ParallelReplicaOffset is the first PartIndexInQuery handed out, see ScopeForReplica
		ParallelReplicaOffset uint64
		// Granularity is rows per mark, only used to report sizes in rows
		Granularity      uint64
		MinSegmentSize   uint64
		MaxSegmentsCount uint64
	}

	Stats struct {
		TotalMarks    uint64 `json:"total_marks"`
		TotalRows     uint64 `json:"total_rows"`
		TargetSize    uint64 `json:"target_size"`
		SegmentsCount uint64 `json:"segments_count"`
	}

	Splitter struct {
		input []part.PartRanges
		opts  Options

		totalMarks    uint64
		targetSize    uint64
		segmentsCount uint64
	}
)

// New checks the options and the input, it never modifies the input.
func New(input []part.PartRanges, opts Options) (*Splitter, error) {
	if err := validate(input, opts); err != nil {
		return nil, err
	}

	s := &Splitter{
		input:      input,
		opts:       opts,
		totalMarks: part.TotalMarks(input),
	}
	if s.totalMarks > 0 {
		s.targetSize = max(opts.MinSegmentSize, ceilDiv(s.totalMarks, opts.MaxSegmentsCount))
		s.segmentsCount = min(ceilDiv(s.totalMarks, s.targetSize), opts.MaxSegmentsCount)
	}
	return s, nil
}

func validate(input []part.PartRanges, opts Options) error {
	var result *multierror.Error
	if opts.MaxSegmentsCount == 0 {
		result = multierror.Append(result, errors.New("max segments count must be positive"))
	}
	if opts.Granularity == 0 {
		result = multierror.Append(result, errors.New("granularity must be positive"))
	}

	var total uint64
	// A part may show up in several entries, its ranges have to ascend across all of them
	lastRange := make(map[part.PartRef]part.MarkRange, len(input))
	for i, pr := range input {
		for j, r := range pr.Ranges {
			if r.Begin >= r.End {
				result = multierror.Append(result, fmt.Errorf("part %q (input %d): range %d %s is empty", pr.Part.ID, i, j, r))
				continue
			}
			if prev, seen := lastRange[pr.Part]; seen && r.Begin < prev.End {
				result = multierror.Append(result, fmt.Errorf("part %q (input %d): range %d %s overlaps or precedes %s", pr.Part.ID, i, j, r, prev))
			}
			lastRange[pr.Part] = r
			if total > math.MaxUint64-r.Size() {
				result = multierror.Append(result, errors.New("total marks overflow"))
				return fmt.Errorf("%w: %w", ErrInvalidParameters, result)
			}
			total += r.Size()
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}
	return nil
}

func (s *Splitter) Stats() Stats {
	return Stats{
		TotalMarks:    s.totalMarks,
		TotalRows:     totalRows(s.totalMarks, s.opts.Granularity),
		TargetSize:    s.targetSize,
		SegmentsCount: s.segmentsCount,
	}
}

// Perform builds the segments in a single pass over the input. It can be
// called any number of times and always returns the same boundaries.
func (s *Splitter) Perform() part.Segments {
	if s.totalMarks == 0 {
		return part.Segments{}
	}

	acc := state{
		closed:      make(part.Segments, 0, s.segmentsCount),
		source:      -1,
		nextOrdinal: s.opts.ParallelReplicaOffset,
	}
	for i, pr := range s.input {
		for _, r := range pr.Ranges {
			acc = s.emitRange(acc, i, pr.Part, r)
		}
	}
	return acc.finish()
}

// budget is how many more marks the current segment accepts, the last
// segment accepts everything that is left.
func (s *Splitter) budget(acc state) uint64 {
	if uint64(len(acc.closed)) >= s.segmentsCount-1 {
		return math.MaxUint64
	}
	return s.targetSize - acc.filled
}

// emitRange places r into the current segment, splitting it over as many
// segments as needed. A segment that becomes exactly full is closed right
// away, so the next range always starts a fresh segment instead of leaving
// an empty remainder behind.
func (s *Splitter) emitRange(acc state, source int, ref part.PartRef, r part.MarkRange) state {
	for r.Begin < r.End {
		take := min(r.Size(), s.budget(acc))
		acc = acc.appendRange(source, ref, part.MarkRange{Begin: r.Begin, End: r.Begin + take})
		r.Begin += take

		if s.budget(acc) == 0 {
			acc = acc.switchToNextSegment()
		}
	}
	return acc
}

// totalRows saturates at math.MaxUint64 instead of wrapping
func totalRows(marks, granularity uint64) uint64 {
	hi, lo := bits.Mul64(marks, granularity)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func ceilDiv(a, b uint64) uint64 {
	if a == 0 {
		return 0
	}
	return (a-1)/b + 1
}
