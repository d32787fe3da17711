package part

import (
	"fmt"
	"time"
)

type (
	// MarkRange is the half-open interval [Begin, End) of mark indexes within one part
	MarkRange struct {
		Begin uint64 `json:"begin"`
		End   uint64 `json:"end"`
	}

	// PartRef identifies a part well enough to re-emit it downstream without looking it up again
	PartRef struct {
		ID string `json:"id"`
		// Index is the position of the part in the query's part list
		Index int `json:"index"`
	}

	// PartRanges are the ordered, non-overlapping mark ranges selected within one part
	PartRanges struct {
		Part PartRef `json:"part"`
		// PartIndexInQuery only keeps output ordering deterministic, never use it for lookups
		PartIndexInQuery uint64      `json:"part_index_in_query"`
		Ranges           []MarkRange `json:"ranges"`
	}

	// Segment is one independently schedulable unit of scan work
	Segment []PartRanges

	Segments []Segment

	Part struct {
		ID        string    `json:"id"`
		Table     string    `json:"table"`
		Partition string    `json:"partition"`
		Alive     bool      `json:"alive"`
		CreatedAt time.Time `json:"created_at"`
		RowCount  int64     `json:"row_count"`
		// Marks is the number of granules in the part, the last one may be partial
		Marks uint64 `json:"marks"`
	}
)

func (r MarkRange) Size() uint64 {
	return r.End - r.Begin
}

func (r MarkRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Begin, r.End)
}

// Marks is the number of marks covered by all the ranges
func (pr PartRanges) Marks() (total uint64) {
	for _, r := range pr.Ranges {
		total += r.Size()
	}
	return
}

func (s Segment) Marks() (total uint64) {
	for _, pr := range s {
		total += pr.Marks()
	}
	return
}

func (s Segments) Marks() (total uint64) {
	for _, seg := range s {
		total += seg.Marks()
	}
	return
}

// TotalMarks sums the marks of a whole input
func TotalMarks(input []PartRanges) (total uint64) {
	for _, pr := range input {
		total += pr.Marks()
	}
	return
}

// FullRange covers every mark of the part
func (p Part) FullRange() MarkRange {
	return MarkRange{Begin: 0, End: p.Marks}
}

// MarksForRows returns how many marks are needed to hold rows, the last mark may be partial
func MarksForRows(rows int64, granularity uint64) uint64 {
	if rows <= 0 || granularity == 0 {
		return 0
	}
	return (uint64(rows)-1)/granularity + 1
}

// FullScan selects every mark of every part, in the given order.
// Parts without marks are skipped since they have nothing to scan.
func FullScan(parts []Part) []PartRanges {
	input := make([]PartRanges, 0, len(parts))
	for i, p := range parts {
		if p.Marks == 0 {
			continue
		}
		input = append(input, PartRanges{
			Part:             PartRef{ID: p.ID, Index: i},
			PartIndexInQuery: uint64(len(input)),
			Ranges:           []MarkRange{p.FullRange()},
		})
	}
	return input
}
