package part

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarksForRows(t *testing.T) {
	tests := []struct {
		rows        int64
		granularity uint64
		want        uint64
	}{
		{0, 8192, 0},
		{-1, 8192, 0},
		{1, 8192, 1},
		{8192, 8192, 1},
		{8193, 8192, 2},
		{100, 0, 0},
		{100, 1, 100},
		{5, math.MaxUint64, 1},
		{math.MaxInt64, math.MaxUint64, 1},
		{math.MaxInt64, 1, math.MaxInt64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MarksForRows(tt.rows, tt.granularity), "rows=%d granularity=%d", tt.rows, tt.granularity)
	}
}

func TestFullScan(t *testing.T) {
	parts := []Part{
		{ID: "p1", Marks: 3},
		{ID: "empty"},
		{ID: "p2", Marks: 10},
	}
	got := FullScan(parts)
	assert.Equal(t, []PartRanges{
		{Part: PartRef{ID: "p1", Index: 0}, PartIndexInQuery: 0, Ranges: []MarkRange{{0, 3}}},
		{Part: PartRef{ID: "p2", Index: 2}, PartIndexInQuery: 1, Ranges: []MarkRange{{0, 10}}},
	}, got)
	assert.Equal(t, uint64(13), TotalMarks(got))
}

func TestFullScanKeepsPartsWithCoarseGranularity(t *testing.T) {
	got := FullScan([]Part{{ID: "p1", RowCount: 5, Marks: MarksForRows(5, math.MaxUint64)}})
	assert.Equal(t, []PartRanges{
		{Part: PartRef{ID: "p1", Index: 0}, PartIndexInQuery: 0, Ranges: []MarkRange{{0, 1}}},
	}, got)
}

func TestMarks(t *testing.T) {
	seg := Segment{
		{Ranges: []MarkRange{{0, 3}, {5, 9}}},
		{Ranges: []MarkRange{{1, 2}}},
	}
	assert.Equal(t, uint64(8), seg.Marks())
	assert.Equal(t, uint64(16), Segments{seg, seg}.Marks())
	assert.Equal(t, "[5,9)", seg[0].Ranges[1].String())
}
