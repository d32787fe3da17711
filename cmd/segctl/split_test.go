package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danthegoodman1/marksplit/part"
	"github.com/danthegoodman1/marksplit/planner"
)

func setFlags(minSize, maxSegments, replica, replicas uint64) {
	flagInput = "-"
	flagDir = ""
	flagTable = ""
	flagGranularity = 8192
	flagMinSegmentSize = minSize
	flagMaxSegments = maxSegments
	flagReplica = replica
	flagReplicas = replicas
}

func TestRunSplit(t *testing.T) {
	setFlags(1, 2, 0, 1)
	in := strings.NewReader(`[
		{"part": {"id": "a"}, "ranges": [{"begin": 0, "end": 30}]},
		{"part": {"id": "b", "index": 1}, "part_index_in_query": 1, "ranges": [{"begin": 0, "end": 5}]}
	]`)

	var out bytes.Buffer
	require.NoError(t, runSplit(context.Background(), &out, in))

	var plan planner.Plan
	require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
	require.Len(t, plan.Segments, 2)
	assert.Equal(t, uint64(18), plan.Segments[0].Marks())
	assert.Equal(t, uint64(17), plan.Segments[1].Marks())
}

func TestRunSplitEmptyInput(t *testing.T) {
	setFlags(1, 4, 0, 1)
	var out bytes.Buffer
	require.NoError(t, runSplit(context.Background(), &out, strings.NewReader(`[]`)))

	var plan planner.Plan
	require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
	assert.Equal(t, part.Segments{}, plan.Segments)
}

func TestRunSplitForReplica(t *testing.T) {
	setFlags(1, 4, 1, 2)
	var out bytes.Buffer
	require.NoError(t, runSplit(context.Background(), &out, strings.NewReader(`[
		{"part": {"id": "a"}, "ranges": [{"begin": 0, "end": 10}]}
	]`)))

	var plan planner.Plan
	require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
	assert.Equal(t, uint64(5), plan.ReplicaOffset)
	assert.Equal(t, uint64(5), plan.Segments.Marks())
}

func TestRunSplitErrors(t *testing.T) {
	setFlags(1, 0, 0, 1)
	err := runSplit(context.Background(), &bytes.Buffer{}, strings.NewReader(`[{"part": {"id": "a"}, "ranges": [{"begin": 0, "end": 1}]}]`))
	assert.Error(t, err)

	setFlags(1, 2, 0, 1)
	err = runSplit(context.Background(), &bytes.Buffer{}, strings.NewReader(`not json`))
	assert.ErrorContains(t, err, "error decoding input")

	flagDir = t.TempDir()
	err = runSplit(context.Background(), &bytes.Buffer{}, nil)
	assert.ErrorContains(t, err, "--dir needs --table")
}
