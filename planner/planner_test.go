package planner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danthegoodman1/marksplit/part"
	"github.com/danthegoodman1/marksplit/splitter"
	"github.com/danthegoodman1/marksplit/utils"
)

type fakeSource map[string][]part.Part

func (f fakeSource) ListParts(_ context.Context, table string) ([]part.Part, error) {
	if table == "broken" {
		return nil, errors.New("catalog down")
	}
	return f[table], nil
}

type memArchiver struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (m *memArchiver) Archive(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string][]byte{}
	}
	m.docs[key] = body
	return nil
}

func (m *memArchiver) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.docs[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return body, nil
}

func newPlanner() *Planner {
	return &Planner{
		Sources: map[string]PartSource{
			"mem": fakeSource{
				"events": {
					{ID: "a", Table: "events", Alive: true, Marks: 30},
					{ID: "dead", Table: "events", Alive: false, Marks: 100},
					{ID: "empty", Table: "events", Alive: true, Marks: 0},
					{ID: "b", Table: "events", Alive: true, Marks: 5},
				},
			},
		},
		Defaults: Defaults{Granularity: 8192, MinSegmentSize: 1, MaxSegmentsCount: 2},
	}
}

func TestPlanFromSource(t *testing.T) {
	p := newPlanner()
	plan, err := p.Plan(context.Background(), PlanRequest{Table: "events", Source: "mem"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plan.ID, "plan_"))
	assert.Equal(t, "events", plan.Table)
	assert.Equal(t, splitter.Stats{TotalMarks: 35, TotalRows: 35 * 8192, TargetSize: 18, SegmentsCount: 2}, plan.Stats)
	assert.Equal(t, part.Segments{
		{
			{Part: part.PartRef{ID: "a", Index: 0}, PartIndexInQuery: 0, Ranges: []part.MarkRange{{Begin: 0, End: 18}}},
		},
		{
			{Part: part.PartRef{ID: "a", Index: 0}, PartIndexInQuery: 1, Ranges: []part.MarkRange{{Begin: 18, End: 30}}},
			{Part: part.PartRef{ID: "b", Index: 2}, PartIndexInQuery: 2, Ranges: []part.MarkRange{{Begin: 0, End: 5}}},
		},
	}, plan.Segments)
	assert.Empty(t, plan.ArchiveKey)
}

func TestPlanGivenParts(t *testing.T) {
	p := newPlanner()
	plan, err := p.Plan(context.Background(), PlanRequest{
		Parts: []part.PartRanges{
			{Part: part.PartRef{ID: "x"}, Ranges: []part.MarkRange{{Begin: 0, End: 10}}},
		},
		MaxSegmentsCount: utils.Ptr[uint64](4),
		MinSegmentSize:   utils.Ptr[uint64](5),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), plan.Stats.TargetSize)
	require.Len(t, plan.Segments, 2)
	assert.Equal(t, uint64(10), plan.Segments.Marks())
}

func TestPlanErrors(t *testing.T) {
	p := newPlanner()
	ctx := context.Background()

	_, err := p.Plan(ctx, PlanRequest{})
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = p.Plan(ctx, PlanRequest{Table: "events", Source: "nope"})
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = p.Plan(ctx, PlanRequest{Table: "broken", Source: "mem"})
	assert.ErrorContains(t, err, "catalog down")

	_, err = p.Plan(ctx, PlanRequest{Table: "a/b", Source: "mem"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = p.Plan(ctx, PlanRequest{Table: "events", Source: "mem", ReplicaIndex: 2, ReplicasCount: 2})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = p.Plan(ctx, PlanRequest{Table: "events", Source: "mem", Granularity: utils.Ptr[uint64](0)})
	assert.Error(t, err)

	_, err = p.Plan(ctx, PlanRequest{Parts: []part.PartRanges{
		{Part: part.PartRef{ID: "x"}, Ranges: []part.MarkRange{{Begin: 5, End: 2}}},
	}})
	assert.ErrorIs(t, err, splitter.ErrInvalidParameters)
}

func TestPlanForReplicas(t *testing.T) {
	p := newPlanner()
	ctx := context.Background()

	var covered uint64
	for i := uint64(0); i < 3; i++ {
		plan, err := p.Plan(ctx, PlanRequest{Table: "events", Source: "mem", ReplicaIndex: i, ReplicasCount: 3})
		require.NoError(t, err)
		assert.Equal(t, covered, plan.ReplicaOffset)
		for _, seg := range plan.Segments {
			for _, e := range seg {
				assert.GreaterOrEqual(t, e.PartIndexInQuery, plan.ReplicaOffset)
			}
		}
		covered += plan.Segments.Marks()
	}
	assert.Equal(t, uint64(35), covered)
}

func TestPlanArchive(t *testing.T) {
	p := newPlanner()
	archiver := &memArchiver{}
	p.Archiver = archiver
	ctx := context.Background()

	plan, err := p.Plan(ctx, PlanRequest{Table: "events", Source: "mem"})
	require.NoError(t, err)
	assert.Empty(t, plan.ArchiveKey)
	assert.Empty(t, archiver.docs)

	plan, err = p.Plan(ctx, PlanRequest{Table: "events", Source: "mem", Archive: true})
	require.NoError(t, err)
	assert.Equal(t, "plans/events/"+plan.ID+".json", plan.ArchiveKey)

	var archived Plan
	require.NoError(t, json.Unmarshal(archiver.docs[plan.ArchiveKey], &archived))
	assert.Equal(t, plan.Segments, archived.Segments)

	loaded, err := p.LoadPlan(ctx, "events", plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, loaded.ID)
	assert.Equal(t, plan.Stats, loaded.Stats)

	p.ArchiveAll = true
	plan, err = p.Plan(ctx, PlanRequest{Parts: []part.PartRanges{
		{Part: part.PartRef{ID: "x"}, Ranges: []part.MarkRange{{Begin: 0, End: 1}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "plans/_adhoc/"+plan.ID+".json", plan.ArchiveKey)
}

func TestLoadPlanWithoutArchiver(t *testing.T) {
	_, err := newPlanner().LoadPlan(context.Background(), "events", "plan_x")
	assert.ErrorIs(t, err, ErrNoArchiver)
}

func TestPlanEmptyParts(t *testing.T) {
	plan, err := newPlanner().Plan(context.Background(), PlanRequest{Parts: []part.PartRanges{}})
	require.NoError(t, err)
	assert.Equal(t, part.Segments{}, plan.Segments)
	assert.Equal(t, splitter.Stats{}, plan.Stats)
}
