package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/danthegoodman1/marksplit/gologger"
	"github.com/danthegoodman1/marksplit/part"
	"github.com/danthegoodman1/marksplit/splitter"
	"github.com/danthegoodman1/marksplit/utils"
)

var (
	ErrNoInput        = errors.New("request has neither parts nor a table")
	ErrUnknownSource  = errors.New("unknown part source")
	ErrInvalidRequest = errors.New("invalid plan request")
	ErrNoArchiver     = errors.New("plan archiving is not configured")

	validate = validator.New()
)

type (
	// PartSource is anything that can list the parts of a table
	PartSource interface {
		ListParts(ctx context.Context, table string) ([]part.Part, error)
	}

	Archiver interface {
		Archive(ctx context.Context, key string, body []byte) error
		Load(ctx context.Context, key string) ([]byte, error)
	}

	Defaults struct {
		Granularity      uint64
		MinSegmentSize   uint64
		MaxSegmentsCount uint64
	}

	Planner struct {
		Sources  map[string]PartSource
		Defaults Defaults
		// Archiver is optional, plans are only archived when one is set
		Archiver Archiver
		// ArchiveAll archives every plan instead of only the ones that ask for it
		ArchiveAll bool
	}

	PlanRequest struct {
		// Table is planned in full from Source when Parts is nil.
		// With Parts it is only used to label the plan.
		Table  string `json:"table" validate:"omitempty,max=512,excludesall=/"`
		Source string `json:"source"`
		// Parts are already selected mark ranges, planned as is. An empty, non nil
		// list is a valid input with nothing to read.
		Parts []part.PartRanges `json:"parts"`

		// Defaults to Defaults.Granularity
		Granularity *uint64 `json:"granularity" validate:"omitempty,min=1"`
		// Defaults to Defaults.MinSegmentSize
		MinSegmentSize *uint64 `json:"min_segment_size"`
		// Defaults to Defaults.MaxSegmentsCount
		MaxSegmentsCount *uint64 `json:"max_segments_count" validate:"omitempty,min=1,max=65536"`

		// ReplicasCount above 1 plans only this replica's share of the input
		ReplicaIndex  uint64 `json:"replica_index" validate:"omitempty,ltfield=ReplicasCount"`
		ReplicasCount uint64 `json:"replicas_count" validate:"max=1024"`

		Archive bool `json:"archive"`
	}

	Plan struct {
		ID            string         `json:"id"`
		Table         string         `json:"table,omitempty"`
		Source        string         `json:"source,omitempty"`
		CreatedAt     time.Time      `json:"created_at"`
		Segments      part.Segments  `json:"segments"`
		Stats         splitter.Stats `json:"stats"`
		ReplicaIndex  uint64         `json:"replica_index"`
		ReplicasCount uint64         `json:"replicas_count"`
		ReplicaOffset uint64         `json:"replica_offset"`
		ArchiveKey    string         `json:"archive_key,omitempty"`
	}
)

// DefaultsFromEnv reads the defaults from the environment configuration
func DefaultsFromEnv() Defaults {
	return Defaults{
		Granularity:      utils.GRANULARITY,
		MinSegmentSize:   utils.MIN_SEGMENT_SIZE,
		MaxSegmentsCount: utils.MAX_SEGMENTS,
	}
}

// ArchiveKey is where a plan lives once archived. Plans without a table go under _adhoc.
func ArchiveKey(table, planID string) string {
	if table == "" {
		table = "_adhoc"
	}
	return path.Join("plans", table, planID+".json")
}

func (p *Planner) Plan(ctx context.Context, req PlanRequest) (Plan, error) {
	ctx, span := utils.Tracer().Start(ctx, "Plan")
	defer span.End()

	plan, err := p.plan(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Plan{}, err
	}
	span.SetAttributes(
		attribute.String("plan.id", plan.ID),
		attribute.Int64("plan.marks", int64(plan.Stats.TotalMarks)),
		attribute.Int("plan.segments", len(plan.Segments)),
	)
	return plan, nil
}

func (p *Planner) plan(ctx context.Context, req PlanRequest) (Plan, error) {
	if req.Parts == nil && req.Table == "" {
		return Plan{}, ErrNoInput
	}
	if err := validate.Struct(req); err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	plan := Plan{
		ID:            utils.GenKSortedID("plan_"),
		Table:         req.Table,
		Source:        req.Source,
		CreatedAt:     time.Now().UTC(),
		ReplicaIndex:  req.ReplicaIndex,
		ReplicasCount: req.ReplicasCount,
	}
	ctx = context.WithValue(ctx, gologger.PlanIDKey, plan.ID)
	logger := zerolog.Ctx(ctx).With().Str("planID", plan.ID).Logger()
	ctx = logger.WithContext(ctx)

	input, err := p.input(ctx, req)
	if err != nil {
		return Plan{}, err
	}

	opts := splitter.Options{
		Granularity:      utils.Deref(req.Granularity, p.Defaults.Granularity),
		MinSegmentSize:   utils.Deref(req.MinSegmentSize, p.Defaults.MinSegmentSize),
		MaxSegmentsCount: utils.Deref(req.MaxSegmentsCount, p.Defaults.MaxSegmentsCount),
	}
	if req.ReplicasCount > 1 {
		input, opts.ParallelReplicaOffset, err = splitter.ScopeForReplica(input, req.ReplicaIndex, req.ReplicasCount)
		if err != nil {
			return Plan{}, fmt.Errorf("error in ScopeForReplica: %w", err)
		}
		plan.ReplicaOffset = opts.ParallelReplicaOffset
	}

	s, err := splitter.New(input, opts)
	if err != nil {
		return Plan{}, fmt.Errorf("error in splitter.New: %w", err)
	}
	plan.Segments = s.Perform()
	plan.Stats = s.Stats()

	logger.Debug().Interface("stats", plan.Stats).Uint64("replicaOffset", plan.ReplicaOffset).Msg("planned segments")

	if p.Archiver != nil && (req.Archive || p.ArchiveAll) {
		plan.ArchiveKey = ArchiveKey(plan.Table, plan.ID)
		body, err := json.Marshal(plan)
		if err != nil {
			return Plan{}, fmt.Errorf("error in json.Marshal: %w", err)
		}
		if err := p.Archiver.Archive(ctx, plan.ArchiveKey, body); err != nil {
			return Plan{}, fmt.Errorf("error archiving plan: %w", err)
		}
		logger.Debug().Str("key", plan.ArchiveKey).Msg("archived plan")
	}

	return plan, nil
}

// input is either the given ranges, or every mark of every alive part of the table
func (p *Planner) input(ctx context.Context, req PlanRequest) ([]part.PartRanges, error) {
	if req.Parts != nil {
		return req.Parts, nil
	}

	parts, err := p.ListParts(ctx, req.Source, req.Table)
	if err != nil {
		return nil, err
	}

	alive := make([]part.Part, 0, len(parts))
	for _, pt := range parts {
		if pt.Alive {
			alive = append(alive, pt)
		}
	}
	return part.FullScan(alive), nil
}

func (p *Planner) ListParts(ctx context.Context, source, table string) ([]part.Part, error) {
	src, ok := p.Sources[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	parts, err := src.ListParts(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("error listing parts of %s from %s: %w", table, source, err)
	}
	return parts, nil
}

// LoadPlan fetches an archived plan
func (p *Planner) LoadPlan(ctx context.Context, table, planID string) (Plan, error) {
	if p.Archiver == nil {
		return Plan{}, ErrNoArchiver
	}

	body, err := p.Archiver.Load(ctx, ArchiveKey(table, planID))
	if err != nil {
		return Plan{}, fmt.Errorf("error loading plan: %w", err)
	}

	var plan Plan
	if err := json.Unmarshal(body, &plan); err != nil {
		return Plan{}, fmt.Errorf("error in json.Unmarshal: %w", err)
	}
	return plan, nil
}
