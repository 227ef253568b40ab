package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/water-budget-service/internal/domain"
	"github.com/couchcryptid/water-budget-service/internal/observability"
	"github.com/google/uuid"
)

// Entry points, used as the metrics "source" label.
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
)

// Failure kinds, used as the metrics "kind" label.
const (
	FailureInvalidInput = "invalid_input"
	FailureNoData       = "no_data"
	FailureUpstream     = "upstream"
	FailureInternal     = "internal"
)

// Planner turns plan requests into reports. It resolves the sensed inputs,
// runs the model, and records the outcome.
type Planner struct {
	provider     domain.InputProvider
	defaultUnits domain.UnitSystem
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewPlanner creates a Planner. Pass a nil provider to accept only requests
// that carry their own inputs.
func NewPlanner(provider domain.InputProvider, defaultUnits domain.UnitSystem, metrics *observability.Metrics, logger *slog.Logger) *Planner {
	return &Planner{
		provider:     provider,
		defaultUnits: defaultUnits,
		metrics:      metrics,
		logger:       logger,
	}
}

// Plan computes the report for one request. Requests without an id get a
// random one so responses can be correlated in logs.
func (p *Planner) Plan(ctx context.Context, source string, req domain.PlanRequest) (domain.Report, error) {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	report, mode, err := p.plan(ctx, req)
	p.metrics.PlanDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := FailureKind(err)
		p.metrics.PlanFailures.WithLabelValues(source, kind).Inc()
		p.logger.Warn("plan failed",
			"request_id", req.ID,
			"source", source,
			"kind", kind,
			"error", err,
		)
		return domain.Report{}, err
	}

	p.metrics.PlansComputed.WithLabelValues(source, mode).Inc()
	if report.Degenerate {
		p.metrics.PlanDegenerate.Inc()
	}
	p.logger.Info("plan computed",
		"request_id", report.RequestID,
		"source", source,
		"mode", mode,
		"units", report.Units,
		"total_irrigation", report.TotalIrrigation,
		"scale_factor", report.ScaleFactor,
		"drought_months", len(report.DroughtMonths),
	)
	return report, nil
}

func (p *Planner) plan(ctx context.Context, req domain.PlanRequest) (domain.Report, string, error) {
	req, err := req.Normalize(p.defaultUnits)
	if err != nil {
		return domain.Report{}, "", err
	}

	env, err := p.resolveInputs(ctx, req)
	if err != nil {
		return domain.Report{}, "", err
	}

	in, alloc, err := domain.Plan(req, env)
	if err != nil {
		return domain.Report{}, "", err
	}

	mode := "recommend"
	if req.TargetAllocation.Valid() {
		mode = "allocate"
	}

	return domain.BuildReport(req, in, alloc), mode, nil
}

func (p *Planner) resolveInputs(ctx context.Context, req domain.PlanRequest) (domain.EnvironmentalInputs, error) {
	if req.Inputs != nil {
		return *req.Inputs, nil
	}
	if p.provider == nil {
		return domain.EnvironmentalInputs{}, &domain.InputError{Field: "inputs", Err: domain.ErrNoData}
	}
	env, err := p.provider.FetchInputs(ctx, req.Location)
	if err != nil {
		return domain.EnvironmentalInputs{}, err
	}
	p.logger.Debug("inputs fetched",
		"request_id", req.ID,
		"lat", req.Location.Lat,
		"lon", req.Location.Lon,
		"complete", env.Complete(),
	)
	return env, nil
}

// Transform decodes a raw transport message and plans it. It implements
// Transformer for the batch pipeline.
func (p *Planner) Transform(ctx context.Context, raw domain.RawRequest) (domain.Report, error) {
	req, err := domain.ParsePlanRequest(raw)
	if err != nil {
		p.metrics.PlanFailures.WithLabelValues(SourceKafka, FailureInvalidInput).Inc()
		return domain.Report{}, err
	}
	return p.Plan(ctx, SourceKafka, req)
}

// FailureKind classifies a planning error for metrics and transport status
// mapping.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		return FailureInvalidInput
	case errors.Is(err, domain.ErrNoData):
		return FailureNoData
	case errors.Is(err, domain.ErrUpstream):
		return FailureUpstream
	default:
		return FailureInternal
	}
}
