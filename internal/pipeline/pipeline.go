package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/water-budget-service/internal/domain"
	"github.com/couchcryptid/water-budget-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw plan requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRequest, error)
}

// Transformer turns a raw plan request into a report. It must be safe for
// concurrent use.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawRequest) (domain.Report, error)
}

// BatchLoader writes multiple reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.Report) error
}

// Options sizes the pipeline.
type Options struct {
	BatchSize int
	Workers   int // plans computed concurrently within a batch; at least 1
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline consumes plan requests in batches, plans them concurrently, and
// publishes the reports in input order. Offsets are committed only after the
// batch is loaded; requests that cannot be planned are committed and dropped.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	opts        Options
	retry       backoff.BackOff
	ready       atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		opts:        opts,
		retry:       newRetryBackOff(),
	}
}

func newRetryBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxInterval = maxBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// CheckReadiness returns nil once the pipeline has published a batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any plans yet")
	}
	return nil
}

// Ready reports whether a batch has been published.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// Run loops until ctx is cancelled. Transient extract and load failures are
// retried with capped exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.opts.BatchSize, "workers", p.opts.Workers)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil {
		if !p.step(ctx) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// step runs one extract-plan-load cycle. It returns false once ctx is done.
func (p *Pipeline) step(ctx context.Context) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.opts.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.wait(ctx)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	p.retry.Reset()

	reports, planned, skipped := p.planBatch(ctx, batch)
	if ctx.Err() != nil {
		return false
	}
	for _, raw := range skipped {
		p.commit(ctx, raw)
	}
	if len(reports) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, reports); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(reports))
		return p.wait(ctx)
	}
	p.metrics.MessagesProduced.Add(float64(len(reports)))
	for _, raw := range planned {
		p.commit(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Debug("batch published", "planned", len(planned), "skipped", len(skipped))
	return true
}

// planBatch plans every request with at most opts.Workers in flight. Reports
// keep the order of the batch. Requests that fail to plan are returned in
// skipped.
func (p *Pipeline) planBatch(ctx context.Context, batch []domain.RawRequest) (reports []domain.Report, planned, skipped []domain.RawRequest) {
	results := make([]domain.Report, len(batch))
	errs := make([]error, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, raw := range batch {
		i, raw := i, raw
		g.Go(func() error {
			results[i], errs[i] = p.transformer.Transform(gctx, raw)
			return nil
		})
	}
	_ = g.Wait()

	reports = make([]domain.Report, 0, len(batch))
	planned = make([]domain.RawRequest, 0, len(batch))
	for i, raw := range batch {
		if errs[i] != nil {
			p.logger.Warn("plan failed, skipping message",
				"error", errs[i],
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			skipped = append(skipped, raw)
			continue
		}
		reports = append(reports, results[i])
		planned = append(planned, raw)
	}
	return reports, planned, skipped
}

// wait sleeps for the next backoff interval. It returns false if ctx ends
// first.
func (p *Pipeline) wait(ctx context.Context) bool {
	d := p.retry.NextBackOff()
	if d == backoff.Stop {
		d = maxBackoff
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawRequest) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
