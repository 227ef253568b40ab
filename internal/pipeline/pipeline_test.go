package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/water-budget-service/internal/domain"
	"github.com/couchcryptid/water-budget-service/internal/observability"
	"github.com/couchcryptid/water-budget-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawRequest
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawRequest, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawRequest) (domain.Report, error) {
	if m.err != nil {
		return domain.Report{}, m.err
	}
	return domain.Report{RequestID: string(raw.Key)}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	failures int
	calls    int
	loaded   []domain.Report
}

func (m *mockLoader) LoadBatch(_ context.Context, reports []domain.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, reports...)
	return nil
}

func (m *mockLoader) snapshot() []domain.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Report(nil), m.loaded...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawRequest(t *testing.T, id string) domain.RawRequest {
	t.Helper()
	req := domain.ReferenceScenario()
	req.ID = ""
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return domain.RawRequest{Key: []byte(id), Value: data, Topic: "irrigation-plan-requests"}
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawRequest{{rawRequest(t, "req-1"), rawRequest(t, "req-2")}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, pipeline.Options{BatchSize: 10})
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 2)
	assert.Equal(t, "req-1", loaded[0].RequestID)
	assert.True(t, p.Ready())
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.snapshot())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_PlanFailureIsSkippedAndCommitted(t *testing.T) {
	var commits atomic.Int32
	raw := rawRequest(t, "req-bad")
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawRequest{{raw}}}
	ldr := &mockLoader{}
	tfm := &mockTransformer{err: &domain.InputError{Field: "greenness", Err: domain.ErrNoData}}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{BatchSize: 10})
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.snapshot())
	assert.False(t, p.Ready())
	assert.Equal(t, int32(1), commits.Load())
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int32
	raw := rawRequest(t, "req-5")
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawRequest{{raw}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{BatchSize: 10})
	runFor(t, p, 300*time.Millisecond)

	assert.Len(t, ldr.snapshot(), 1)
	assert.Equal(t, int32(1), commits.Load())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int32
	raw := rawRequest(t, "req-6")
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawRequest{{raw}}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{BatchSize: 10})
	runFor(t, p, 100*time.Millisecond)

	assert.Empty(t, ldr.snapshot())
	assert.Equal(t, int32(0), commits.Load())
	assert.False(t, p.Ready())
}

func TestPipeline_Run_RecoversAfterLoadFailure(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawRequest{{rawRequest(t, "req-7")}, {rawRequest(t, "req-8")}}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{BatchSize: 10})
	runFor(t, p, time.Second)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, "req-8", loaded[0].RequestID)
	assert.True(t, p.Ready())
}

func TestPipeline_WithPlanner(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawRequest{{
		rawRequest(t, "req-ok"),
		{Key: []byte("req-garbled"), Value: []byte("{not json")},
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	planner := pipeline.NewPlanner(nil, domain.Metric, metrics, discardLogger())

	p := pipeline.New(ext, planner, ldr, discardLogger(), metrics, pipeline.Options{BatchSize: 10})
	runFor(t, p, 300*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, "req-ok", loaded[0].RequestID)
	assert.InDelta(t, 324.95372241589814, loaded[0].TotalIrrigation, 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PlanFailures.WithLabelValues(pipeline.SourceKafka, pipeline.FailureInvalidInput)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PlansComputed.WithLabelValues(pipeline.SourceKafka, "recommend")))
}

type slowTransformer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowTransformer) Transform(_ context.Context, raw domain.RawRequest) (domain.Report, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return domain.Report{RequestID: string(raw.Key)}, nil
}

func TestPipeline_Run_PlansConcurrentlyInOrder(t *testing.T) {
	batch := make([]domain.RawRequest, 8)
	for i := range batch {
		batch[i] = domain.RawRequest{Key: []byte{'a' + byte(i)}}
	}
	ext := &mockExtractor{batches: [][]domain.RawRequest{batch}}
	ldr := &mockLoader{}
	tfm := &slowTransformer{}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{BatchSize: 8, Workers: 4})
	runFor(t, p, 500*time.Millisecond)

	loaded := ldr.snapshot()
	require.Len(t, loaded, 8)
	for i, r := range loaded {
		assert.Equal(t, string([]byte{'a' + byte(i)}), r.RequestID)
	}
	assert.LessOrEqual(t, tfm.peak.Load(), int32(4))
	assert.Greater(t, tfm.peak.Load(), int32(1))
}
