package geodata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/water-budget-service/internal/domain"
	"github.com/couchcryptid/water-budget-service/internal/observability"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

const (
	layerNDVI          = "ndvi"
	layerPrecipitation = "precipitation"
	layerPET           = "pet"

	dateLayout = "2006-01-02"

	// PET is delivered in tenths of a millimeter.
	petScale = 0.1
)

// Options tunes the client's transport, retry, and circuit-breaker behavior.
type Options struct {
	Timeout         time.Duration
	MaxRetries      int
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// Client implements domain.InputProvider against the remote geospatial
// service. The three layers are fetched concurrently; each request is
// retried with exponential backoff behind a shared circuit breaker.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	breaker    *gobreaker.CircuitBreaker
	newBackOff func() backoff.BackOff
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a geodata client for the service at baseURL.
func NewClient(baseURL, token string, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 200 * time.Millisecond
			bo.MaxInterval = 2 * time.Second
			bo.MaxElapsedTime = 0
			return bo
		},
		metrics: metrics,
		logger:  logger,
	}
	c.breaker = newBreaker(opts.BreakerFailures, opts.BreakerTimeout, metrics, logger)
	return c
}

func newBreaker(failures int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "geodata",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		// A 4xx says the request was wrong, not that the service is unhealthy.
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && !se.retryable())
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.GeodataBreakerState.Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// FetchInputs fetches greenness, cool-season rainfall, and monthly PET for
// loc over the current acquisition windows. Absent observations come back
// as missing readings; only transport and server failures are errors.
func (c *Client) FetchInputs(ctx context.Context, loc domain.Location) (domain.EnvironmentalInputs, error) {
	windows := domain.CurrentWindows()
	var env domain.EnvironmentalInputs

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := c.fetchScalar(gctx, layerNDVI, loc, windows.Greenness)
		if err != nil {
			return err
		}
		env.Greenness = normalizeNDVI(r)
		return nil
	})
	g.Go(func() error {
		r, err := c.fetchScalar(gctx, layerPrecipitation, loc, windows.Rainfall)
		if err != nil {
			return err
		}
		env.Rainfall = normalizeRainfall(r)
		return nil
	})
	g.Go(func() error {
		months, err := c.fetchMonthly(gctx, layerPET, loc, windows.ET0)
		if err != nil {
			return err
		}
		env.ET0 = normalizePET(months)
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.EnvironmentalInputs{}, err
	}
	return env, nil
}

func (c *Client) fetchScalar(ctx context.Context, layer string, loc domain.Location, window domain.DateRange) (domain.Reading, error) {
	var resp scalarResponse
	if err := c.get(ctx, layer, loc, window, &resp); err != nil {
		return domain.Missing(), err
	}
	if resp.Value == nil {
		c.metrics.GeodataRequests.WithLabelValues(layer, "missing").Inc()
		return domain.Missing(), nil
	}
	c.metrics.GeodataRequests.WithLabelValues(layer, "success").Inc()
	return domain.Observed(*resp.Value), nil
}

func (c *Client) fetchMonthly(ctx context.Context, layer string, loc domain.Location, window domain.DateRange) ([]monthValue, error) {
	var resp monthlyResponse
	if err := c.get(ctx, layer, loc, window, &resp); err != nil {
		return nil, err
	}
	outcome := "success"
	if len(resp.Months) == 0 {
		outcome = "missing"
	}
	for _, m := range resp.Months {
		if m.Value == nil {
			outcome = "missing"
			break
		}
	}
	c.metrics.GeodataRequests.WithLabelValues(layer, outcome).Inc()
	return resp.Months, nil
}

// get performs one logical request: retried with backoff, each attempt
// passing through the circuit breaker. The decoded body lands in out.
func (c *Client) get(ctx context.Context, layer string, loc domain.Location, window domain.DateRange, out any) error {
	u := fmt.Sprintf("%s/v1/%s?%s", c.baseURL, layer, url.Values{
		"lat":   {strconv.FormatFloat(loc.Lat, 'f', 6, 64)},
		"lon":   {strconv.FormatFloat(loc.Lon, 'f', 6, 64)},
		"start": {window.Start.Format(dateLayout)},
		"end":   {window.End.Format(dateLayout)},
	}.Encode())

	attempt := 0
	op := func() error {
		attempt++
		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.doRequest(ctx, layer, u, out)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.logger.Debug("geodata request failed, retrying", "layer", layer, "attempt", attempt, "error", err)
		return err
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		c.metrics.GeodataRequests.WithLabelValues(layer, "error").Inc()
		return fmt.Errorf("%w: %s after %d attempt(s): %w", domain.ErrUpstream, layer, attempt, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, layer, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeodataAPIDuration.WithLabelValues(layer).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s request: %w", layer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", layer, err)
	}
	return nil
}

// statusError is a non-200 answer from the geodata service.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("geodata API error: status %d: %s", e.code, e.body)
}

// retryable reports whether the failure is on the server side.
func (e *statusError) retryable() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests
}

// normalizeNDVI rounds to two decimals. A negative composite is water or
// bare rock, not vegetation, and is reported as absent.
func normalizeNDVI(r domain.Reading) domain.Reading {
	v, ok := r.Value()
	if !ok || v < 0 {
		return domain.Missing()
	}
	return domain.Observed(roundTo(v, 2))
}

func normalizeRainfall(r domain.Reading) domain.Reading {
	v, ok := r.Value()
	if !ok {
		return domain.Missing()
	}
	return domain.Observed(roundTo(v, 1))
}

func normalizePET(months []monthValue) []domain.MonthlyET {
	out := make([]domain.MonthlyET, 0, len(months))
	for _, m := range months {
		rec := domain.MonthlyET{Month: m.Month, ET0: domain.Missing()}
		if m.Value != nil {
			rec.ET0 = domain.Observed(roundTo(*m.Value*petScale, 2))
		}
		out = append(out, rec)
	}
	return out
}

// roundTo rounds half away from zero. Python's round is half-even, so ties
// can differ in the last place from Python-produced reference data.
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Geodata API response types.

type scalarResponse struct {
	Value *float64 `json:"value"`
}

type monthlyResponse struct {
	Months []monthValue `json:"months"`
}

type monthValue struct {
	Month int      `json:"month"`
	Value *float64 `json:"value"`
}
