package predictor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
	domsvc "AgriPulse/internal/domain/service"
	applogger "AgriPulse/pkg/logger"
)

// Default wall-clock budgets per operation. Demand forecasting walks a
// multi-day horizon per city and is materially slower than pricing.
const (
	DefaultPricingTimeout = 30 * time.Second
	DefaultDemandTimeout  = 60 * time.Second
)

// Cap on captured stderr; the predictor can be chatty when a model load
// goes sideways.
const maxStderrBytes = 64 << 10

// Option configures the gateway.
type Option func(*ProcessGateway)

// WithTimeouts overrides the per-operation deadlines.
func WithTimeouts(pricing, demand time.Duration) Option {
	return func(g *ProcessGateway) {
		if pricing > 0 {
			g.pricingTimeout = pricing
		}
		if demand > 0 {
			g.demandTimeout = demand
		}
	}
}

// WithMaxConcurrent caps concurrent predictor processes. Zero or
// negative disables the cap.
func WithMaxConcurrent(n int) Option {
	return func(g *ProcessGateway) {
		if n > 0 {
			g.sem = make(chan struct{}, n)
		}
	}
}

// WithMetrics attaches an operational metrics recorder.
func WithMetrics(m domrepo.Metrics) Option {
	return func(g *ProcessGateway) { g.metrics = m }
}

// ProcessGateway invokes the external predictor as a subprocess speaking
// a line-oriented JSON protocol: one JSON request document on stdin,
// diagnostic lines on stdout, and exactly one final stdout line carrying
// the structured result.
type ProcessGateway struct {
	bin            string   // interpreter or executable, e.g. "python3"
	args           []string // leading args, e.g. the script path
	pricingTimeout time.Duration
	demandTimeout  time.Duration
	sem            chan struct{}
	metrics        domrepo.Metrics
	logger         *applogger.Logger
}

// New creates a gateway that runs `bin args... <operation>` per
// invocation.
func New(bin string, args []string, l *applogger.Logger, opts ...Option) *ProcessGateway {
	g := &ProcessGateway{
		bin:            bin,
		args:           args,
		pricingTimeout: DefaultPricingTimeout,
		demandTimeout:  DefaultDemandTimeout,
		logger:         l,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke runs the predictor exactly once and classifies the result into
// exactly one outcome. The deadline timer is disarmed on every exit
// path; a late timer fire can never act on a completed invocation
// because both the timer callback and the wait path must win a single
// compare-and-set before dispatching.
func (g *ProcessGateway) Invoke(ctx context.Context, op models.Operation, req *models.PredictionRequest) *models.PredictionOutcome {
	start := time.Now()
	out := g.invoke(ctx, op, req)
	if g.metrics != nil {
		g.metrics.RecordInvocation(string(op), string(out.Kind))
		g.metrics.RecordLatency("predictor_invoke", time.Since(start).Seconds())
	}
	if g.logger != nil && out.Kind != models.OutcomeSuccess {
		g.logger.Warn("predictor invocation did not succeed",
			applogger.String("operation", string(op)),
			applogger.String("outcome", string(out.Kind)),
			applogger.Int("exit_code", out.ExitCode),
			applogger.String("stderr", truncate(out.Stderr, 500)),
		)
	}
	return out
}

func (g *ProcessGateway) invoke(ctx context.Context, op models.Operation, req *models.PredictionRequest) *models.PredictionOutcome {
	payload, err := json.Marshal(req)
	if err != nil {
		return &models.PredictionOutcome{Kind: models.OutcomeStartFailure, Err: err}
	}

	if g.sem != nil {
		select {
		case g.sem <- struct{}{}:
			defer func() { <-g.sem }()
		case <-ctx.Done():
			return &models.PredictionOutcome{Kind: models.OutcomeStartFailure, Err: ctx.Err()}
		}
	}

	args := append(append([]string{}, g.args...), string(op))
	cmd := exec.Command(g.bin, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &models.PredictionOutcome{Kind: models.OutcomeStartFailure, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &models.PredictionOutcome{Kind: models.OutcomeStartFailure, Err: err}
	}
	var stderr limitedBuffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return &models.PredictionOutcome{Kind: models.OutcomeStartFailure, Err: err}
	}

	// Write the request and close stdin to signal end-of-input. Done in
	// a goroutine so a predictor that never reads cannot wedge us before
	// the timer is armed.
	go func() {
		_, _ = stdin.Write(payload)
		_ = stdin.Close()
	}()

	// dispatched is the single guard for every exit path. Whoever wins
	// the CAS owns the one outcome; the loser is a no-op.
	var dispatched atomic.Bool
	outcomeCh := make(chan *models.PredictionOutcome, 1)

	timer := time.AfterFunc(g.timeoutFor(op), func() {
		if !dispatched.CompareAndSwap(false, true) {
			return
		}
		// No cooperative cancellation protocol exists; kill outright.
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		outcomeCh <- &models.PredictionOutcome{Kind: models.OutcomeTimeout, Stderr: stderr.String()}
	})
	defer timer.Stop()

	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64<<10), 4<<20)
		var lastLine string
		var raw strings.Builder
		for scanner.Scan() {
			lastLine = scanner.Text()
			if raw.Len() < 1<<20 {
				raw.WriteString(lastLine)
				raw.WriteByte('\n')
			}
		}
		waitErr := cmd.Wait()

		if !dispatched.CompareAndSwap(false, true) {
			return // timeout already dispatched; late exit is a no-op
		}

		if waitErr != nil {
			exitCode := -1
			var ee *exec.ExitError
			if errors.As(waitErr, &ee) {
				exitCode = ee.ExitCode()
			}
			outcomeCh <- &models.PredictionOutcome{
				Kind:     models.OutcomeProcessFailure,
				ExitCode: exitCode,
				Stderr:   stderr.String(),
			}
			return
		}

		var resp models.PredictionResponse
		if strings.TrimSpace(lastLine) == "" || json.Unmarshal([]byte(lastLine), &resp) != nil {
			outcomeCh <- &models.PredictionOutcome{
				Kind:   models.OutcomeParseFailure,
				Raw:    raw.String(),
				Stderr: stderr.String(),
			}
			return
		}
		outcomeCh <- &models.PredictionOutcome{Kind: models.OutcomeSuccess, Payload: &resp, Stderr: stderr.String()}
	}()

	return <-outcomeCh
}

func (g *ProcessGateway) timeoutFor(op models.Operation) time.Duration {
	if op == models.OpPredictDemand {
		return g.demandTimeout
	}
	return g.pricingTimeout
}

// limitedBuffer keeps at most maxStderrBytes of the diagnostic stream.
type limitedBuffer struct {
	buf bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if remaining := maxStderrBytes - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			p = p[:remaining]
		}
		b.buf.Write(p)
	}
	return n, nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ domsvc.PredictionGateway = (*ProcessGateway)(nil)
