package predictor

import (
	"context"
	"strings"
	"testing"
	"time"

	"AgriPulse/internal/domain/models"
)

func shGateway(t *testing.T, script string, opts ...Option) *ProcessGateway {
	t.Helper()
	return New("sh", []string{"-c", script}, nil, opts...)
}

func pricingReq() *models.PredictionRequest {
	return &models.PredictionRequest{Products: []models.ProductSnapshot{
		{ProductID: "p-1", Name: "tomato", Category: "vegetable", CurrentPrice: 12},
	}}
}

func TestInvokeSuccessTakesLastLine(t *testing.T) {
	g := shGateway(t, `cat > /dev/null
echo "loading model weights"
echo "scoring 1 products"
echo '{"success":true,"model_version":"xgb-v3","recommendations":[{"product_id":"p-1","recommended_price":13.2,"confidence":0.91}]}'`)

	out := g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("kind = %s, want success (stderr=%q)", out.Kind, out.Stderr)
	}
	if !out.Usable() {
		t.Fatalf("outcome should be usable")
	}
	if out.Payload.ModelVersion != "xgb-v3" || len(out.Payload.Recommendations) != 1 {
		t.Fatalf("payload = %+v", out.Payload)
	}
}

func TestInvokeEmbeddedFailureIsNotUsable(t *testing.T) {
	g := shGateway(t, `cat > /dev/null
echo '{"success":false,"error":"model artifact missing"}'`)

	out := g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("kind = %s", out.Kind)
	}
	if out.Usable() {
		t.Fatalf("embedded success=false must not be usable")
	}
}

func TestInvokeProcessFailure(t *testing.T) {
	g := shGateway(t, `cat > /dev/null
echo "traceback: boom" >&2
exit 3`)

	out := g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
	if out.Kind != models.OutcomeProcessFailure {
		t.Fatalf("kind = %s, want process_failure", out.Kind)
	}
	if out.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", out.ExitCode)
	}
	if !strings.Contains(out.Stderr, "boom") {
		t.Fatalf("stderr not captured: %q", out.Stderr)
	}
}

func TestInvokeParseFailureKeepsRawOutput(t *testing.T) {
	g := shGateway(t, `cat > /dev/null
echo "this is not json"`)

	out := g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
	if out.Kind != models.OutcomeParseFailure {
		t.Fatalf("kind = %s, want parse_failure", out.Kind)
	}
	if !strings.Contains(out.Raw, "this is not json") {
		t.Fatalf("raw output lost: %q", out.Raw)
	}
}

func TestInvokeEmptyOutputIsParseFailure(t *testing.T) {
	g := shGateway(t, `cat > /dev/null`)

	out := g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
	if out.Kind != models.OutcomeParseFailure {
		t.Fatalf("kind = %s, want parse_failure", out.Kind)
	}
}

func TestInvokeStartFailure(t *testing.T) {
	g := New("/definitely/not/a/predictor", nil, nil)

	out := g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
	if out.Kind != models.OutcomeStartFailure {
		t.Fatalf("kind = %s, want start_failure", out.Kind)
	}
	if out.Err == nil {
		t.Fatalf("start failure must carry its cause")
	}
}

func TestInvokeTimeoutKillsProcess(t *testing.T) {
	g := shGateway(t, `cat > /dev/null
sleep 10
echo '{"success":true}'`, WithTimeouts(150*time.Millisecond, 150*time.Millisecond))

	start := time.Now()
	out := g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
	elapsed := time.Since(start)

	if out.Kind != models.OutcomeTimeout {
		t.Fatalf("kind = %s, want timeout", out.Kind)
	}
	if elapsed > 3*time.Second {
		t.Fatalf("termination was not forced, took %v", elapsed)
	}
}

func TestInvokeTimeoutThenLateExitDispatchesOnce(t *testing.T) {
	// The child ignores the kill long enough for its exit path to race
	// the timer; only one outcome may be delivered.
	g := shGateway(t, `cat > /dev/null
sleep 0.2
echo '{"success":true}'`, WithTimeouts(200*time.Millisecond, 200*time.Millisecond))

	for i := 0; i < 10; i++ {
		out := g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
		switch out.Kind {
		case models.OutcomeTimeout, models.OutcomeSuccess:
			// whichever fired first, exactly one outcome arrived
		default:
			t.Fatalf("iteration %d: unexpected kind %s", i, out.Kind)
		}
	}
}

func TestInvokeOperationPassedAsArgument(t *testing.T) {
	// sh -c makes the trailing operation argument $0.
	g := shGateway(t, `cat > /dev/null
printf '{"success":true,"model_version":"%s"}\n' "$0"`)

	out := g.Invoke(context.Background(), models.OpPredictDemand, &models.PredictionRequest{
		Products: []models.ProductSnapshot{{ProductID: "p-1"}},
		Days:     7,
		Cities:   []string{"hanoi"},
	})
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("kind = %s", out.Kind)
	}
	if out.Payload.ModelVersion != "predict_demand" {
		t.Fatalf("operation arg = %q, want predict_demand", out.Payload.ModelVersion)
	}
}

func TestInvokeConcurrencyCap(t *testing.T) {
	g := shGateway(t, `cat > /dev/null
sleep 0.1
echo '{"success":true}'`, WithMaxConcurrent(2))

	done := make(chan *models.PredictionOutcome, 6)
	for i := 0; i < 6; i++ {
		go func() {
			done <- g.Invoke(context.Background(), models.OpPredictPricing, pricingReq())
		}()
	}
	for i := 0; i < 6; i++ {
		out := <-done
		if out.Kind != models.OutcomeSuccess {
			t.Fatalf("kind = %s", out.Kind)
		}
	}
}
