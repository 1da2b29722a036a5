package bot

import (
	"fmt"
	"testing"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

func newTestFeedback(cfg ExecutionFeedbackConfig) (*ExecutionFeedback, *fakeClock) {
	clock := newFakeClock()
	return NewExecutionFeedbackWithClock(cfg, clock.Now, utils.NewNopLogger()), clock
}

func TestExecutionFeedback_EmptyQuality(t *testing.T) {
	f, _ := newTestFeedback(DefaultExecutionFeedbackConfig())
	q := f.Quality()

	if q.FillRate != 1.0 || q.AvgSlippagePct != 0 || q.ConfidenceAdjustment != 0 {
		t.Errorf("empty quality = %+v", q)
	}
	if q.ShouldReduceSize || q.ShouldPauseTrading {
		t.Error("empty history must not restrict trading")
	}
	if f.SizeFactor() != 1.0 || f.SuccessRate() != 1.0 {
		t.Error("empty history must give neutral factors")
	}
	if again := f.Quality(); again != q {
		t.Errorf("Quality() not idempotent: %+v vs %+v", again, q)
	}
}

func TestExecutionFeedback_SlippageSign(t *testing.T) {
	f, _ := newTestFeedback(DefaultExecutionFeedbackConfig())

	f.RecordBuy("mint1", 0.1, 1.0, 1.02, 100, "sig1")  // заплатили на 2% больше
	f.RecordSell("mint1", 0.1, 1.0, 0.97, 200, "sig2") // получили на 3% меньше

	recs := f.RecentExecutions()
	if len(recs) != 2 {
		t.Fatalf("RecentExecutions() len = %d, want 2", len(recs))
	}
	if !floatEquals(recs[0].SlippagePct, 2) || !floatEquals(recs[1].SlippagePct, 3) {
		t.Errorf("slippage = %v / %v, want 2 / 3", recs[0].SlippagePct, recs[1].SlippagePct)
	}

	q := f.Quality()
	if !floatEquals(q.AvgSlippagePct, 2.5) || !floatEquals(q.AvgLatencyMs, 150) {
		t.Errorf("quality = %+v", q)
	}
	if !floatEquals(q.ConfidenceAdjustment, -0.05) {
		t.Errorf("ConfidenceAdjustment = %v, want -0.05", q.ConfidenceAdjustment)
	}
	if got := f.SizeFactor(); got != 0.8 {
		t.Errorf("SizeFactor() = %v, want 0.8", got)
	}
}

func TestExecutionFeedback_Adjustments(t *testing.T) {
	tests := []struct {
		name       string
		slippage   float64 // проскальзывание каждой успешной покупки
		successes  int
		failures   int
		wantAdj    float64
		wantReduce bool
		wantPause  bool
		wantFactor float64
	}{
		{"clean", 1, 10, 0, 0, false, false, 1.0},
		{"mild slippage", 3, 10, 0, -0.05, false, false, 0.8},
		{"threshold slippage", 6, 10, 0, -0.15, true, false, 0.5},
		{"severe slippage", 12, 10, 0, -0.3, true, false, 0.5},
		{"extreme slippage pauses", 20, 10, 0, -0.3, true, true, 0},
		{"low fill rate", 0, 7, 3, -0.1, false, false, 1.0},
		{"very low fill rate pauses", 0, 2, 8, -0.2, false, true, 0},
		{"combined floor", 12, 4, 6, -0.3, true, false, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestFeedback(DefaultExecutionFeedbackConfig())

			// Неудачи пишут 0% проскальзывания, поэтому пересчитываем цену покупки
			total := tt.successes + tt.failures
			perSuccess := tt.slippage * float64(total) / float64(tt.successes)
			for i := 0; i < tt.successes; i++ {
				f.RecordBuy("mint", 0.1, 1.0, 1.0+perSuccess/100, 100, fmt.Sprintf("sig%d", i))
			}
			for i := 0; i < tt.failures; i++ {
				f.RecordFailure("mint", models.SideBuy, 0.1, 500, "timeout")
			}

			q := f.Quality()
			if !floatEquals(q.ConfidenceAdjustment, tt.wantAdj) {
				t.Errorf("ConfidenceAdjustment = %v, want %v (slippage %.2f, fill %.2f)",
					q.ConfidenceAdjustment, tt.wantAdj, q.AvgSlippagePct, q.FillRate)
			}
			if q.ShouldReduceSize != tt.wantReduce {
				t.Errorf("ShouldReduceSize = %v, want %v", q.ShouldReduceSize, tt.wantReduce)
			}
			if q.ShouldPauseTrading != tt.wantPause {
				t.Errorf("ShouldPauseTrading = %v, want %v", q.ShouldPauseTrading, tt.wantPause)
			}
			if got := f.SizeFactor(); got != tt.wantFactor {
				t.Errorf("SizeFactor() = %v, want %v", got, tt.wantFactor)
			}
			if q.RecentFailures != tt.failures {
				t.Errorf("RecentFailures = %d, want %d", q.RecentFailures, tt.failures)
			}
		})
	}
}

func TestExecutionFeedback_PauseDisabled(t *testing.T) {
	cfg := DefaultExecutionFeedbackConfig()
	cfg.PauseOnSevereSlippage = false
	f, _ := newTestFeedback(cfg)

	for i := 0; i < 5; i++ {
		f.RecordFailure("mint", models.SideSell, 0.1, 100, "honeypot?")
	}
	if f.Quality().ShouldPauseTrading {
		t.Error("pause must be disabled by config")
	}
}

func TestExecutionFeedback_HistoryBounded(t *testing.T) {
	cfg := DefaultExecutionFeedbackConfig()
	cfg.TrackLastN = 5
	f, _ := newTestFeedback(cfg)

	for i := 0; i < 12; i++ {
		f.RecordBuy("mint", 0.1, 1.0, 1.0, int64(i), fmt.Sprintf("sig%d", i))
	}

	recs := f.RecentExecutions()
	if len(recs) != 5 || f.ExecutionCount() != 5 {
		t.Fatalf("history len = %d, want 5", len(recs))
	}
	if recs[0].TxSignature != "sig7" || recs[4].TxSignature != "sig11" {
		t.Errorf("history = %s..%s, want sig7..sig11", recs[0].TxSignature, recs[4].TxSignature)
	}

	// Окно за час хранит все записи
	if got := f.Quality().SampleCount; got != 12 {
		t.Errorf("SampleCount = %d, want 12", got)
	}

	f.Clear()
	if f.ExecutionCount() != 0 {
		t.Error("Clear() must empty history")
	}
}

func TestExecutionFeedback_WindowExpiry(t *testing.T) {
	f, clock := newTestFeedback(DefaultExecutionFeedbackConfig())
	for i := 0; i < 5; i++ {
		f.RecordFailure("mint", models.SideBuy, 0.1, 100, "dropped")
	}
	if !f.Quality().ShouldPauseTrading {
		t.Fatal("all failures must pause")
	}

	clock.Advance(time.Hour + time.Second)
	if q := f.Quality(); q.ShouldPauseTrading || q.FillRate != 1.0 {
		t.Errorf("after an hour quality = %+v, want reset", q)
	}
}

func TestExecutionFeedback_SuccessRateAndAvgSlippage(t *testing.T) {
	f, _ := newTestFeedback(DefaultExecutionFeedbackConfig())
	f.RecordBuy("mint", 0.1, 1.0, 1.04, 100, "a")
	f.RecordBuy("mint", 0.1, 1.0, 1.02, 100, "b")
	f.RecordFailure("mint", models.SideBuy, 0.1, 100, "x")
	f.RecordFailure("mint", models.SideBuy, 0.1, 100, "y")

	if got := f.SuccessRate(); got != 0.5 {
		t.Errorf("SuccessRate() = %v, want 0.5", got)
	}
	if got := f.AvgSlippage(); !floatEquals(got, 3) {
		t.Errorf("AvgSlippage() = %v, want 3 (successful only)", got)
	}
}

func TestExecutionFeedback_Disabled(t *testing.T) {
	cfg := DefaultExecutionFeedbackConfig()
	cfg.Enabled = false
	f, _ := newTestFeedback(cfg)

	f.RecordFailure("mint", models.SideBuy, 0.1, 100, "x")
	if f.ExecutionCount() != 0 || f.Quality().SampleCount != 0 {
		t.Error("disabled feedback must ignore records")
	}
}
