package bot

import (
	"sync"
	"testing"
	"time"

	"pumpstrategy/internal/models"
)

func TestRandomizer_Deterministic(t *testing.T) {
	cfg := DefaultRandomizationConfig()
	a := NewSeededRandomizer(cfg, 12345)
	b := NewSeededRandomizer(cfg, 12345)

	for i := 0; i < 100; i++ {
		ea, eb := a.JitterEntry(0.1), b.JitterEntry(0.1)
		if ea != eb {
			t.Fatalf("step %d: %+v != %+v", i, ea, eb)
		}
		xa, xb := a.JitterExit(0.2), b.JitterExit(0.2)
		if xa != xb {
			t.Fatalf("step %d: %+v != %+v", i, xa, xb)
		}
	}

	a.Reseed(7)
	b.Reseed(7)
	if a.JitterPriorityFee(10000, 20) != b.JitterPriorityFee(10000, 20) {
		t.Error("reseeded randomizers diverged")
	}
}

func TestRandomizer_Bounds(t *testing.T) {
	cfg := DefaultRandomizationConfig()
	r := NewSeededRandomizer(cfg, 99)

	for i := 0; i < 2000; i++ {
		if d := r.JitterEntryDelay(); d < 50*time.Millisecond || d > 200*time.Millisecond {
			t.Fatalf("JitterEntryDelay() = %v out of [50ms, 200ms]", d)
		}
		if d := r.JitterExitDelay(); d < 25*time.Millisecond || d > 100*time.Millisecond {
			t.Fatalf("JitterExitDelay() = %v out of [25ms, 100ms]", d)
		}
		if s := r.JitterEntrySize(1.0); s < 0.95-floatEpsilon || s > 1.05+floatEpsilon {
			t.Fatalf("JitterEntrySize(1) = %v out of ±5%%", s)
		}
		if s := r.JitterExitSize(1.0); s < 0.97-floatEpsilon || s > 1.03+floatEpsilon {
			t.Fatalf("JitterExitSize(1) = %v out of ±3%%", s)
		}
		if iv := r.JitterInterval(time.Second); iv < 900*time.Millisecond || iv > 1100*time.Millisecond {
			t.Fatalf("JitterInterval(1s) = %v out of ±10%%", iv)
		}
		if d := r.RandomDelay(10, 10); d != 10*time.Millisecond {
			t.Fatalf("RandomDelay(10, 10) = %v", d)
		}
	}
}

func TestRandomizer_Disabled(t *testing.T) {
	cfg := DefaultRandomizationConfig()
	cfg.Enabled = false
	r := NewRandomizer(cfg, nil)

	if r.IsEnabled() {
		t.Fatal("IsEnabled() = true")
	}
	if r.JitterEntryDelay() != 0 || r.JitterExitDelay() != 0 || r.RandomDelay(10, 20) != 0 {
		t.Error("disabled delays must be zero")
	}
	if r.JitterEntrySize(0.1) != 0.1 || r.JitterExitSize(0.2) != 0.2 || r.RandomFactor(50) != 1.0 {
		t.Error("disabled sizes must be unchanged")
	}
	if r.ShouldSkipRandomly() || !r.ShouldAct(0) {
		t.Error("disabled randomizer must never skip and always act")
	}
	if r.JitterPriorityFee(5000, 50) != 5000 {
		t.Error("disabled fee must be unchanged")
	}
	alts := []models.TradingStrategy{models.StrategySnipeAndScalp}
	if got := r.SelectStrategyWithEntropy(models.StrategyAdaptive, alts); got != models.StrategyAdaptive {
		t.Errorf("SelectStrategyWithEntropy() = %s, want recommended", got)
	}
}

func TestRandomizer_Probabilities(t *testing.T) {
	cfg := DefaultRandomizationConfig()
	cfg.SkipProbability = 1
	cfg.StrategyEntropy = 1
	r := NewSeededRandomizer(cfg, 1)

	if !r.ShouldSkipRandomly() {
		t.Error("skip probability 1 must always skip")
	}
	if r.ShouldAct(0) {
		t.Error("ShouldAct(0) must be false")
	}
	alts := []models.TradingStrategy{models.StrategySnipeAndScalp}
	if got := r.SelectStrategyWithEntropy(models.StrategyAdaptive, alts); got != models.StrategySnipeAndScalp {
		t.Errorf("entropy 1 must pick an alternative, got %s", got)
	}
	if got := r.SelectStrategyWithEntropy(models.StrategyAdaptive, nil); got != models.StrategyAdaptive {
		t.Errorf("no alternatives must keep recommended, got %s", got)
	}

	cfg.SkipProbability = 0
	cfg.StrategyEntropy = 0
	r = NewSeededRandomizer(cfg, 1)
	for i := 0; i < 100; i++ {
		if r.ShouldSkipRandomly() {
			t.Fatal("skip probability 0 must never skip")
		}
		if r.SelectStrategyWithEntropy(models.StrategyAdaptive, alts) != models.StrategyAdaptive {
			t.Fatal("entropy 0 must keep recommended")
		}
	}
}

func TestRandomizer_IntervalJitterOff(t *testing.T) {
	cfg := DefaultRandomizationConfig()
	cfg.VaryCheckInterval = false
	r := NewSeededRandomizer(cfg, 3)

	if got := r.JitterInterval(time.Second); got != time.Second {
		t.Errorf("JitterInterval() = %v, want 1s", got)
	}
}

func TestRandomizer_ConcurrentUse(t *testing.T) {
	r := NewSeededRandomizer(DefaultRandomizationConfig(), 5)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.JitterEntry(0.1)
			}
		}()
	}
	wg.Wait()
}
