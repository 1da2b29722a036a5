package feed

import (
	"context"
	"time"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// Evaluator - оценка входа (StrategyEngine)
type Evaluator interface {
	EvaluateEntry(ctx context.Context, tc bot.TokenAnalysisContext) bot.EntryEvaluation
}

// ScannerConfig - настройки периодической оценки кандидатов
type ScannerConfig struct {
	Interval time.Duration
	// MinTrades - сделок до первой оценки
	MinTrades int
	// MaxAge - токены старше не оцениваются
	MaxAge time.Duration
	// Cooldown - повторная оценка того же mint не чаще
	Cooldown time.Duration
}

// DefaultScannerConfig возвращает настройки по умолчанию
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Interval:  2 * time.Second,
		MinTrades: 10,
		MaxAge:    10 * time.Minute,
		Cooldown:  30 * time.Second,
	}
}

// Scanner периодически строит контекст по готовым токенам и передаёт его движку.
// Решения только логируются; исполнение ордеров вне этого сервиса.
type Scanner struct {
	config ScannerConfig
	agg    *Aggregator
	eval   Evaluator
	now    func() time.Time

	lastEval map[string]time.Time
	onResult func(bot.EntryEvaluation)

	logger *utils.Logger
}

// NewScanner создаёт сканер
func NewScanner(cfg ScannerConfig, agg *Aggregator, eval Evaluator, logger *utils.Logger) *Scanner {
	return NewScannerWithClock(cfg, agg, eval, time.Now, logger)
}

// NewScannerWithClock создаёт сканер с заданными часами
func NewScannerWithClock(cfg ScannerConfig, agg *Aggregator, eval Evaluator, now func() time.Time, logger *utils.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultScannerConfig().Interval
	}
	return &Scanner{
		config:   cfg,
		agg:      agg,
		eval:     eval,
		now:      now,
		lastEval: make(map[string]time.Time),
		logger:   utils.OrGlobal(logger).WithComponent("scanner"),
	}
}

// SetOnResult задаёт callback для каждой оценки
func (s *Scanner) SetOnResult(fn func(bot.EntryEvaluation)) {
	s.onResult = fn
}

// ScanOnce оценивает готовые токены; возвращает число оценок
func (s *Scanner) ScanOnce(ctx context.Context) int {
	now := s.now()
	evaluated := 0

	for _, mint := range s.agg.Ready(s.config.MinTrades, s.config.MaxAge) {
		if ctx.Err() != nil {
			break
		}
		if last, ok := s.lastEval[mint]; ok && now.Sub(last) < s.config.Cooldown {
			continue
		}
		tc, ok := s.agg.Context(mint)
		if !ok {
			continue
		}

		result := s.eval.EvaluateEntry(ctx, tc)
		s.lastEval[mint] = now
		evaluated++

		if result.Decision.Action.Type == models.ActionEnter {
			s.logger.Info("entry candidate",
				utils.Mint(mint),
				utils.SizeSOL(result.PositionSizeSOL),
				utils.Regime(result.Regime.Regime.String()),
				utils.Dur("entry_delay", result.EntryDelay),
			)
		}
		if s.onResult != nil {
			s.onResult(result)
		}
	}

	// забываем токены, вышедшие из окна
	for mint, last := range s.lastEval {
		if s.config.MaxAge > 0 && now.Sub(last) > s.config.MaxAge {
			delete(s.lastEval, mint)
		}
	}
	return evaluated
}

// Run сканирует с интервалом до отмены ctx
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.ScanOnce(ctx)
		}
	}
}
