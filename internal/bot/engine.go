package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// ============================================================
// StrategyEngine - точка сборки всех компонентов
// ============================================================
//
// Общие компоненты (портфель, сеть, исполнение, выходы, рандомизатор)
// защищены собственными блокировками. Аналитика токенов живёт в реестре
// трекеров; каждый трекер имеет свой mutex, поэтому оценки одного токена
// выполняются последовательно, а разных токенов - параллельно.
//
// Поток оценки входа:
// привилегии -> ликвидность -> фатальные риски -> сеть -> дельты -> режим ->
// размер -> портфель -> арбитраж -> рандомизация

// RugPredictor - внешний источник вероятности рага
type RugPredictor interface {
	PredictRug(mint string) *models.RugPrediction
}

// EngineConfig - конфигурация движка и всех компонентов
type EngineConfig struct {
	Enabled            bool                   `json:"enabled"`
	DefaultStrategy    models.TradingStrategy `json:"default_strategy"`
	MinEntryConfidence float64                `json:"min_entry_confidence"`

	Sizing            PositionSizingConfig    `json:"sizing"`
	Exits             ExitManagerConfig       `json:"exits"`
	FatalRisk         FatalRiskConfig         `json:"fatal_risk"`
	Portfolio         PortfolioRiskConfig     `json:"portfolio"`
	ChainHealth       ChainHealthConfig       `json:"chain_health"`
	ExecutionFeedback ExecutionFeedbackConfig `json:"execution_feedback"`
	Randomization     RandomizationConfig     `json:"randomization"`
	Liquidity         LiquidityConfig         `json:"liquidity"`
	Regime            RegimeConfig            `json:"regime"`

	// nil - seed из энтропии
	RandomSeed *int64 `json:"random_seed,omitempty"`

	// Диспетчер событий
	NumShards   int `json:"num_shards"`
	ShardBuffer int `json:"shard_buffer"`

	MaintenanceInterval time.Duration `json:"maintenance_interval"`
	TrackerIdleTTL      time.Duration `json:"tracker_idle_ttl"`
}

// DefaultEngineConfig возвращает конфигурацию по умолчанию
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Enabled:             true,
		DefaultStrategy:     models.StrategyAdaptive,
		MinEntryConfidence:  0.5,
		Sizing:              DefaultPositionSizingConfig(),
		Exits:               DefaultExitManagerConfig(),
		FatalRisk:           DefaultFatalRiskConfig(),
		Portfolio:           DefaultPortfolioRiskConfig(),
		ChainHealth:         DefaultChainHealthConfig(),
		ExecutionFeedback:   DefaultExecutionFeedbackConfig(),
		Randomization:       DefaultRandomizationConfig(),
		Liquidity:           DefaultLiquidityConfig(),
		Regime:              DefaultRegimeConfig(),
		NumShards:           8,
		ShardBuffer:         1024,
		MaintenanceInterval: 30 * time.Second,
		TrackerIdleTTL:      10 * time.Minute,
	}
}

// TokenAnalysisContext - всё, что известно о токене на момент оценки входа
type TokenAnalysisContext struct {
	Mint    string
	Creator string

	OrderFlow       OrderFlowAnalysis
	Distribution    TokenDistribution
	CreatorBehavior CreatorBehavior

	SOLReserves   float64
	TokenReserves float64

	ConfidenceScore  float64
	DataCompleteness float64
	MissingData      []string

	// Необязательные данные; nil - неизвестно
	Privileges  *models.CreatorPrivileges
	CreatorSell *CreatorSellInfo

	FailedSellCount int
}

// EntryEvaluation - результат оценки входа
type EntryEvaluation struct {
	Decision        models.ArbitratedDecision
	Regime          RegimeClassification
	Liquidity       LiquidityAnalysis
	PositionSizeSOL float64
	EntryDelay      time.Duration
	Explanation     models.DecisionExplanation
}

// PositionEvaluation - результат оценки открытой позиции
type PositionEvaluation struct {
	Mint           string
	Decision       models.ArbitratedDecision
	ExitSignal     *models.ExitSignal
	CurrentPrice   float64
	CurrentPnLPct  float64
	Regime         RegimeClassification
	Recommendation string
	ExitDelay      time.Duration
}

// StrategyEngine - оркестратор торговых решений
type StrategyEngine struct {
	config EngineConfig
	now    func() time.Time

	fatalRisk  *FatalRiskEngine
	liquidity  *LiquidityAnalyzer
	classifier *RegimeClassifier
	sizer      *PositionSizer
	arbitrator *DecisionArbitrator

	portfolio   *PortfolioRiskGovernor
	chainHealth *ChainHealth
	feedback    *ExecutionFeedback
	exits       *ExitManager
	randomizer  *Randomizer

	trackers   map[string]*tokenTracker
	trackersMu sync.Mutex

	rugPredictor    RugPredictor
	privilegeReader PrivilegeReader
	mu              sync.RWMutex

	router *eventRouter
	logger *utils.Logger
}

// NewStrategyEngine создаёт движок
func NewStrategyEngine(cfg EngineConfig, logger *utils.Logger) *StrategyEngine {
	return NewStrategyEngineWithClock(cfg, time.Now, logger)
}

// NewStrategyEngineWithClock создаёт движок с заданными часами
func NewStrategyEngineWithClock(cfg EngineConfig, now func() time.Time, logger *utils.Logger) *StrategyEngine {
	base := utils.OrGlobal(logger)

	e := &StrategyEngine{
		config:      cfg,
		now:         now,
		fatalRisk:   NewFatalRiskEngine(cfg.FatalRisk, nil, base),
		liquidity:   NewLiquidityAnalyzer(cfg.Liquidity),
		classifier:  NewRegimeClassifier(cfg.Regime),
		sizer:       NewPositionSizer(cfg.Sizing),
		arbitrator:  NewDecisionArbitrator(base),
		portfolio:   NewPortfolioRiskGovernorWithClock(cfg.Portfolio, now, base),
		chainHealth: NewChainHealthWithClock(cfg.ChainHealth, now, base),
		feedback:    NewExecutionFeedbackWithClock(cfg.ExecutionFeedback, now, base),
		exits:       NewExitManager(cfg.Exits, base),
		randomizer:  NewRandomizer(cfg.Randomization, cfg.RandomSeed),
		trackers:    make(map[string]*tokenTracker),
		logger:      base.WithComponent("engine"),
	}
	e.router = newEventRouter(e, cfg.NumShards, cfg.ShardBuffer)
	return e
}

// Config возвращает конфигурацию движка
func (e *StrategyEngine) Config() EngineConfig {
	return e.config
}

// IsEnabled - движок включён
func (e *StrategyEngine) IsEnabled() bool {
	return e.config.Enabled
}

// ============================================================
// Коллабораторы
// ============================================================

// SetRugPredictor подключает предиктор рагов
func (e *StrategyEngine) SetRugPredictor(p RugPredictor) {
	e.mu.Lock()
	e.rugPredictor = p
	e.mu.Unlock()
}

// SetPrivilegeReader подключает читатель authorities
func (e *StrategyEngine) SetPrivilegeReader(r PrivilegeReader) {
	e.mu.Lock()
	e.privilegeReader = r
	e.mu.Unlock()
}

// SetDeployerCache подключает внешний кэш создателей
func (e *StrategyEngine) SetDeployerCache(c KnownDeployerCache) {
	e.fatalRisk.SetCache(c)
}

// FatalRisk возвращает движок фатальных проверок (blacklist, rug deployers)
func (e *StrategyEngine) FatalRisk() *FatalRiskEngine {
	return e.fatalRisk
}

// ChainHealth возвращает монитор сети
func (e *StrategyEngine) ChainHealth() *ChainHealth {
	return e.chainHealth
}

func (e *StrategyEngine) collaborators() (RugPredictor, PrivilegeReader) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rugPredictor, e.privilegeReader
}

// readPrivileges: ошибка или отсутствие читателя дают Unknown
func (e *StrategyEngine) readPrivileges(ctx context.Context, tc TokenAnalysisContext) models.CreatorPrivileges {
	if tc.Privileges != nil {
		return *tc.Privileges
	}
	_, reader := e.collaborators()
	if reader == nil {
		return models.UnknownPrivileges()
	}
	p, err := reader.ReadPrivileges(ctx, tc.Mint)
	if err != nil {
		e.logger.Warn("privilege read failed", utils.Mint(tc.Mint), utils.Err(err))
		return models.UnknownPrivileges()
	}
	return p
}

// ============================================================
// Оценка входа
// ============================================================

// EvaluateEntry оценивает токен для входа и возвращает ровно одно решение
func (e *StrategyEngine) EvaluateEntry(ctx context.Context, tc TokenAnalysisContext) EntryEvaluation {
	started := time.Now()
	defer func() { RecordEvaluationLatency(float64(time.Since(started).Microseconds()) / 1000) }()

	t := e.lockTracker(tc.Mint)
	defer t.mu.Unlock()

	sizingCfg := e.sizer.Config()

	// 1. Фатальные риски
	liquidity := e.liquidity.Analyze(tc.SOLReserves, tc.TokenReserves)
	chainState := e.chainHealth.State()

	fc := NewFatalRiskContext(tc.Mint, tc.Creator).
		WithPrivileges(e.readPrivileges(ctx, tc)).
		WithLiquidity(liquidity.EffectiveLiquiditySOL, liquidity.SlippageForExit(sizingCfg.MinSizeSOL), sizingCfg.MinSizeSOL)
	fc.CreatorSell = tc.CreatorSell
	fc.LiquidityDropPct = t.liquidityDrop(tc.SOLReserves)
	fc.WashTradingScore = tc.OrderFlow.WashTradingScore
	fc.FailedSellCount = tc.FailedSellCount
	fc.PriceDropFromATH = t.priceDropFromATH()
	fc.ChainCongestionCritical = chainState.CongestionLevel == models.CongestionCritical

	fatal := e.fatalRisk.Check(ctx, fc)
	if fatal != nil {
		RecordFatalReject(fatal.Kind)
	}

	// 2. Режим
	t.delta.RecordMetric(tc.Mint, MetricOrganicScore, tc.OrderFlow.OrganicScore)
	delta := t.delta.ComputeMetrics(tc.Mint)
	regime := e.classifier.Classify(tc.OrderFlow, tc.Distribution, tc.CreatorBehavior, delta)
	t.regime, t.hasRegime = regime, true

	// 3. Размер
	quality := e.feedback.Quality()
	confidence := utils.Clamp(tc.ConfidenceScore+quality.ConfidenceAdjustment, 0, 1)

	sctx := SizingContext{
		Confidence:            confidence,
		Regime:                regime.Regime,
		Liquidity:             liquidity,
		PortfolioRemainingSOL: e.portfolio.RemainingCapacity(),
		ChainSizeFactor:       SizeMultiplierFor(chainState.RecommendedAction),
		ExecutionSizeFactor:   e.feedback.SizeFactor(),
	}
	size := e.sizer.CalculateSize(sctx)

	// 4. Портфель
	block := e.portfolio.CanOpenPosition(size)

	// 5. Сигнал стратегии
	strategy := e.selectStrategy()
	var signal *models.EntrySignal
	if regime.ShouldEnter && confidence > e.config.MinEntryConfidence && size > 0 {
		signal = &models.EntrySignal{
			Mint:             tc.Mint,
			Strategy:         strategy,
			Confidence:       confidence,
			SuggestedSizeSOL: size,
			Urgency:          models.UrgencyNormal,
			Reason:           strings.Join(regime.Reasons, ", "),
		}
	}

	// 6. Арбитраж
	decision := e.arbitrator.ArbitrateEntry(EntryInputs{
		Mint:           tc.Mint,
		Fatal:          fatal,
		ChainAction:    chainState.RecommendedAction,
		PortfolioBlock: block,
		Signal:         signal,
		Regime:         regime.Regime,
	})

	// 7. Рандомизация
	finalSize := size
	var delay time.Duration
	if decision.Action.Type == models.ActionEnter {
		j := e.randomizer.JitterEntry(size)
		if j.ShouldSkip {
			decision.Action = models.SkipAction("Random skip for adversarial resistance")
			finalSize = 0
		} else {
			finalSize = e.portfolio.AdjustPositionSize(utils.Clamp(j.Size, sizingCfg.MinSizeSOL, sizingCfg.MaxSizeSOL))
			decision.Action.SizeSOL = finalSize
			delay = j.Delay
		}
	} else {
		finalSize = 0
	}

	exp := e.explainEntry(tc, decision, regime, strategy, sctx, size, finalSize, delay, block, chainState, quality)

	RecordDecision(decision)
	e.logDecision(tc.Mint, decision, regime)

	return EntryEvaluation{
		Decision:        decision,
		Regime:          regime,
		Liquidity:       liquidity,
		PositionSizeSOL: finalSize,
		EntryDelay:      delay,
		Explanation:     exp,
	}
}

// selectStrategy - стратегия по умолчанию с редкой случайной заменой
func (e *StrategyEngine) selectStrategy() models.TradingStrategy {
	def := e.config.DefaultStrategy
	alternatives := make([]models.TradingStrategy, 0, 2)
	for _, s := range []models.TradingStrategy{models.StrategyMomentumSurfing, models.StrategySnipeAndScalp, models.StrategyAdaptive} {
		if s != def {
			alternatives = append(alternatives, s)
		}
	}
	return e.randomizer.SelectStrategyWithEntropy(def, alternatives)
}

func (e *StrategyEngine) explainEntry(
	tc TokenAnalysisContext,
	decision models.ArbitratedDecision,
	regime RegimeClassification,
	strategy models.TradingStrategy,
	sctx SizingContext,
	size, finalSize float64,
	delay time.Duration,
	block *models.PortfolioBlock,
	chainState models.ChainState,
	quality models.ExecutionQuality,
) models.DecisionExplanation {
	portfolio := e.portfolio.State()

	exp := models.DecisionExplanation{
		ID:                   decision.ID,
		Timestamp:            e.now(),
		Mint:                 tc.Mint,
		FinalScore:           sctx.Confidence,
		Action:               decision.Action,
		Regime:               regime.Regime,
		RegimeConfidence:     regime.Confidence,
		RegimeReasons:        regime.Reasons,
		DataCompleteness:     tc.DataCompleteness,
		MissingData:          tc.MissingData,
		SelectedStrategy:     strategy,
		StrategyReason:       strings.Join(regime.Reasons, ", "),
		PositionSizeSOL:      finalSize,
		ExitStyle:            e.exits.SelectExitStyle(&PositionContext{EntryStrategy: strategy, Regime: regime}),
		DecisionSource:       decision.Source,
		Overridden:           decision.Overridden,
		OpenPositionCount:    portfolio.OpenPositionCount,
		TotalExposureSOL:     portfolio.TotalExposureSOL,
		ChainCongestion:      chainState.CongestionLevel,
		ChainActionTaken:     chainState.RecommendedAction,
		RecentSlippageAvg:    quality.AvgSlippagePct,
		ConfidenceAdjustment: quality.ConfidenceAdjustment,
		EntryDelayAppliedMs:  delay.Milliseconds(),
		SizeBreakdown:        e.sizer.ExplainSize(sctx).String(),
	}
	if block != nil {
		exp.PortfolioBlockReason = block.Description()
	}
	if size > 0 && finalSize > 0 {
		exp.SizeJitterAppliedPct = (finalSize/size - 1) * 100
	}
	return exp
}

func (e *StrategyEngine) logDecision(mint string, d models.ArbitratedDecision, regime RegimeClassification) {
	fields := []utils.Field{
		utils.Mint(mint),
		utils.DecisionID(d.ID),
		utils.Action(d.Action.String()),
		utils.Source(string(d.Source)),
		utils.Regime(regime.Regime.String()),
		utils.Float64("confidence", d.Confidence),
	}
	switch d.Action.Type {
	case models.ActionEnter, models.ActionFatalReject:
		e.logger.Info("entry decision", fields...)
	default:
		e.logger.Debug("entry decision", fields...)
	}
}

// ============================================================
// Оценка позиции
// ============================================================

// EvaluatePosition оценивает открытую позицию на выход
func (e *StrategyEngine) EvaluatePosition(ctx context.Context, pos *models.Position) PositionEvaluation {
	t := e.lockTracker(pos.Mint)
	price := t.currentPrice()
	if price <= 0 {
		price = pos.EntryPrice
	}
	delta := t.delta.ComputeMetrics(pos.Mint)
	action := t.prices.Analyze()
	regime := t.lastRegime()
	whale, creatorSold := t.whaleExitAddress, t.creatorSoldPct
	t.mu.Unlock()

	e.portfolio.MarkPrice(pos.Mint, price)
	e.exits.UpdatePrice(pos.Mint, price)

	pctx := &PositionContext{
		Position:          pos,
		CurrentPrice:      price,
		HighPrice:         utils.Max(e.exits.HighPrice(pos.Mint), price),
		PnLPct:            pos.PnLPct(price),
		HoldTimeSecs:      int64(pos.HoldTime(e.now()) / time.Second),
		EntryStrategy:     pos.Strategy,
		Regime:            regime,
		Delta:             delta,
		PriceAction:       action,
		LevelsHit:         e.exits.LevelsHit(pos.Mint),
		WhaleExitAddress:  whale,
		CreatorSellingPct: creatorSold,
	}

	signal := e.exits.ShouldExit(pctx)

	var rug *models.RugPrediction
	if predictor, _ := e.collaborators(); predictor != nil {
		rug = predictor.PredictRug(pos.Mint)
	}

	decision := e.arbitrator.ArbitrateExit(ExitInputs{
		Mint:          pos.Mint,
		RugPrediction: rug,
		ExitSignal:    signal,
		ChainAction:   e.chainHealth.State().RecommendedAction,
	})
	RecordDecision(decision)

	ev := PositionEvaluation{
		Mint:           pos.Mint,
		Decision:       decision,
		ExitSignal:     signal,
		CurrentPrice:   price,
		CurrentPnLPct:  pctx.PnLPct,
		Regime:         regime,
		Recommendation: e.exits.ExplainExitStyle(pctx),
	}
	if decision.Action.Type == models.ActionExit {
		ev.ExitDelay = e.randomizer.JitterExit(pos.SizeSOL).Delay
		e.logger.Info("exit decision",
			utils.Mint(pos.Mint),
			utils.DecisionID(decision.ID),
			utils.Action(decision.Action.String()),
			utils.Source(string(decision.Source)),
			utils.PnL(pctx.PnLPct))
	}
	return ev
}

// EvaluateOpenPositions оценивает все открытые позиции
func (e *StrategyEngine) EvaluateOpenPositions(ctx context.Context) []PositionEvaluation {
	positions := e.portfolio.Positions()
	out := make([]PositionEvaluation, 0, len(positions))
	for _, pos := range positions {
		if ctx.Err() != nil {
			break
		}
		out = append(out, e.EvaluatePosition(ctx, pos))
	}
	return out
}

// CheckExit - облегчённая проверка выхода по внешним ценам
func (e *StrategyEngine) CheckExit(mint string, entryPrice, currentPrice, pnlPct float64, holdSecs int64) *models.ExitSignal {
	pos, ok := e.portfolio.Position(mint)
	if !ok {
		pos = &models.Position{
			Mint:         mint,
			EntryPrice:   entryPrice,
			EntryTime:    e.now().Add(-time.Duration(holdSecs) * time.Second),
			SizeSOL:      e.sizer.Config().BaseSizeSOL,
			Strategy:     e.config.DefaultStrategy,
			ExitStyle:    models.DefaultExitStyle(),
			HighestPrice: currentPrice,
			LowestPrice:  utils.Min(entryPrice, currentPrice),
		}
	}

	t := e.lockTracker(mint)
	delta := t.delta.ComputeMetrics(mint)
	action := t.prices.Analyze()
	regime := t.lastRegime()
	t.mu.Unlock()

	e.exits.UpdatePrice(mint, currentPrice)

	return e.exits.ShouldExit(&PositionContext{
		Position:      pos,
		CurrentPrice:  currentPrice,
		HighPrice:     utils.Max(e.exits.HighPrice(mint), currentPrice),
		PnLPct:        pnlPct,
		HoldTimeSecs:  holdSecs,
		EntryStrategy: pos.Strategy,
		Regime:        regime,
		Delta:         delta,
		PriceAction:   action,
		LevelsHit:     e.exits.LevelsHit(mint),
	})
}

// ============================================================
// Учёт событий
// ============================================================

// RecordEntry регистрирует открытую позицию; nil означает успех
func (e *StrategyEngine) RecordEntry(pos *models.Position) *models.PortfolioBlock {
	if block := e.portfolio.TryOpenPosition(pos); block != nil {
		e.logger.Warn("entry rejected by portfolio",
			utils.Mint(pos.Mint),
			utils.SizeSOL(pos.SizeSOL),
			utils.String("reason", block.Description()))
		return block
	}
	e.exits.UpdatePrice(pos.Mint, pos.EntryPrice)
	ObservePortfolio(e.portfolio.State())
	return nil
}

// RecordExit закрывает позицию и очищает данные токена
func (e *StrategyEngine) RecordExit(mint string, pnlSOL float64) {
	pos, ok := e.portfolio.ClosePosition(mint, pnlSOL)
	if ok {
		RecordClosedTrade(pos.Strategy, pnlSOL)
	}
	e.exits.ClearPosition(mint)
	e.dropTracker(mint)
	ObservePortfolio(e.portfolio.State())
}

// RecordPartialExit учитывает частичный выход по уровню
func (e *StrategyEngine) RecordPartialExit(mint string, pct, gainPct float64) {
	e.portfolio.ReducePosition(mint, pct)
	if gainPct > 0 {
		e.MarkExitLevelHit(mint, gainPct)
	}
}

// MarkExitLevelHit отмечает сработавший уровень частичного выхода
func (e *StrategyEngine) MarkExitLevelHit(mint string, gainPct float64) {
	e.exits.MarkLevelHit(mint, gainPct)
	e.portfolio.MarkExitLevel(mint, gainPct)
}

// RecordExecution учитывает успешное исполнение
func (e *StrategyEngine) RecordExecution(mint string, side models.Side, sizeSOL, expectedPrice, actualPrice float64, latencyMs int64, txSig string) {
	if side == models.SideBuy {
		e.feedback.RecordBuy(mint, sizeSOL, expectedPrice, actualPrice, latencyMs, txSig)
	} else {
		e.feedback.RecordSell(mint, sizeSOL, expectedPrice, actualPrice, latencyMs, txSig)
	}
	e.chainHealth.RecordTx(true)
	RecordExecutionResult(models.NewSuccessRecord(mint, side, sizeSOL, sizeSOL, expectedPrice, actualPrice, latencyMs, txSig))
	ObserveExecutionQuality(e.feedback.Quality())
}

// RecordTxFailure учитывает неудачную транзакцию
func (e *StrategyEngine) RecordTxFailure(mint string, side models.Side, sizeSOL float64, latencyMs int64, reason string) {
	e.feedback.RecordFailure(mint, side, sizeSOL, latencyMs, reason)
	e.chainHealth.RecordTx(false)
	RecordExecutionResult(models.NewFailureRecord(mint, side, sizeSOL, 0, latencyMs, reason))
	ObserveExecutionQuality(e.feedback.Quality())
}

// UpdatePrice добавляет цену токена в анализатор
func (e *StrategyEngine) UpdatePrice(mint string, price, volume float64) {
	t := e.lockTracker(mint)
	t.prices.RecordPrice(price, volume)
	t.delta.RecordMetric(mint, MetricPrice, price)
	t.mu.Unlock()

	e.portfolio.MarkPrice(mint, price)
}

// UpdateMetrics добавляет снимок метрик токена
func (e *StrategyEngine) UpdateMetrics(mint string, m MetricsUpdate) {
	t := e.lockTracker(mint)
	t.recordMetrics(mint, m)
	t.mu.Unlock()
}

// RecordTrade учитывает сделку по токену
func (e *StrategyEngine) RecordTrade(mint string, tr TradeUpdate) {
	t := e.lockTracker(mint)
	t.recordTrade(mint, tr)
	t.mu.Unlock()

	if tr.Price > 0 {
		e.portfolio.MarkPrice(mint, tr.Price)
	}
}

// ============================================================
// Состояние и управление
// ============================================================

// ShouldPauseTradingWithReason - агрегированная проверка паузы: сеть, исполнение, портфель
func (e *StrategyEngine) ShouldPauseTradingWithReason() (string, bool) {
	if e.chainHealth.ShouldBlockEntries() {
		return fmt.Sprintf("Chain congestion: %s", e.chainHealth.State().CongestionLevel), true
	}

	if q := e.feedback.Quality(); q.ShouldPauseTrading {
		return fmt.Sprintf("Poor execution quality: fill_rate=%.1f%%, avg_slippage=%.1f%%", q.FillRate*100, q.AvgSlippagePct), true
	}

	if s := e.portfolio.State(); !s.CanOpenNew {
		reason := s.ReasonIfBlocked
		if reason == "" {
			reason = "unknown"
		}
		return "Portfolio blocked: " + reason, true
	}

	return "", false
}

// ShouldPauseTrading - есть ли причина для паузы
func (e *StrategyEngine) ShouldPauseTrading() bool {
	_, paused := e.ShouldPauseTradingWithReason()
	return paused
}

// PortfolioState возвращает снимок портфеля
func (e *StrategyEngine) PortfolioState() models.PortfolioState {
	return e.portfolio.State()
}

// ChainState возвращает состояние сети
func (e *StrategyEngine) ChainState() models.ChainState {
	return e.chainHealth.State()
}

// ExecutionQuality возвращает качество исполнения
func (e *StrategyEngine) ExecutionQuality() models.ExecutionQuality {
	return e.feedback.Quality()
}

// Positions возвращает открытые позиции
func (e *StrategyEngine) Positions() []*models.Position {
	return e.portfolio.Positions()
}

// SampleChainHealth опрашивает RPC и обновляет состояние сети
func (e *StrategyEngine) SampleChainHealth(ctx context.Context, sampler ChainSampler) {
	e.chainHealth.Sample(ctx, sampler)
}

// EntryDelay - случайная задержка перед входом
func (e *StrategyEngine) EntryDelay() time.Duration {
	return e.randomizer.JitterEntryDelay()
}

// ExitDelay - случайная задержка перед выходом
func (e *StrategyEngine) ExitDelay() time.Duration {
	return e.randomizer.JitterExitDelay()
}

// Pause приостанавливает открытие новых позиций
func (e *StrategyEngine) Pause(reason string, d time.Duration) {
	e.portfolio.Pause(reason, d)
	ObservePortfolio(e.portfolio.State())
}

// Resume снимает паузу
func (e *StrategyEngine) Resume() {
	e.portfolio.Resume()
	ObservePortfolio(e.portfolio.State())
}

// ============================================================
// Фоновые задачи
// ============================================================

// Run запускает воркеры событий и периодическое обслуживание до отмены ctx
func (e *StrategyEngine) Run(ctx context.Context) error {
	e.router.start(ctx)

	interval := e.config.MaintenanceInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.router.wait()
			return ctx.Err()
		case <-ticker.C:
			e.maintain()
		}
	}
}

// maintain - суточный сброс, очистка трекеров, метрики
func (e *StrategyEngine) maintain() {
	if e.portfolio.CheckDailyReset() {
		e.logger.Info("daily portfolio reset")
	}
	if e.config.TrackerIdleTTL > 0 {
		if n := e.PruneIdleTrackers(e.config.TrackerIdleTTL); n > 0 {
			e.logger.Debug("idle trackers pruned", utils.Int("count", n))
		}
	}
	ObservePortfolio(e.portfolio.State())
	ObserveExecutionQuality(e.feedback.Quality())
}

// Submit ставит событие токена в очередь шарда; false - буфер переполнен
func (e *StrategyEngine) Submit(ev TokenEvent) bool {
	return e.router.route(ev)
}
