package feed

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// EventSink - приёмник событий токена (StrategyEngine.Submit)
type EventSink interface {
	Submit(ev bot.TokenEvent) bool
}

// DeployerRecorder учитывает новые запуски создателей
type DeployerRecorder interface {
	RecordDeploy(ctx context.Context, address string) error
}

// AggregatorConfig - пороги агрегатора сделок
type AggregatorConfig struct {
	// TotalSupply - эмиссия токена pump.fun
	TotalSupply float64

	SniperWindow time.Duration // покупки в первые N секунд - снайперы
	EarlyWindow  time.Duration // окно раннего давления продаж
	BurstWindow  time.Duration
	BurstTrades  int // сделок в BurstWindow для всплеска

	WhaleHoldingPct  float64 // доля эмиссии, с которой держатель - кит
	WhaleExitPct     float64 // доля пакета, продажа которой - выход кита
	WashRoundTripPct float64 // продано от купленного, чтобы считать трейдера wash
	CreatorDumpPct   float64 // % начального пакета создателя, с которого продажа - слив

	MinTrades  int // сделок для полноты данных
	MinHolders int

	IdleTTL  time.Duration
	MaxMints int
}

// DefaultAggregatorConfig возвращает конфигурацию по умолчанию
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		TotalSupply:      1_000_000_000,
		SniperWindow:     5 * time.Second,
		EarlyWindow:      60 * time.Second,
		BurstWindow:      10 * time.Second,
		BurstTrades:      15,
		WhaleHoldingPct:  0.02,
		WhaleExitPct:     0.9,
		WashRoundTripPct: 0.9,
		CreatorDumpPct:   20,
		MinTrades:        10,
		MinHolders:       5,
		IdleTTL:          30 * time.Minute,
		MaxMints:         5000,
	}
}

type traderStats struct {
	firstBuyAt   time.Time
	boughtTokens float64
	soldTokens   float64
	volumeSOL    float64
	buys         int
	sells        int
}

type mintStats struct {
	creator   string
	createdAt time.Time
	lastSeen  time.Time

	creatorInitial   float64
	creatorSold      float64
	creatorSellTimes []time.Time
	creatorDumpAt    time.Time // момент, когда продажи создателя превысили CreatorDumpPct

	balances map[string]float64
	traders  map[string]*traderStats

	trades          int
	buyVolume       float64
	sellVolume      float64
	earlyBuyVolume  float64
	earlySellVolume float64
	recent          []time.Time
	recentSells     []bool

	vSOL     float64
	vTokens  float64
	peakVSOL float64
}

func newMintStats(now time.Time) *mintStats {
	return &mintStats{
		createdAt: now,
		lastSeen:  now,
		balances:  make(map[string]float64),
		traders:   make(map[string]*traderStats),
	}
}

const recentSellWindow = 20

// Aggregator собирает сделки потока в статистику по mint, передаёт
// обновления движку и строит bot.TokenAnalysisContext для оценки входа.
// Реализует bot.RugPredictor.
type Aggregator struct {
	config AggregatorConfig
	now    func() time.Time

	sink      EventSink
	deployers DeployerRecorder
	onNew     func(mint string)

	mu    sync.RWMutex
	mints map[string]*mintStats

	logger *utils.Logger
}

var _ bot.RugPredictor = (*Aggregator)(nil)

// NewAggregator создаёт агрегатор
func NewAggregator(cfg AggregatorConfig, sink EventSink, logger *utils.Logger) *Aggregator {
	return NewAggregatorWithClock(cfg, sink, time.Now, logger)
}

// NewAggregatorWithClock создаёт агрегатор с заданными часами
func NewAggregatorWithClock(cfg AggregatorConfig, sink EventSink, now func() time.Time, logger *utils.Logger) *Aggregator {
	if cfg.TotalSupply <= 0 {
		cfg.TotalSupply = DefaultAggregatorConfig().TotalSupply
	}
	if cfg.BurstTrades <= 0 {
		cfg.BurstTrades = DefaultAggregatorConfig().BurstTrades
	}
	return &Aggregator{
		config: cfg,
		now:    now,
		sink:   sink,
		mints:  make(map[string]*mintStats),
		logger: utils.OrGlobal(logger).WithComponent("feed_aggregator"),
	}
}

// SetDeployerRecorder подключает учёт запусков создателей
func (a *Aggregator) SetDeployerRecorder(r DeployerRecorder) {
	a.deployers = r
}

// SetOnNewToken задаёт callback для нового токена (подписка на его сделки)
func (a *Aggregator) SetOnNewToken(fn func(mint string)) {
	a.onNew = fn
}

// HandleMessage разбирает сырое сообщение потока
func (a *Aggregator) HandleMessage(ctx context.Context, raw []byte) {
	ev, err := DecodeEvent(raw)
	if err != nil {
		EventsDecoded.WithLabelValues("unknown").Inc()
		a.logger.Debug("skipping stream message", utils.Err(err))
		return
	}
	a.HandleEvent(ctx, ev)
}

// HandleEvent обрабатывает событие create/buy/sell
func (a *Aggregator) HandleEvent(ctx context.Context, ev *Event) {
	EventsDecoded.WithLabelValues(ev.TxType).Inc()

	if ev.IsCreate() {
		a.handleCreate(ctx, ev)
		return
	}
	a.handleTrade(ev)
}

func (a *Aggregator) handleCreate(ctx context.Context, ev *Event) {
	now := a.now()

	a.mu.Lock()
	if len(a.mints) >= a.config.MaxMints && a.config.MaxMints > 0 {
		a.evictOldestLocked()
	}
	s := newMintStats(now)
	s.creator = ev.Trader
	s.creatorInitial = ev.InitialBuy
	if ev.InitialBuy > 0 {
		s.balances[ev.Trader] = ev.InitialBuy
	}
	s.setReserves(ev.VSOLInCurve, ev.VTokensInCurve)
	a.mints[ev.Mint] = s
	TrackedMints.Set(float64(len(a.mints)))
	a.mu.Unlock()

	a.submit(bot.TokenEvent{Kind: bot.EventPrice, Mint: ev.Mint, Price: ev.Price(), Volume: ev.SOLAmount})

	a.logger.Debug("token created",
		utils.Mint(ev.Mint),
		utils.Creator(ev.Trader),
		utils.String("symbol", ev.Symbol),
	)

	if a.deployers != nil && ev.Trader != "" {
		if err := a.deployers.RecordDeploy(ctx, ev.Trader); err != nil {
			a.logger.Warn("record deploy failed", utils.Creator(ev.Trader), utils.Err(err))
		}
	}
	if a.onNew != nil {
		a.onNew(ev.Mint)
	}
}

func (a *Aggregator) handleTrade(ev *Event) {
	now := a.now()
	isBuy := ev.TxType == TxBuy

	a.mu.Lock()
	s, ok := a.mints[ev.Mint]
	if !ok {
		// сделки токена, созданного до подключения
		s = newMintStats(now)
		a.mints[ev.Mint] = s
		TrackedMints.Set(float64(len(a.mints)))
	}
	s.lastSeen = now
	s.setReserves(ev.VSOLInCurve, ev.VTokensInCurve)

	tr, ok := s.traders[ev.Trader]
	if !ok {
		tr = &traderStats{}
		s.traders[ev.Trader] = tr
	}
	tr.volumeSOL += ev.SOLAmount

	before := s.balances[ev.Trader]
	// без события create время запуска неизвестно
	early := s.creator != "" && now.Sub(s.createdAt) <= a.config.EarlyWindow
	update := bot.TradeUpdate{
		Signature:   ev.Signature,
		Trader:      ev.Trader,
		SOLAmount:   ev.SOLAmount,
		TokenAmount: ev.TokenAmount,
		Price:       ev.Price(),
	}

	if isBuy {
		update.Side = models.SideBuy
		if tr.buys == 0 {
			tr.firstBuyAt = now
		}
		tr.buys++
		tr.boughtTokens += ev.TokenAmount
		s.balances[ev.Trader] = before + ev.TokenAmount
		s.buyVolume += ev.SOLAmount
		if early {
			s.earlyBuyVolume += ev.SOLAmount
		}
	} else {
		update.Side = models.SideSell
		tr.sells++
		tr.soldTokens += ev.TokenAmount
		after := math.Max(before-ev.TokenAmount, 0)
		if after > 0 {
			s.balances[ev.Trader] = after
		} else {
			delete(s.balances, ev.Trader)
		}
		s.sellVolume += ev.SOLAmount
		if early {
			s.earlySellVolume += ev.SOLAmount
		}

		if ev.Trader == s.creator && s.creator != "" {
			s.creatorSold += ev.TokenAmount
			s.creatorSellTimes = append(s.creatorSellTimes, now)
			update.IsCreator = true
			update.CreatorSoldPct = s.creatorSoldPct()
			if s.creatorDumpAt.IsZero() && update.CreatorSoldPct > a.config.CreatorDumpPct {
				s.creatorDumpAt = now
			}
		}
		if before >= a.config.WhaleHoldingPct*a.config.TotalSupply && after <= before*(1-a.config.WhaleExitPct) {
			update.WhaleExit = true
		}
	}

	s.trades++
	s.recent = append(s.recent, now)
	s.recentSells = append(s.recentSells, !isBuy)
	if len(s.recentSells) > recentSellWindow {
		s.recentSells = s.recentSells[len(s.recentSells)-recentSellWindow:]
	}
	s.pruneRecent(now, a.config.BurstWindow)

	metrics := a.metricsLocked(s)
	a.mu.Unlock()

	a.submit(bot.TokenEvent{Kind: bot.EventTrade, Mint: ev.Mint, Trade: update})
	a.submit(bot.TokenEvent{Kind: bot.EventMetrics, Mint: ev.Mint, Metrics: metrics})

	if update.WhaleExit {
		a.logger.Info("whale exit", utils.Mint(ev.Mint), utils.String("trader", ev.Trader))
	}
}

func (a *Aggregator) submit(ev bot.TokenEvent) {
	if a.sink == nil {
		return
	}
	if !a.sink.Submit(ev) {
		EventsDropped.Inc()
	}
}

func (s *mintStats) setReserves(vSOL, vTokens float64) {
	if vSOL <= 0 || vTokens <= 0 {
		return
	}
	s.vSOL, s.vTokens = vSOL, vTokens
	if vSOL > s.peakVSOL {
		s.peakVSOL = vSOL
	}
}

func (s *mintStats) pruneRecent(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(s.recent) && s.recent[i].Before(cutoff) {
		i++
	}
	s.recent = s.recent[i:]
}

// creatorSoldPct - проданная создателем доля начального пакета, %
func (s *mintStats) creatorSoldPct() float64 {
	if s.creatorInitial <= 0 {
		return 0
	}
	return utils.Clamp(s.creatorSold/s.creatorInitial*100, 0, 100)
}

// liquidityDropPct - падение виртуальных резервов SOL от пика, %
func (s *mintStats) liquidityDropPct() float64 {
	if s.peakVSOL <= 0 || s.vSOL >= s.peakVSOL {
		return 0
	}
	return (s.peakVSOL - s.vSOL) / s.peakVSOL * 100
}

func (s *mintStats) holdings() []float64 {
	out := make([]float64, 0, len(s.balances))
	for _, b := range s.balances {
		if b > 0 {
			out = append(out, b)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

func (a *Aggregator) metricsLocked(s *mintStats) bot.MetricsUpdate {
	h := s.holdings()
	top := 0.0
	if len(h) > 0 {
		top = h[0] / a.config.TotalSupply * 100
	}
	return bot.MetricsUpdate{
		HolderCount:         len(h),
		TopHolderPct:        top,
		VolumeSOL:           s.buyVolume + s.sellVolume,
		NetFlowSOL:          s.buyVolume - s.sellVolume,
		DistributionEntropy: NormalizedEntropy(h),
	}
}

// ============================================================
// Контекст анализа
// ============================================================

// Context строит контекст оценки входа по накопленной статистике
func (a *Aggregator) Context(mint string) (bot.TokenAnalysisContext, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.mints[mint]
	if !ok {
		return bot.TokenAnalysisContext{}, false
	}

	flow := a.orderFlowLocked(s)
	tc := bot.TokenAnalysisContext{
		Mint:            mint,
		Creator:         s.creator,
		OrderFlow:       flow,
		Distribution:    a.distributionLocked(s),
		CreatorBehavior: a.creatorBehaviorLocked(s),
		SOLReserves:     s.vSOL,
		TokenReserves:   s.vTokens,
	}

	if pct := s.creatorSoldPct(); pct > 0 && len(s.creatorSellTimes) > 0 {
		// Время слива фиксируется при пересечении порога, последующие продажи его не сдвигают
		at := s.creatorDumpAt
		if at.IsZero() {
			at = s.creatorSellTimes[len(s.creatorSellTimes)-1]
		}
		tc.CreatorSell = &bot.CreatorSellInfo{
			PctSold:    pct,
			WithinSecs: int64(at.Sub(s.createdAt) / time.Second),
		}
	}

	tc.DataCompleteness, tc.MissingData = a.completenessLocked(s)
	tc.ConfidenceScore = utils.Clamp(tc.DataCompleteness*(0.5+0.5*flow.OrganicScore), 0, 1)
	return tc, true
}

func (a *Aggregator) orderFlowLocked(s *mintStats) bot.OrderFlowAnalysis {
	var flow bot.OrderFlowAnalysis

	total := s.buyVolume + s.sellVolume
	if total > 0 {
		flow.BuySellRatio = s.buyVolume / total

		var wash float64
		for _, tr := range s.traders {
			if tr.buys > 0 && tr.sells > 0 && tr.soldTokens >= a.config.WashRoundTripPct*tr.boughtTokens {
				wash += tr.volumeSOL
			}
		}
		flow.WashTradingScore = utils.Clamp(wash/total, 0, 1)
	}

	if s.trades > 0 {
		uniqueness := float64(len(s.traders)) / float64(s.trades)
		flow.OrganicScore = utils.Clamp((0.6*uniqueness+0.4*flow.BuySellRatio)*(1-flow.WashTradingScore), 0, 1)
	}

	if early := s.earlyBuyVolume + s.earlySellVolume; early > 0 {
		flow.EarlySellPressure = s.earlySellVolume / early
	}

	n := len(s.recent)
	flow.BurstDetected = n >= a.config.BurstTrades
	flow.BurstIntensity = utils.Clamp(float64(n)/float64(2*a.config.BurstTrades), 0, 1)
	return flow
}

func (a *Aggregator) distributionLocked(s *mintStats) bot.TokenDistribution {
	h := s.holdings()
	supply := a.config.TotalSupply

	dist := bot.TokenDistribution{
		HolderCount:     len(h),
		GiniCoefficient: Gini(h),
	}
	if len(h) == 0 {
		return dist
	}

	dist.TopHolderPct = h[0] / supply
	var top10 float64
	for i := 0; i < len(h) && i < 10; i++ {
		top10 += h[i]
	}
	dist.Top10HoldersPct = top10 / supply

	var snipers float64
	for addr, tr := range s.traders {
		if s.creator == "" || addr == s.creator || tr.buys == 0 {
			continue
		}
		if tr.firstBuyAt.Sub(s.createdAt) <= a.config.SniperWindow {
			snipers += s.balances[addr]
		}
	}
	dist.SniperHoldingsPct = snipers / supply
	if s.creator != "" {
		dist.DeployerHoldingsPct = s.balances[s.creator] / supply
	}
	return dist
}

func (a *Aggregator) creatorBehaviorLocked(s *mintStats) bot.CreatorBehavior {
	b := bot.CreatorBehavior{
		SellCount:    len(s.creatorSellTimes),
		TotalSoldPct: s.creatorSoldPct(),
	}
	if n := len(s.creatorSellTimes); n > 1 {
		span := s.creatorSellTimes[n-1].Sub(s.creatorSellTimes[0])
		b.AvgSellIntervalSecs = int64(span/time.Second) / int64(n-1)
		b.SellingConsistently = n >= 3 && b.AvgSellIntervalSecs <= 60
	}
	return b
}

func (a *Aggregator) completenessLocked(s *mintStats) (float64, []string) {
	var score float64
	var missing []string

	if s.creator != "" {
		score += 0.25
	} else {
		missing = append(missing, "creator")
	}
	if s.vSOL > 0 && s.vTokens > 0 {
		score += 0.25
	} else {
		missing = append(missing, "reserves")
	}
	if a.config.MinTrades <= 0 || s.trades >= a.config.MinTrades {
		score += 0.25
	} else {
		score += 0.25 * float64(s.trades) / float64(a.config.MinTrades)
		missing = append(missing, fmt.Sprintf("trades (%d/%d)", s.trades, a.config.MinTrades))
	}
	if holders := len(s.balances); a.config.MinHolders <= 0 || holders >= a.config.MinHolders {
		score += 0.25
	} else {
		score += 0.25 * float64(holders) / float64(a.config.MinHolders)
		missing = append(missing, fmt.Sprintf("holders (%d/%d)", holders, a.config.MinHolders))
	}
	return score, missing
}

// ============================================================
// Прогноз rug pull
// ============================================================

// PredictRug - эвристический прогноз по продажам создателя, оттоку ликвидности
// и давлению продаж. nil, если данных по токену нет.
func (a *Aggregator) PredictRug(mint string) *models.RugPrediction {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.mints[mint]
	if !ok || s.trades == 0 {
		return nil
	}

	var p float64
	var warnings []string

	switch sold := s.creatorSoldPct(); {
	case sold >= 50:
		p += 0.4
		warnings = append(warnings, fmt.Sprintf("Creator sold %.0f%%", sold))
	case sold >= 20:
		p += 0.2
		warnings = append(warnings, fmt.Sprintf("Creator sold %.0f%%", sold))
	}

	switch drop := s.liquidityDropPct(); {
	case drop >= 30:
		p += 0.3
		warnings = append(warnings, fmt.Sprintf("Liquidity down %.0f%% from peak", drop))
	case drop >= 15:
		p += 0.15
		warnings = append(warnings, fmt.Sprintf("Liquidity down %.0f%% from peak", drop))
	}

	if len(s.recentSells) >= 10 {
		sells := 0
		for _, sell := range s.recentSells {
			if sell {
				sells++
			}
		}
		if ratio := float64(sells) / float64(len(s.recentSells)); ratio >= 0.8 {
			p += 0.2
			warnings = append(warnings, fmt.Sprintf("%.0f%% of recent trades are sells", ratio*100))
		}
	}

	if h := s.holdings(); len(h) > 0 && h[0]/a.config.TotalSupply > 0.2 {
		p += 0.1
		warnings = append(warnings, fmt.Sprintf("Top holder owns %.0f%%", h[0]/a.config.TotalSupply*100))
	}

	p = utils.Clamp(p, 0, 1)
	recommendation := "Monitor"
	switch {
	case p >= 0.7:
		recommendation = "Exit immediately"
	case p >= 0.4:
		recommendation = "Reduce exposure"
	}

	return &models.RugPrediction{
		Mint:           mint,
		Probability:    p,
		Warnings:       warnings,
		Recommendation: recommendation,
	}
}

// ============================================================
// Обслуживание
// ============================================================

// Mints - сколько токенов отслеживается
func (a *Aggregator) Mints() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.mints)
}

// Ready возвращает mint токенов, набравших minTrades сделок не позже maxAge после создания
func (a *Aggregator) Ready(minTrades int, maxAge time.Duration) []string {
	now := a.now()

	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []string
	for mint, s := range a.mints {
		if s.trades < minTrades {
			continue
		}
		if maxAge > 0 && now.Sub(s.createdAt) > maxAge {
			continue
		}
		out = append(out, mint)
	}
	sort.Strings(out)
	return out
}

// Prune удаляет токены без сделок дольше IdleTTL и возвращает их mint
func (a *Aggregator) Prune() []string {
	if a.config.IdleTTL <= 0 {
		return nil
	}
	cutoff := a.now().Add(-a.config.IdleTTL)

	a.mu.Lock()
	defer a.mu.Unlock()

	var removed []string
	for mint, s := range a.mints {
		if s.lastSeen.Before(cutoff) {
			delete(a.mints, mint)
			removed = append(removed, mint)
		}
	}
	TrackedMints.Set(float64(len(a.mints)))
	sort.Strings(removed)
	return removed
}

func (a *Aggregator) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for mint, s := range a.mints {
		if oldest == "" || s.lastSeen.Before(oldestAt) {
			oldest, oldestAt = mint, s.lastSeen
		}
	}
	if oldest != "" {
		delete(a.mints, oldest)
	}
}

// ============================================================
// Метрики распределения
// ============================================================

// NormalizedEntropy - энтропия Шеннона долей держателей, нормированная на log2(n).
// 1 - равномерное распределение, 0 - один держатель.
func NormalizedEntropy(balances []float64) float64 {
	if len(balances) < 2 {
		return 0
	}
	var total float64
	for _, b := range balances {
		total += b
	}
	if total <= 0 {
		return 0
	}

	var h float64
	for _, b := range balances {
		if b <= 0 {
			continue
		}
		p := b / total
		h -= p * math.Log2(p)
	}
	return utils.Clamp(h/math.Log2(float64(len(balances))), 0, 1)
}

// Gini - коэффициент Джини балансов (0 - равенство, ->1 - концентрация)
func Gini(balances []float64) float64 {
	n := len(balances)
	if n < 2 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, balances)
	sort.Float64s(sorted)

	var cum, total float64
	for i, b := range sorted {
		cum += float64(i+1) * b
		total += b
	}
	if total <= 0 {
		return 0
	}
	return (2*cum)/(float64(n)*total) - float64(n+1)/float64(n)
}
