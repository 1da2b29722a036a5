package bot

import (
	"context"
	"sync"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

// ============================================================
// FatalRiskEngine - kill switch
// ============================================================
//
// Абсолютный фильтр перед любым анализом. Проверки упорядочены
// от дешёвых к дорогим, первая сработавшая побеждает:
// blacklist -> known rug deployer -> authorities -> creator dump ->
// liquidity -> exit slippage -> liquidity collapse -> wash trading ->
// honeypot -> already rugged -> chain congestion.

const (
	liquidityCollapseDropPct = 50.0
	honeypotFailedSells      = 2
	defaultBlacklistReason   = "Previously blacklisted"
)

// KnownDeployerCache - внешний кэш истории создателей токенов
type KnownDeployerCache interface {
	IsKnownDeployer(ctx context.Context, address string) (bool, error)
	GetWallet(ctx context.Context, address string) (*models.DeployerRecord, error)
}

// PrivilegeReader - читатель mint/freeze authority токена
type PrivilegeReader interface {
	ReadPrivileges(ctx context.Context, mint string) (models.CreatorPrivileges, error)
}

// FatalRiskConfig - пороги фатальных проверок
type FatalRiskConfig struct {
	CheckMintAuthority   bool `json:"check_mint_authority"`
	CheckFreezeAuthority bool `json:"check_freeze_authority"`

	// Неизвестный статус authority считается опасным
	RejectUnknownPrivileges bool `json:"reject_unknown_privileges"`

	MaxCreatorDumpPct    float64 `json:"max_creator_dump_pct"`
	MaxCreatorDumpSecs   int64   `json:"max_creator_dump_secs"`
	MinExitLiquiditySOL  float64 `json:"min_exit_liquidity_sol"`
	MaxExitSlippagePct   float64 `json:"max_exit_slippage_pct"`
	WashTradingThreshold float64 `json:"wash_trading_threshold"`
	RugPriceDropPct      float64 `json:"rug_price_drop_pct"`
}

// DefaultFatalRiskConfig возвращает конфигурацию по умолчанию
func DefaultFatalRiskConfig() FatalRiskConfig {
	return FatalRiskConfig{
		CheckMintAuthority:      true,
		CheckFreezeAuthority:    true,
		RejectUnknownPrivileges: true,
		MaxCreatorDumpPct:       20.0,
		MaxCreatorDumpSecs:      60,
		MinExitLiquiditySOL:     0.05,
		MaxExitSlippagePct:      50.0,
		WashTradingThreshold:    0.8,
		RugPriceDropPct:         80.0,
	}
}

// CreatorSellInfo - сколько создатель продал и за сколько секунд после запуска
type CreatorSellInfo struct {
	PctSold    float64 `json:"pct_sold"`
	WithinSecs int64   `json:"within_secs"`
}

// FatalRiskContext - входные данные фатальных проверок
type FatalRiskContext struct {
	Mint    string
	Creator string

	Privileges models.CreatorPrivileges

	CreatorSell *CreatorSellInfo

	EffectiveLiquiditySOL float64
	ExitSlippagePct       float64
	MinPositionSOL        float64
	LiquidityDropPct      *float64

	WashTradingScore float64
	FailedSellCount  int
	PriceDropFromATH float64

	ChainCongestionCritical bool
}

// NewFatalRiskContext создаёт контекст с неизвестными привилегиями
func NewFatalRiskContext(mint, creator string) FatalRiskContext {
	return FatalRiskContext{
		Mint:       mint,
		Creator:    creator,
		Privileges: models.UnknownPrivileges(),
	}
}

// WithLiquidity заполняет данные ликвидности
func (c FatalRiskContext) WithLiquidity(effectiveSOL, exitSlippagePct, minPositionSOL float64) FatalRiskContext {
	c.EffectiveLiquiditySOL = effectiveSOL
	c.ExitSlippagePct = exitSlippagePct
	c.MinPositionSOL = minPositionSOL
	return c
}

// WithPrivileges заполняет статус authorities
func (c FatalRiskContext) WithPrivileges(p models.CreatorPrivileges) FatalRiskContext {
	c.Privileges = p
	return c
}

// FatalRiskEngine проверяет условия немедленного отказа.
// Локальные наборы blacklist/rug deployers защищены RWMutex.
type FatalRiskEngine struct {
	config FatalRiskConfig

	cache KnownDeployerCache

	blacklist    map[string]string // адрес -> причина
	rugDeployers map[string]struct{}
	mu           sync.RWMutex
	logger       *utils.Logger
}

// NewFatalRiskEngine создаёт движок; cache может быть nil
func NewFatalRiskEngine(cfg FatalRiskConfig, cache KnownDeployerCache, logger *utils.Logger) *FatalRiskEngine {
	return &FatalRiskEngine{
		config:       cfg,
		cache:        cache,
		blacklist:    make(map[string]string),
		rugDeployers: make(map[string]struct{}),
		logger:       utils.OrGlobal(logger).WithComponent("fatal_risk"),
	}
}

// Config возвращает конфигурацию
func (e *FatalRiskEngine) Config() FatalRiskConfig {
	return e.config
}

// SetCache подключает внешний кэш создателей
func (e *FatalRiskEngine) SetCache(cache KnownDeployerCache) {
	e.mu.Lock()
	e.cache = cache
	e.mu.Unlock()
}

// AddKnownDeployer добавляет адрес в локальный набор rug deployers
func (e *FatalRiskEngine) AddKnownDeployer(address string) {
	e.mu.Lock()
	e.rugDeployers[address] = struct{}{}
	e.mu.Unlock()
}

// RemoveKnownDeployer удаляет адрес из локального набора
func (e *FatalRiskEngine) RemoveKnownDeployer(address string) {
	e.mu.Lock()
	delete(e.rugDeployers, address)
	e.mu.Unlock()
}

// AddToBlacklist блокирует токен
func (e *FatalRiskEngine) AddToBlacklist(mint, reason string) {
	if reason == "" {
		reason = defaultBlacklistReason
	}
	e.mu.Lock()
	e.blacklist[mint] = reason
	e.mu.Unlock()

	e.logger.Warn("token blacklisted", utils.Mint(mint), utils.String("reason", reason))
}

// RemoveFromBlacklist снимает блокировку токена
func (e *FatalRiskEngine) RemoveFromBlacklist(mint string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.blacklist[mint]; !ok {
		return false
	}
	delete(e.blacklist, mint)
	return true
}

// IsBlacklisted проверяет, заблокирован ли токен
func (e *FatalRiskEngine) IsBlacklisted(mint string) bool {
	e.mu.RLock()
	_, ok := e.blacklist[mint]
	e.mu.RUnlock()
	return ok
}

// BlacklistSize возвращает размер локального blacklist
func (e *FatalRiskEngine) BlacklistSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.blacklist)
}

// Check выполняет все проверки; nil означает отсутствие фатальных рисков
func (e *FatalRiskEngine) Check(ctx context.Context, fc FatalRiskContext) *models.FatalRisk {
	if risk := e.checkKnownActors(ctx, fc.Mint, fc.Creator, true); risk != nil {
		return risk
	}

	cfg := e.config

	if cfg.CheckMintAuthority {
		if risk := e.checkPrivilege(fc.Privileges.MintStatus(), models.FatalMintAuthorityActive, "mint authority"); risk != nil {
			return risk
		}
	}
	if cfg.CheckFreezeAuthority {
		if risk := e.checkPrivilege(fc.Privileges.FreezeStatus(), models.FatalFreezeAuthorityActive, "freeze authority"); risk != nil {
			return risk
		}
	}

	if s := fc.CreatorSell; s != nil && s.PctSold > cfg.MaxCreatorDumpPct && s.WithinSecs < cfg.MaxCreatorDumpSecs {
		return &models.FatalRisk{Kind: models.FatalCreatorDumpedEarly, PctSold: s.PctSold, WithinSecs: s.WithinSecs}
	}

	if fc.EffectiveLiquiditySOL < cfg.MinExitLiquiditySOL {
		return &models.FatalRisk{
			Kind:        models.FatalInsufficientLiquidity,
			AmountSOL:   fc.EffectiveLiquiditySOL,
			RequiredSOL: cfg.MinExitLiquiditySOL,
		}
	}

	if fc.ExitSlippagePct > cfg.MaxExitSlippagePct {
		return &models.FatalRisk{
			Kind:        models.FatalExitImpossible,
			AmountSOL:   fc.MinPositionSOL,
			SlippagePct: fc.ExitSlippagePct,
		}
	}

	if d := fc.LiquidityDropPct; d != nil && *d > liquidityCollapseDropPct {
		return &models.FatalRisk{Kind: models.FatalLiquidityCollapsed, DropPct: *d}
	}

	if fc.WashTradingScore > cfg.WashTradingThreshold {
		return &models.FatalRisk{Kind: models.FatalWashTradingConfirmed, WashPct: fc.WashTradingScore * 100}
	}

	if fc.FailedSellCount > honeypotFailedSells {
		return &models.FatalRisk{Kind: models.FatalHoneypotDetected, FailedSells: fc.FailedSellCount}
	}

	if fc.PriceDropFromATH > cfg.RugPriceDropPct {
		return &models.FatalRisk{Kind: models.FatalAlreadyRugged, DropPct: fc.PriceDropFromATH}
	}

	if fc.ChainCongestionCritical {
		return &models.FatalRisk{Kind: models.FatalChainCongestion}
	}

	return nil
}

// QuickCheck - только известные плохие акторы, для горячего пути
func (e *FatalRiskEngine) QuickCheck(ctx context.Context, mint, creator string) *models.FatalRisk {
	return e.checkKnownActors(ctx, mint, creator, false)
}

// checkKnownActors: blacklist, локальный набор, затем внешний кэш.
// withHistory запрашивает количество прошлых рагов у кэша.
func (e *FatalRiskEngine) checkKnownActors(ctx context.Context, mint, creator string, withHistory bool) *models.FatalRisk {
	e.mu.RLock()
	reason, blacklisted := e.blacklist[mint]
	_, knownRugger := e.rugDeployers[creator]
	cache := e.cache
	e.mu.RUnlock()

	if blacklisted {
		return &models.FatalRisk{Kind: models.FatalTokenBlacklisted, Reason: reason}
	}
	if knownRugger {
		return &models.FatalRisk{Kind: models.FatalKnownRugDeployer}
	}
	if cache == nil || creator == "" {
		return nil
	}

	known, err := cache.IsKnownDeployer(ctx, creator)
	if err != nil {
		e.logger.Warn("known deployer lookup failed", utils.Creator(creator), utils.Err(err))
		return nil
	}
	if !known {
		return nil
	}

	risk := &models.FatalRisk{Kind: models.FatalKnownRugDeployer}
	if !withHistory {
		return risk
	}

	rec, err := cache.GetWallet(ctx, creator)
	if err != nil {
		e.logger.Warn("deployer history lookup failed", utils.Creator(creator), utils.Err(err))
		return risk
	}
	if rec != nil && rec.RuggedCount > 0 {
		risk.PriorRugs = rec.RuggedCount
	}
	return risk
}

func (e *FatalRiskEngine) checkPrivilege(status models.PrivilegeStatus, activeKind models.FatalRiskKind, name string) *models.FatalRisk {
	switch status {
	case models.PrivilegeActive:
		return &models.FatalRisk{Kind: activeKind}
	case models.PrivilegeUnknown:
		if e.config.RejectUnknownPrivileges {
			return &models.FatalRisk{Kind: models.FatalPrivilegesUnknown, Unresolved: name}
		}
	}
	return nil
}
