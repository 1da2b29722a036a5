package models

import (
	"fmt"
	"strings"
)

// ============================================================
// Фатальные риски
// ============================================================

// FatalRiskKind - тип фатального риска (kill switch)
type FatalRiskKind string

const (
	FatalMintAuthorityActive   FatalRiskKind = "MINT_AUTHORITY_ACTIVE"
	FatalFreezeAuthorityActive FatalRiskKind = "FREEZE_AUTHORITY_ACTIVE"
	FatalPrivilegesUnknown     FatalRiskKind = "PRIVILEGES_UNKNOWN"
	FatalKnownRugDeployer      FatalRiskKind = "KNOWN_RUG_DEPLOYER"
	FatalCreatorDumpedEarly    FatalRiskKind = "CREATOR_DUMPED_EARLY"
	FatalLiquidityCollapsed    FatalRiskKind = "LIQUIDITY_COLLAPSED"
	FatalExitImpossible        FatalRiskKind = "EXIT_IMPOSSIBLE"
	FatalInsufficientLiquidity FatalRiskKind = "INSUFFICIENT_LIQUIDITY"
	FatalWashTradingConfirmed  FatalRiskKind = "WASH_TRADING_CONFIRMED"
	FatalHoneypotDetected      FatalRiskKind = "HONEYPOT_DETECTED"
	FatalAlreadyRugged         FatalRiskKind = "ALREADY_RUGGED"
	FatalChainCongestion       FatalRiskKind = "CHAIN_CONGESTION_CRITICAL"
	FatalTokenBlacklisted      FatalRiskKind = "TOKEN_BLACKLISTED"
)

// FatalRisk - найденный фатальный риск вместе с его данными
type FatalRisk struct {
	Kind FatalRiskKind `json:"kind"`

	PriorRugs   int     `json:"prior_rugs,omitempty"`   // KnownRugDeployer
	PctSold     float64 `json:"pct_sold,omitempty"`     // CreatorDumpedEarly
	WithinSecs  int64   `json:"within_secs,omitempty"`  // CreatorDumpedEarly
	DropPct     float64 `json:"drop_pct,omitempty"`     // LiquidityCollapsed, AlreadyRugged
	AmountSOL   float64 `json:"amount_sol,omitempty"`   // ExitImpossible, InsufficientLiquidity
	RequiredSOL float64 `json:"required_sol,omitempty"` // InsufficientLiquidity
	SlippagePct float64 `json:"slippage_pct,omitempty"` // ExitImpossible
	WashPct     float64 `json:"wash_pct,omitempty"`     // WashTradingConfirmed
	FailedSells int     `json:"failed_sells,omitempty"` // HoneypotDetected
	Reason      string  `json:"reason,omitempty"`       // TokenBlacklisted
	Unresolved  string  `json:"unresolved,omitempty"`   // PrivilegesUnknown
}

// Description возвращает человекочитаемое описание риска
func (r *FatalRisk) Description() string {
	switch r.Kind {
	case FatalMintAuthorityActive:
		return "Creator retains mint authority - can create unlimited tokens"
	case FatalFreezeAuthorityActive:
		return "Creator retains freeze authority - can freeze your tokens"
	case FatalPrivilegesUnknown:
		return fmt.Sprintf("Creator privileges unknown (%s) - treated as unsafe", r.Unresolved)
	case FatalKnownRugDeployer:
		return fmt.Sprintf("Known rug deployer with %d prior rugs", r.PriorRugs)
	case FatalCreatorDumpedEarly:
		return fmt.Sprintf("Creator dumped %.1f%% within %ds of launch", r.PctSold, r.WithinSecs)
	case FatalLiquidityCollapsed:
		return fmt.Sprintf("Liquidity collapsed by %.1f%%", r.DropPct)
	case FatalExitImpossible:
		return fmt.Sprintf("Cannot exit %.3f SOL without %.1f%% slippage", r.AmountSOL, r.SlippagePct)
	case FatalInsufficientLiquidity:
		return fmt.Sprintf("Liquidity %.3f SOL below minimum %.3f SOL", r.AmountSOL, r.RequiredSOL)
	case FatalWashTradingConfirmed:
		return fmt.Sprintf("Wash trading confirmed at %.1f%%", r.WashPct)
	case FatalHoneypotDetected:
		return fmt.Sprintf("Honeypot detected - %d sell transactions failed", r.FailedSells)
	case FatalAlreadyRugged:
		return fmt.Sprintf("Token already rugged - price dropped %.1f%%", r.DropPct)
	case FatalChainCongestion:
		return "Chain congestion is critical - cannot execute safely"
	case FatalTokenBlacklisted:
		return "Token blacklisted: " + r.Reason
	default:
		return string(r.Kind)
	}
}

// IsCreatorRisk - риск связан с создателем токена
func (r *FatalRisk) IsCreatorRisk() bool {
	switch r.Kind {
	case FatalMintAuthorityActive, FatalFreezeAuthorityActive, FatalPrivilegesUnknown,
		FatalKnownRugDeployer, FatalCreatorDumpedEarly:
		return true
	}
	return false
}

// IsLiquidityRisk - риск связан с ликвидностью
func (r *FatalRisk) IsLiquidityRisk() bool {
	switch r.Kind {
	case FatalLiquidityCollapsed, FatalExitImpossible, FatalInsufficientLiquidity:
		return true
	}
	return false
}

// ============================================================
// Привилегии создателя
// ============================================================

// PrivilegeStatus - состояние authority токена
type PrivilegeStatus string

const (
	PrivilegeUnknown PrivilegeStatus = "UNKNOWN" // не удалось прочитать
	PrivilegeRevoked PrivilegeStatus = "REVOKED" // отозвана
	PrivilegeActive  PrivilegeStatus = "ACTIVE"  // активна у создателя
)

// CreatorPrivileges - привилегии создателя, прочитанные из mint-аккаунта.
// Нулевое значение означает "ничего не известно".
type CreatorPrivileges struct {
	MintAuthority   PrivilegeStatus `json:"mint_authority"`
	FreezeAuthority PrivilegeStatus `json:"freeze_authority"`
}

// UnknownPrivileges - привилегии не прочитаны
func UnknownPrivileges() CreatorPrivileges {
	return CreatorPrivileges{MintAuthority: PrivilegeUnknown, FreezeAuthority: PrivilegeUnknown}
}

func normalizeStatus(s PrivilegeStatus) PrivilegeStatus {
	if s == "" {
		return PrivilegeUnknown
	}
	return s
}

// MintStatus возвращает статус mint authority (пусто = Unknown)
func (p CreatorPrivileges) MintStatus() PrivilegeStatus {
	return normalizeStatus(p.MintAuthority)
}

// FreezeStatus возвращает статус freeze authority (пусто = Unknown)
func (p CreatorPrivileges) FreezeStatus() PrivilegeStatus {
	return normalizeStatus(p.FreezeAuthority)
}

// RiskScore - 0 безопасно, 1 максимальный риск. Unknown считается активной.
func (p CreatorPrivileges) RiskScore() float64 {
	score := 0.0
	if p.MintStatus() != PrivilegeRevoked {
		score += 0.5
	}
	if p.FreezeStatus() != PrivilegeRevoked {
		score += 0.4
	}
	return score
}

// Summary возвращает короткое описание для логов
func (p CreatorPrivileges) Summary() string {
	if p.MintStatus() == PrivilegeRevoked && p.FreezeStatus() == PrivilegeRevoked {
		return "All authorities renounced (safe)"
	}
	var issues []string
	switch p.MintStatus() {
	case PrivilegeActive:
		issues = append(issues, "MINT AUTHORITY ACTIVE")
	case PrivilegeUnknown:
		issues = append(issues, "mint authority unknown")
	}
	switch p.FreezeStatus() {
	case PrivilegeActive:
		issues = append(issues, "FREEZE AUTHORITY ACTIVE")
	case PrivilegeUnknown:
		issues = append(issues, "freeze authority unknown")
	}
	return strings.Join(issues, ", ")
}

// ============================================================
// Портфельные блокировки
// ============================================================

// PortfolioBlockKind - причина запрета новых позиций
type PortfolioBlockKind string

const (
	BlockMaxPositionsReached   PortfolioBlockKind = "MAX_POSITIONS_REACHED"
	BlockMaxExposureReached    PortfolioBlockKind = "MAX_EXPOSURE_REACHED"
	BlockCircuitBreakerTripped PortfolioBlockKind = "CIRCUIT_BREAKER_TRIPPED"
	BlockConsecutiveLossLimit  PortfolioBlockKind = "CONSECUTIVE_LOSS_LIMIT"
	BlockDailyLossLimitReached PortfolioBlockKind = "DAILY_LOSS_LIMIT_REACHED"
	BlockPositionTooLarge      PortfolioBlockKind = "POSITION_TOO_LARGE"
	BlockTradingPaused         PortfolioBlockKind = "TRADING_PAUSED"
	BlockPositionAlreadyOpen   PortfolioBlockKind = "POSITION_ALREADY_OPEN"
)

// PortfolioBlock - блокировка открытия позиции с данными
type PortfolioBlock struct {
	Kind PortfolioBlockKind `json:"kind"`

	Current      int     `json:"current,omitempty"`        // MaxPositions, ConsecutiveLoss
	Max          int     `json:"max,omitempty"`            // MaxPositions, ConsecutiveLoss
	CurrentSOL   float64 `json:"current_sol,omitempty"`    // MaxExposure, PositionTooLarge, loss limits
	LimitSOL     float64 `json:"limit_sol,omitempty"`      // MaxExposure, PositionTooLarge, loss limits
	Reason       string  `json:"reason,omitempty"`         // TradingPaused, PositionAlreadyOpen
	ResumeInSecs int64   `json:"resume_in_secs,omitempty"` // TradingPaused
}

// Description возвращает человекочитаемое описание блокировки
func (b *PortfolioBlock) Description() string {
	switch b.Kind {
	case BlockMaxPositionsReached:
		return fmt.Sprintf("Max positions reached: %d/%d", b.Current, b.Max)
	case BlockMaxExposureReached:
		return fmt.Sprintf("Max exposure reached: %.3f/%.3f SOL", b.CurrentSOL, b.LimitSOL)
	case BlockCircuitBreakerTripped:
		return fmt.Sprintf("Circuit breaker: hourly loss %.3f exceeds limit %.3f SOL", b.CurrentSOL, b.LimitSOL)
	case BlockConsecutiveLossLimit:
		return fmt.Sprintf("Consecutive losses: %d/%d", b.Current, b.Max)
	case BlockDailyLossLimitReached:
		return fmt.Sprintf("Daily loss limit: %.3f/%.3f SOL", b.CurrentSOL, b.LimitSOL)
	case BlockPositionTooLarge:
		return fmt.Sprintf("Position too large: %.3f SOL exceeds max %.3f SOL", b.CurrentSOL, b.LimitSOL)
	case BlockTradingPaused:
		return fmt.Sprintf("Trading paused: %s (resume in %ds)", b.Reason, b.ResumeInSecs)
	case BlockPositionAlreadyOpen:
		return "Position already open: " + b.Reason
	default:
		return string(b.Kind)
	}
}

// PortfolioState - снимок портфеля, пересчитывается по запросу
type PortfolioState struct {
	OpenPositionCount    int     `json:"open_position_count"`
	TotalExposureSOL     float64 `json:"total_exposure_sol"`
	UnrealizedPnLSOL     float64 `json:"unrealized_pnl_sol"`
	HourlyRealizedPnLSOL float64 `json:"hourly_realized_pnl_sol"`
	DailyRealizedPnLSOL  float64 `json:"daily_realized_pnl_sol"`
	ConsecutiveLosses    int     `json:"consecutive_losses"`
	CanOpenNew           bool    `json:"can_open_new"`
	ReasonIfBlocked      string  `json:"reason_if_blocked,omitempty"`
	Paused               bool    `json:"paused"`
	PauseReason          string  `json:"pause_reason,omitempty"`
}
