package models

import "fmt"

// CongestionLevel - уровень загруженности сети
type CongestionLevel string

const (
	CongestionNormal   CongestionLevel = "NORMAL"   // работаем как обычно
	CongestionElevated CongestionLevel = "ELEVATED" // поднимаем priority fee
	CongestionHigh     CongestionLevel = "HIGH"     // уменьшаем размер
	CongestionSevere   CongestionLevel = "SEVERE"   // новые входы на паузе
	CongestionCritical CongestionLevel = "CRITICAL" // только выходы
)

// ChainActionKind - тип рекомендации монитора сети
type ChainActionKind string

const (
	ChainProceedNormally     ChainActionKind = "PROCEED_NORMALLY"
	ChainReducePositionSize  ChainActionKind = "REDUCE_POSITION_SIZE"
	ChainIncreasePriorityFee ChainActionKind = "INCREASE_PRIORITY_FEE"
	ChainPauseNewEntries     ChainActionKind = "PAUSE_NEW_ENTRIES"
	ChainExitOnlyMode        ChainActionKind = "EXIT_ONLY_MODE"
)

// ChainAction - рекомендуемое действие при текущей загрузке сети
type ChainAction struct {
	Kind ChainActionKind `json:"kind"`

	Factor     float64 `json:"factor,omitempty"`      // ReducePositionSize
	ToLamports uint64  `json:"to_lamports,omitempty"` // IncreasePriorityFee
}

// ProceedNormally - без ограничений
func ProceedNormally() ChainAction {
	return ChainAction{Kind: ChainProceedNormally}
}

// ReducePositionSize - уменьшить размер в factor раз
func ReducePositionSize(factor float64) ChainAction {
	return ChainAction{Kind: ChainReducePositionSize, Factor: factor}
}

// IncreasePriorityFee - поднять priority fee до toLamports
func IncreasePriorityFee(toLamports uint64) ChainAction {
	return ChainAction{Kind: ChainIncreasePriorityFee, ToLamports: toLamports}
}

// PauseNewEntries - новые входы запрещены
func PauseNewEntries() ChainAction {
	return ChainAction{Kind: ChainPauseNewEntries}
}

// ExitOnlyMode - разрешены только выходы
func ExitOnlyMode() ChainAction {
	return ChainAction{Kind: ChainExitOnlyMode}
}

// BlocksEntries возвращает true, если действие запрещает новые входы
func (a ChainAction) BlocksEntries() bool {
	return a.Kind == ChainPauseNewEntries || a.Kind == ChainExitOnlyMode
}

func (a ChainAction) String() string {
	switch a.Kind {
	case ChainReducePositionSize:
		return fmt.Sprintf("ReducePositionSize(factor=%.2f)", a.Factor)
	case ChainIncreasePriorityFee:
		return fmt.Sprintf("IncreasePriorityFee(%d)", a.ToLamports)
	case ChainPauseNewEntries:
		return "PauseNewEntries"
	case ChainExitOnlyMode:
		return "ExitOnlyMode"
	default:
		return "ProceedNormally"
	}
}

// ChainState - снимок состояния сети
type ChainState struct {
	AvgSlotTimeMs       uint64          `json:"avg_slot_time_ms"`
	TxFailureRate       float64         `json:"tx_failure_rate"`
	PriorityFeeLamports uint64          `json:"priority_fee_lamports"`
	CongestionLevel     CongestionLevel `json:"congestion_level"`
	RecommendedAction   ChainAction     `json:"recommended_action"`
}

// PerformanceSample - выборка производительности сети из RPC
type PerformanceSample struct {
	Slot             uint64 `json:"slot"`
	NumSlots         uint64 `json:"numSlots"`
	NumTransactions  uint64 `json:"numTransactions"`
	SamplePeriodSecs uint64 `json:"samplePeriodSecs"`
}
