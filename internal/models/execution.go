package models

import "time"

// ExecutionRecord - одно событие исполнения (заполнение или отказ)
type ExecutionRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	Mint             string    `json:"mint"`
	Side             Side      `json:"side"`
	RequestedSizeSOL float64   `json:"requested_size_sol"`
	FilledSizeSOL    float64   `json:"filled_size_sol"`
	ExpectedPrice    float64   `json:"expected_price"`
	ActualPrice      float64   `json:"actual_price"`
	SlippagePct      float64   `json:"slippage_pct"`
	LatencyMs        int64     `json:"latency_ms"`
	Success          bool      `json:"success"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	TxSignature      string    `json:"tx_signature,omitempty"`
}

// BuySlippagePct - проскальзывание покупки: заплатили больше ожидаемого
func BuySlippagePct(expected, actual float64) float64 {
	if expected <= 0 {
		return 0
	}
	return (actual - expected) / expected * 100
}

// SellSlippagePct - проскальзывание продажи: получили меньше ожидаемого
func SellSlippagePct(expected, actual float64) float64 {
	if expected <= 0 {
		return 0
	}
	return (expected - actual) / expected * 100
}

// NewSuccessRecord создаёт запись успешного исполнения
func NewSuccessRecord(mint string, side Side, requested, filled, expectedPrice, actualPrice float64, latencyMs int64, txSig string) ExecutionRecord {
	slippage := BuySlippagePct(expectedPrice, actualPrice)
	if side == SideSell {
		slippage = SellSlippagePct(expectedPrice, actualPrice)
	}
	return ExecutionRecord{
		Timestamp:        time.Now(),
		Mint:             mint,
		Side:             side,
		RequestedSizeSOL: requested,
		FilledSizeSOL:    filled,
		ExpectedPrice:    expectedPrice,
		ActualPrice:      actualPrice,
		SlippagePct:      slippage,
		LatencyMs:        latencyMs,
		Success:          true,
		TxSignature:      txSig,
	}
}

// NewFailureRecord создаёт запись неудачного исполнения
func NewFailureRecord(mint string, side Side, requested, expectedPrice float64, latencyMs int64, reason string) ExecutionRecord {
	return ExecutionRecord{
		Timestamp:        time.Now(),
		Mint:             mint,
		Side:             side,
		RequestedSizeSOL: requested,
		ExpectedPrice:    expectedPrice,
		LatencyMs:        latencyMs,
		Success:          false,
		FailureReason:    reason,
	}
}

// ExecutionQuality - агрегированное качество исполнения за последний час
type ExecutionQuality struct {
	AvgSlippagePct       float64 `json:"avg_slippage_pct"`
	AvgLatencyMs         float64 `json:"avg_latency_ms"`
	FillRate             float64 `json:"fill_rate"`
	RecentFailures       int     `json:"recent_failures"`
	ConfidenceAdjustment float64 `json:"confidence_adjustment"`
	ShouldReduceSize     bool    `json:"should_reduce_size"`
	ShouldPauseTrading   bool    `json:"should_pause_trading"`
	SampleCount          int     `json:"sample_count"`
}
