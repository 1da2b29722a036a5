package websocket

import (
	"time"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/models"
)

// MessageType - тип сообщения потока оператора
type MessageType string

const (
	MessageDecision  MessageType = "decision"
	MessagePortfolio MessageType = "portfolio"
	MessageChain     MessageType = "chain"
	MessageExecution MessageType = "execution"
)

// Message - конверт всех сообщений: {"type": ..., "ts": ..., "data": ...}
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"ts"`
	Data      interface{} `json:"data"`
}

// DecisionData - решение по входу вместе с объяснением
type DecisionData struct {
	DecisionID   string                     `json:"decision_id"`
	Mint         string                     `json:"mint"`
	Action       models.TradingAction       `json:"action"`
	Source       models.DecisionSource      `json:"source"`
	Confidence   float64                    `json:"confidence"`
	Regime       string                     `json:"regime"`
	SizeSOL      float64                    `json:"size_sol"`
	EntryDelayMs int64                      `json:"entry_delay_ms"`
	Explanation  models.DecisionExplanation `json:"explanation"`
}

// NewDecisionMessage собирает сообщение из результата оценки входа
func NewDecisionMessage(ev bot.EntryEvaluation, now time.Time) *Message {
	return &Message{
		Type:      MessageDecision,
		Timestamp: now,
		Data: DecisionData{
			DecisionID:   ev.Decision.ID,
			Mint:         ev.Explanation.Mint,
			Action:       ev.Decision.Action,
			Source:       ev.Decision.Source,
			Confidence:   ev.Decision.Confidence,
			Regime:       ev.Regime.Regime.String(),
			SizeSOL:      ev.PositionSizeSOL,
			EntryDelayMs: ev.EntryDelay.Milliseconds(),
			Explanation:  ev.Explanation,
		},
	}
}

// NewPortfolioMessage - снимок портфеля
func NewPortfolioMessage(s models.PortfolioState, now time.Time) *Message {
	return &Message{Type: MessagePortfolio, Timestamp: now, Data: s}
}

// NewChainMessage - состояние сети
func NewChainMessage(s models.ChainState, now time.Time) *Message {
	return &Message{Type: MessageChain, Timestamp: now, Data: s}
}

// NewExecutionMessage - качество исполнения
func NewExecutionMessage(q models.ExecutionQuality, now time.Time) *Message {
	return &Message{Type: MessageExecution, Timestamp: now, Data: q}
}
