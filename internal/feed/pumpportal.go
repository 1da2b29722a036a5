package feed

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ============================================================
// Протокол PumpPortal
// ============================================================

// Методы подписки
const (
	MethodSubscribeNewToken     = "subscribeNewToken"
	MethodSubscribeTokenTrade   = "subscribeTokenTrade"
	MethodUnsubscribeTokenTrade = "unsubscribeTokenTrade"
)

// Типы транзакций
const (
	TxCreate = "create"
	TxBuy    = "buy"
	TxSell   = "sell"
)

// SubscriptionMessage - запрос подписки
type SubscriptionMessage struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}

// SubscribeNewToken - подписка на создание токенов
func SubscribeNewToken() SubscriptionMessage {
	return SubscriptionMessage{Method: MethodSubscribeNewToken}
}

// SubscribeTokenTrade - подписка на сделки по mint
func SubscribeTokenTrade(mints ...string) SubscriptionMessage {
	return SubscriptionMessage{Method: MethodSubscribeTokenTrade, Keys: mints}
}

// UnsubscribeTokenTrade - отписка от сделок по mint
func UnsubscribeTokenTrade(mints ...string) SubscriptionMessage {
	return SubscriptionMessage{Method: MethodUnsubscribeTokenTrade, Keys: mints}
}

// Event - событие create/buy/sell. Суммы в SOL и целых токенах,
// виртуальные резервы кривой после транзакции.
type Event struct {
	Signature       string  `json:"signature"`
	Mint            string  `json:"mint"`
	Trader          string  `json:"traderPublicKey"`
	TxType          string  `json:"txType"`
	TokenAmount     float64 `json:"tokenAmount"`
	SOLAmount       float64 `json:"solAmount"`
	InitialBuy      float64 `json:"initialBuy"`
	BondingCurveKey string  `json:"bondingCurveKey"`
	VTokensInCurve  float64 `json:"vTokensInBondingCurve"`
	VSOLInCurve     float64 `json:"vSolInBondingCurve"`
	MarketCapSOL    float64 `json:"marketCapSol"`

	// только create
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	URI    string `json:"uri,omitempty"`
}

// IsCreate - событие создания токена
func (e *Event) IsCreate() bool { return e.TxType == TxCreate }

// IsTrade - покупка или продажа
func (e *Event) IsTrade() bool { return e.TxType == TxBuy || e.TxType == TxSell }

// Price - цена токена в SOL по виртуальным резервам
func (e *Event) Price() float64 {
	if e.VTokensInCurve <= 0 {
		return 0
	}
	return e.VSOLInCurve / e.VTokensInCurve
}

// ErrUnknownMessage - сообщение не является событием (ack подписки, ошибка сервера)
var ErrUnknownMessage = errors.New("not a token event")

// DecodeEvent разбирает сообщение потока
func DecodeEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.Mint == "" || !(ev.IsCreate() || ev.IsTrade()) {
		return nil, ErrUnknownMessage
	}
	return &ev, nil
}
