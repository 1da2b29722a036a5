package bot

import (
	"context"
	"hash/fnv"
	"sync"
)

// ============================================================
// Диспетчер событий токенов
// ============================================================
//
// Роутинг по хэшу mint: все события одного токена попадают в один шард
// и обрабатываются одним воркером последовательно.
//
// Поток данных:
// Feed -> Submit (hash by mint) -> shard[N] -> worker -> трекер токена

// TokenEventKind - тип события токена
type TokenEventKind int

const (
	EventPrice TokenEventKind = iota
	EventMetrics
	EventTrade
)

// TokenEvent - обновление данных токена от фида
type TokenEvent struct {
	Kind TokenEventKind
	Mint string

	Price  float64 // EventPrice
	Volume float64 // EventPrice

	Metrics MetricsUpdate // EventMetrics
	Trade   TradeUpdate   // EventTrade
}

type eventRouter struct {
	engine *StrategyEngine
	shards []chan TokenEvent
	wg     sync.WaitGroup
	once   sync.Once
}

func newEventRouter(e *StrategyEngine, numShards, buffer int) *eventRouter {
	if numShards <= 0 {
		numShards = 1
	}
	if buffer <= 0 {
		buffer = 256
	}
	r := &eventRouter{engine: e, shards: make([]chan TokenEvent, numShards)}
	for i := range r.shards {
		r.shards[i] = make(chan TokenEvent, buffer)
	}
	return r
}

// start запускает по одному воркеру на шард; повторный вызов ничего не делает
func (r *eventRouter) start(ctx context.Context) {
	r.once.Do(func() {
		for i := range r.shards {
			r.wg.Add(1)
			go r.worker(ctx, i)
		}
	})
}

func (r *eventRouter) wait() {
	r.wg.Wait()
}

func (r *eventRouter) worker(ctx context.Context, idx int) {
	defer r.wg.Done()
	ch := r.shards[idx]

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			r.handle(ev)
		}
	}
}

func (r *eventRouter) handle(ev TokenEvent) {
	switch ev.Kind {
	case EventPrice:
		r.engine.UpdatePrice(ev.Mint, ev.Price, ev.Volume)
	case EventMetrics:
		r.engine.UpdateMetrics(ev.Mint, ev.Metrics)
	case EventTrade:
		r.engine.RecordTrade(ev.Mint, ev.Trade)
	}
}

// shardIndex - детерминированный шард для mint
func (r *eventRouter) shardIndex(mint string) int {
	h := fnv.New32a()
	h.Write([]byte(mint))
	return int(h.Sum32() % uint32(len(r.shards)))
}

func (r *eventRouter) route(ev TokenEvent) bool {
	return tryEnqueueEvent(r.shards[r.shardIndex(ev.Mint)], ev, "token_events")
}
