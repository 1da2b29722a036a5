package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"pumpstrategy/pkg/utils"
)

// Feed связывает Stream и Aggregator: подписывается на новые токены,
// затем на сделки каждого нового mint, и после переподключения
// восстанавливает подписки на все отслеживаемые mint.
type Feed struct {
	stream *Stream
	agg    *Aggregator

	ctx   context.Context
	ctxMu sync.RWMutex

	mu     sync.Mutex
	tokens map[string]struct{}

	logger *utils.Logger
}

// New создаёт фид поверх агрегатора
func New(cfg StreamConfig, agg *Aggregator, logger *utils.Logger) *Feed {
	f := &Feed{
		agg:    agg,
		ctx:    context.Background(),
		tokens: make(map[string]struct{}),
		logger: utils.OrGlobal(logger).WithComponent("feed"),
	}
	f.stream = NewStream(cfg, f.onMessage, logger)
	f.stream.SetOnConnect(f.resubscribeTrades)
	_ = f.stream.AddSubscription(SubscribeNewToken())

	agg.SetOnNewToken(func(mint string) {
		if err := f.Watch(mint); err != nil {
			f.logger.Debug("trade subscription deferred", utils.Mint(mint), utils.Err(err))
		}
	})
	return f
}

// Stream возвращает websocket поток
func (f *Feed) Stream() *Stream {
	return f.stream
}

// Run держит поток до отмены ctx
func (f *Feed) Run(ctx context.Context) error {
	f.ctxMu.Lock()
	f.ctx = ctx
	f.ctxMu.Unlock()
	return f.stream.Run(ctx)
}

func (f *Feed) onMessage(raw []byte) {
	f.ctxMu.RLock()
	ctx := f.ctx
	f.ctxMu.RUnlock()
	f.agg.HandleMessage(ctx, raw)
}

// Watch подписывается на сделки mint. Без соединения подписка
// будет отправлена при следующем подключении.
func (f *Feed) Watch(mint string) error {
	f.mu.Lock()
	f.tokens[mint] = struct{}{}
	f.mu.Unlock()

	if !f.stream.IsConnected() {
		return ErrNotConnected
	}
	return f.stream.Send(SubscribeTokenTrade(mint))
}

// Unwatch отписывается от сделок mint
func (f *Feed) Unwatch(mints ...string) {
	if len(mints) == 0 {
		return
	}
	f.mu.Lock()
	for _, m := range mints {
		delete(f.tokens, m)
	}
	f.mu.Unlock()

	if f.stream.IsConnected() {
		if err := f.stream.Send(UnsubscribeTokenTrade(mints...)); err != nil {
			f.logger.Debug("unsubscribe failed", utils.Err(err))
		}
	}
}

// Watched возвращает отслеживаемые mint
func (f *Feed) Watched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.tokens))
	for m := range f.tokens {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Prune удаляет простаивающие токены из агрегатора и отписывается от них
func (f *Feed) Prune() int {
	removed := f.agg.Prune()
	f.Unwatch(removed...)
	return len(removed)
}

// RunPruner вызывает Prune с интервалом до отмены ctx
func (f *Feed) RunPruner(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := f.Prune(); n > 0 {
				f.logger.Debug("idle mints pruned", utils.Int("count", n))
			}
		}
	}
}

func (f *Feed) resubscribeTrades() {
	mints := f.Watched()
	if len(mints) == 0 {
		return
	}
	if err := f.stream.Send(SubscribeTokenTrade(mints...)); err != nil {
		f.logger.Warn("trade resubscribe failed", utils.Int("mints", len(mints)), utils.Err(err))
	}
}
