package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/NasaVasa/pricewatch/internal/domain"
	"github.com/NasaVasa/pricewatch/internal/infra/log"
	"github.com/NasaVasa/pricewatch/internal/infra/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const DefaultPollInterval = 30 * time.Second

type PollerOption func(*PricePoller)

// WithOverlappingTicks lets a tick start while the previous one is still
// running.
func WithOverlappingTicks() PollerOption {
	return func(p *PricePoller) {
		p.skipOverlap = false
	}
}

func WithPollerMetrics(m *metrics.Collectors) PollerOption {
	return func(p *PricePoller) {
		p.metrics = m
	}
}

// PricePoller fetches prices for the monitored symbols on a fixed interval and
// feeds every snapshot into the matcher. Only one schedule is active at a time.
type PricePoller struct {
	provider    domain.PriceProvider
	matcher     *AlertMatcher
	interval    time.Duration
	skipOverlap bool
	logger      *zap.Logger
	metrics     *metrics.Collectors

	mu      sync.Mutex
	symbols map[string]struct{}
	cron    *cron.Cron
}

func NewPricePoller(provider domain.PriceProvider, matcher *AlertMatcher, interval time.Duration, logger *zap.Logger, opts ...PollerOption) *PricePoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &PricePoller{
		provider:    provider,
		matcher:     matcher,
		interval:    interval,
		skipOverlap: true,
		logger:      logger,
		symbols:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StartMonitoring merges symbols into the monitored set and starts the
// schedule if it is not running yet. A running schedule keeps its cadence and
// picks up the new symbols on its next tick. Ticks run detached from ctx
// cancellation; StopMonitoring ends them.
func (p *PricePoller) StartMonitoring(ctx context.Context, symbols ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.addLocked(symbols...)
	if p.cron != nil {
		p.logger.Debug("price monitoring extended", zap.Strings("symbols", p.symbolsLocked()))
		return
	}

	tickCtx := context.WithoutCancel(ctx)
	cronLogger := log.NewCronLogger(p.logger)
	wrappers := []cron.JobWrapper{cron.Recover(cronLogger)}
	if p.skipOverlap {
		wrappers = append(wrappers, cron.SkipIfStillRunning(cronLogger))
	}
	c := cron.New(cron.WithLogger(cronLogger), cron.WithChain(wrappers...))
	c.Schedule(cron.Every(p.interval), cron.FuncJob(func() {
		_ = p.Tick(tickCtx)
	}))
	c.Start()
	p.cron = c

	p.logger.Info(
		"price monitoring started",
		zap.Strings("symbols", p.symbolsLocked()),
		zap.Duration("interval", p.interval),
		zap.Bool("skip_overlap", p.skipOverlap),
	)
}

// Subscribe registers handler for triggers on symbol and adds the symbol to
// the monitored set.
func (p *PricePoller) Subscribe(symbol string, handler TriggerHandler) {
	p.matcher.OnPriceUpdate(symbol, handler)
	if symbol == AnySymbol {
		return
	}
	p.mu.Lock()
	p.addLocked(symbol)
	p.mu.Unlock()
}

// StopMonitoring cancels the schedule and forgets monitored symbols and
// subscriptions. A tick already in flight is not interrupted; the returned
// context is done once it has finished.
func (p *PricePoller) StopMonitoring() context.Context {
	p.mu.Lock()
	done := context.Background()
	if p.cron != nil {
		done = p.cron.Stop()
		p.cron = nil
	} else {
		var cancel context.CancelFunc
		done, cancel = context.WithCancel(done)
		cancel()
	}
	p.symbols = make(map[string]struct{})
	p.mu.Unlock()

	p.matcher.ClearSubscriptions()
	p.logger.Info("price monitoring stopped")
	return done
}

// Tick runs one fetch-and-match cycle. A failed batch fetch is logged and
// returned; the schedule keeps its cadence either way.
func (p *PricePoller) Tick(ctx context.Context) error {
	symbols := p.Symbols()
	if len(symbols) == 0 {
		return nil
	}

	started := time.Now()
	snapshots, err := p.provider.GetPrices(ctx, symbols)
	if err != nil {
		p.metrics.PollTick(time.Since(started).Seconds(), err)
		p.logger.Warn("price poll failed", zap.Strings("symbols", symbols), zap.Error(err))
		return err
	}

	var errs error
	for _, symbol := range symbols {
		snapshot, ok := snapshots[symbol]
		if !ok {
			p.logger.Debug("no price returned for symbol", zap.String("symbol", symbol))
			continue
		}
		if _, err := p.matcher.Evaluate(ctx, snapshot); err != nil {
			p.logger.Warn("alert evaluation failed", zap.String("symbol", symbol), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	p.metrics.PollTick(time.Since(started).Seconds(), errs)
	return errs
}

func (p *PricePoller) Symbols() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.symbolsLocked()
}

func (p *PricePoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cron != nil
}

func (p *PricePoller) addLocked(symbols ...string) {
	for _, symbol := range symbols {
		symbol = domain.NormalizeSymbol(symbol)
		if symbol == "" {
			continue
		}
		p.symbols[symbol] = struct{}{}
	}
}

func (p *PricePoller) symbolsLocked() []string {
	symbols := make([]string, 0, len(p.symbols))
	for symbol := range p.symbols {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
