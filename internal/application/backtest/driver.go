package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/alejandrodnm/polyreplay/internal/strategy"
)

const (
	defaultInitialCapital = 1000
	defaultExpiryGrace    = 60 * time.Second
	progressInterval      = 5 * time.Second
)

// runNamespace seeds the deterministic run and trade identifiers.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/alejandrodnm/polyreplay"))

// Config holds the engine settings. The caller builds it; the engine never
// reads files or the environment.
type Config struct {
	InitialCapital float64
	Risk           domain.RiskConfig
	SlippageDelay  time.Duration // 0 disables slippage
	ExpiryGrace    time.Duration // markets ending earlier than this before expiration are truncated
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapital: defaultInitialCapital,
		Risk:           domain.DefaultRiskConfig(),
		ExpiryGrace:    defaultExpiryGrace,
	}
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.InitialCapital < 0 {
		return fmt.Errorf("backtest.Config: negative initial capital %.2f", c.InitialCapital)
	}
	if c.SlippageDelay < 0 {
		return fmt.Errorf("backtest.Config: negative slippage delay %s", c.SlippageDelay)
	}
	if c.ExpiryGrace < 0 {
		return fmt.Errorf("backtest.Config: negative expiry grace %s", c.ExpiryGrace)
	}
	return nil
}

// Driver replays markets in expiration order, threading capital from each
// settled market into the next one.
type Driver struct {
	cfg      Config
	name     string
	factory  strategy.Factory
	progress rate.Sometimes
}

// New creates a driver for one strategy.
func New(cfg Config, name string, factory strategy.Factory) *Driver {
	return &Driver{
		cfg:      cfg,
		name:     name,
		factory:  factory,
		progress: rate.Sometimes{First: 1, Interval: progressInterval},
	}
}

// Run folds over markets sequentially. Cancellation is checked between
// markets: the report over the markets already settled is returned together
// with ctx.Err().
func (d *Driver) Run(ctx context.Context, markets []domain.Market) (domain.BacktestReport, error) {
	runID := d.runID(markets)
	rep := d.newReport(runID)
	capital := domain.Dec(d.cfg.InitialCapital)

	slog.Info("backtest started",
		"run_id", rep.RunID,
		"strategy", d.name,
		"markets", len(markets),
		"initial_capital", fmt.Sprintf("$%.2f", d.cfg.InitialCapital),
	)

	for i, m := range markets {
		if err := ctx.Err(); err != nil {
			return d.finish(rep, capital, false), err
		}
		run := d.simulate(runID, m, capital)
		capital = run.end
		merge(&rep, run)
		d.logProgress(i+1, len(markets), capital)
	}
	return d.finish(rep, capital, true), nil
}

func (d *Driver) runID(markets []domain.Market) uuid.UUID {
	key := fmt.Sprintf("%s|%v|%+v|%s|%s|%d",
		d.name, d.cfg.InitialCapital, d.cfg.Risk, d.cfg.SlippageDelay, d.cfg.ExpiryGrace, len(markets))
	for _, m := range markets {
		key += "|" + m.ID()
	}
	return uuid.NewSHA1(runNamespace, []byte(key))
}

func (d *Driver) newReport(runID uuid.UUID) domain.BacktestReport {
	return domain.BacktestReport{
		RunID:          runID.String(),
		Strategy:       d.name,
		InitialCapital: d.cfg.InitialCapital,
	}
}

func (d *Driver) logProgress(done, total int, capital decimal.Decimal) {
	d.progress.Do(func() {
		slog.Info("backtest progress",
			"done", done,
			"total", total,
			"capital", "$"+capital.StringFixed(2),
		)
	})
}

func (d *Driver) finish(rep domain.BacktestReport, capital decimal.Decimal, completed bool) domain.BacktestReport {
	rep.FinalCapital = capital.InexactFloat64()
	rep.Completed = completed
	rep.Finalize()

	attrs := []any{
		"run_id", rep.RunID,
		"markets", len(rep.Markets),
		"trades", len(rep.Trades),
		"final_capital", "$" + capital.StringFixed(2),
		"roi", fmt.Sprintf("%.2f%%", rep.ROI*100),
	}
	if completed {
		slog.Info("backtest finished", attrs...)
	} else {
		slog.Warn("backtest cancelled, partial report", attrs...)
	}
	return rep
}

// merge appends one settled market to the report.
func merge(rep *domain.BacktestReport, run marketRun) {
	for _, t := range run.trades {
		t.Seq = len(rep.Trades) + 1
		rep.Trades = append(rep.Trades, t)
	}
	rep.RiskEvents = append(rep.RiskEvents, run.events...)
	rep.Faults = append(rep.Faults, run.faults...)
	rep.Markets = append(rep.Markets, run.result)
	rep.CapitalCurve = append(rep.CapitalCurve, domain.CapitalPoint{
		Timestamp: run.result.Expiration,
		MarketID:  run.result.MarketID,
		Capital:   run.result.CapitalAfter,
	})
}

// marketState is the lifecycle of one market inside a run.
type marketState int

const (
	statePending marketState = iota
	stateActive
	stateExpired
	stateSettled
)

func (s marketState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateActive:
		return "active"
	case stateExpired:
		return "expired"
	case stateSettled:
		return "settled"
	}
	return fmt.Sprintf("marketState(%d)", int(s))
}

// marketRun is everything one market contributes to the report. Each run
// owns its ledger and logs, so runs can be computed on separate goroutines.
type marketRun struct {
	done   bool
	start  decimal.Decimal
	end    decimal.Decimal
	result domain.MarketResult
	trades []domain.TradeRecord
	events []domain.RiskEvent
	faults []domain.StrategyFault
}

// marketSim drives a single market from Pending to Settled.
type marketSim struct {
	cfg    Config
	runID  uuid.UUID
	market domain.Market
	strat  strategy.Bound
	led    *ledger
	state  marketState
	out    marketRun
}

func (d *Driver) simulate(runID uuid.UUID, m domain.Market, capital decimal.Decimal) marketRun {
	sim := &marketSim{
		cfg:    d.cfg,
		runID:  runID,
		market: m,
		led:    newLedger(capital),
		state:  statePending,
		out:    marketRun{start: capital},
	}

	s, err := newStrategy(d.factory)
	if err != nil {
		sim.fault(m.TargetTime, err)
	} else {
		sim.strat = strategy.Bind(s)
		for i := range m.Ticks {
			sim.transition(stateActive)
			sim.step(i)
		}
	}

	sim.transition(stateExpired)
	sim.settle()
	return sim.out
}

func (s *marketSim) transition(to marketState) {
	if s.state == to {
		return
	}
	slog.Debug("market state", "market", s.market.ID(), "from", s.state.String(), "to", to.String())
	s.state = to
}

// step processes tick i: decide, risk-check, fill, apply, notify.
func (s *marketSim) step(i int) {
	tick := s.market.Ticks[i]
	capital := s.led.capitalFloat()

	in, err := decide(s.strat, tick, capital)
	if err != nil {
		s.fault(tick.Timestamp, err)
		return
	}
	if in == nil {
		return
	}
	if err := in.Validate(); err != nil {
		s.fault(tick.Timestamp, err)
		return
	}
	if !tick.Timestamp.Before(s.market.Expiration) {
		slog.Debug("intent at expiration discarded",
			"market", s.market.ID(),
			"ts", tick.Timestamp.Format(time.RFC3339),
			"side", in.Side,
		)
		return
	}

	snap := s.led.pf.Snapshot(tick)
	if d := domain.ValidateIntent(*in, snap, tick, capital, s.cfg.Risk); !d.Accepted {
		s.reject(d, tick, *in, capital)
		return
	}

	price, filledAt := fill(s.market, i, *in, s.cfg.SlippageDelay)
	if price != in.Price {
		filled := *in
		filled.Price = price
		if d := domain.ValidateIntent(filled, snap, tick, capital, domain.RiskConfig{}); !d.Accepted {
			s.reject(d, tick, filled, capital)
			return
		}
	}

	conf := domain.TradeConfirmation{
		Side:         in.Side,
		Quantity:     in.Quantity,
		FillPrice:    price,
		Score:        in.Score,
		Timestamp:    filledAt,
		DecisionTime: tick.Timestamp,
	}
	if err := s.led.apply(conf); err != nil {
		s.fault(tick.Timestamp, err)
		return
	}
	s.record(conf, *in, capital)

	if err := notify(s.strat, conf); err != nil {
		s.fault(tick.Timestamp, err)
	}
}

func (s *marketSim) record(conf domain.TradeConfirmation, in domain.TradeIntent, before float64) {
	seq := len(s.out.trades) + 1
	id := uuid.NewSHA1(s.runID, []byte(fmt.Sprintf("%s#%d", s.market.ID(), seq)))
	s.out.trades = append(s.out.trades, domain.TradeRecord{
		ID:            id.String(),
		Seq:           seq,
		MarketID:      s.market.ID(),
		DecisionTime:  conf.DecisionTime,
		FillTime:      conf.Timestamp,
		Side:          conf.Side,
		Quantity:      conf.Quantity,
		IntentPrice:   in.Price,
		FillPrice:     conf.FillPrice,
		Cost:          domain.Dec(conf.Quantity).Mul(domain.Dec(conf.FillPrice)).InexactFloat64(),
		Score:         conf.Score,
		CapitalBefore: before,
		CapitalAfter:  s.led.capitalFloat(),
	})
	slog.Debug("trade filled",
		"market", s.market.ID(),
		"side", conf.Side,
		"qty", conf.Quantity,
		"price", conf.FillPrice,
		"capital", s.led.capitalFloat(),
	)
}

func (s *marketSim) reject(d domain.RiskDecision, tick domain.MarketTick, in domain.TradeIntent, capital float64) {
	s.out.events = append(s.out.events, domain.NewRiskEvent(d, tick, in, capital))
	slog.Debug("intent rejected",
		"market", s.market.ID(),
		"kind", d.Kind,
		"reason", d.Reason,
	)
}

func (s *marketSim) fault(ts time.Time, err error) {
	if !errors.Is(err, domain.ErrStrategyFault) {
		err = fmt.Errorf("%w: %w", domain.ErrStrategyFault, err)
	}
	s.out.faults = append(s.out.faults, domain.StrategyFault{
		MarketID:  s.market.ID(),
		Timestamp: ts,
		Err:       err.Error(),
	})
	slog.Warn("strategy fault",
		"market", s.market.ID(),
		"ts", ts.Format(time.RFC3339),
		"err", err,
	)
}

func (s *marketSim) settle() {
	st := settle(s.market, s.led, s.cfg.ExpiryGrace)
	s.transition(stateSettled)

	snap := s.led.pf.Snapshot(st.last)
	cost := s.led.pf.CostBasis()
	pnl := st.payout.Sub(cost)

	s.out.done = true
	s.out.end = s.led.capital
	s.out.result = domain.MarketResult{
		MarketID:      s.market.ID(),
		TargetTime:    s.market.TargetTime,
		Expiration:    s.market.Expiration,
		Ticks:         s.market.Len(),
		LastTick:      st.last.Timestamp,
		Resolution:    st.resolution,
		Class:         domain.Classify(len(s.out.trades), st.truncated, st.resolution, pnl.InexactFloat64()),
		Truncated:     st.truncated,
		Trades:        len(s.out.trades),
		Rejections:    len(s.out.events),
		Faults:        len(s.out.faults),
		QtyUp:         snap.QtyUp,
		QtyDown:       snap.QtyDown,
		AvgUp:         snap.AvgUp,
		AvgDown:       snap.AvgDown,
		PairCost:      snap.PairCost,
		LockedProfit:  snap.LockedProfit,
		Cost:          cost.InexactFloat64(),
		Payout:        st.payout.InexactFloat64(),
		PnL:           pnl.InexactFloat64(),
		CapitalBefore: s.out.start.InexactFloat64(),
		CapitalAfter:  s.out.end.InexactFloat64(),
	}
}

// newStrategy, decide and notify turn strategy panics into errors.

func newStrategy(f strategy.Factory) (s strategy.Strategy, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("factory panic: %v", r)
		}
	}()
	s = f()
	if s == nil {
		return nil, errors.New("factory returned nil strategy")
	}
	return s, nil
}

func decide(s strategy.Bound, tick domain.MarketTick, capital float64) (in *domain.TradeIntent, err error) {
	defer func() {
		if r := recover(); r != nil {
			in, err = nil, fmt.Errorf("decide panic: %v", r)
		}
	}()
	return s.Decide(tick, capital)
}

func notify(s strategy.Bound, c domain.TradeConfirmation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("confirmation hook panic: %v", r)
		}
	}()
	s.OnTradeConfirmed(c)
	return nil
}
