package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/workitem"
)

// Engine runs an ordered chain of discovery strategies and yields deduplicated
// candidates in first-seen order. Earlier strategies are higher confidence, so
// order is preserved across the chain.
type Engine struct {
	strategies      []Strategy
	strategyTimeout time.Duration
	logger          *slog.Logger

	mu      sync.Mutex
	benched map[string]struct{}
}

// NewEngine assembles the strategy chain from config. A nil provider drops the
// search-backed strategies; the engine degrades to the remaining ones rather
// than failing.
func NewEngine(cfg *config.Config, provider SearchProvider, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}

	strategies := []Strategy{directStrategy{}}
	if provider != nil {
		if len(cfg.Discovery.AggregatorDomains) > 0 {
			strategies = append(strategies, siteSearchStrategy{
				provider:   provider,
				domains:    cfg.Discovery.AggregatorDomains,
				maxResults: cfg.Discovery.MaxResults,
			})
		}
		if len(cfg.Discovery.QueryTemplates) > 0 {
			strategies = append(strategies, webSearchStrategy{
				provider:   provider,
				templates:  cfg.Discovery.QueryTemplates,
				maxResults: cfg.Discovery.MaxResults,
			})
		}
	}
	strategies = append(strategies, platformStrategy{})

	return &Engine{
		strategies:      strategies,
		strategyTimeout: time.Duration(cfg.Discovery.StrategyTimeout) * time.Second,
		logger:          logger,
		benched:         make(map[string]struct{}),
	}
}

// NewEngineWithStrategies builds an engine over an explicit chain. Used by the
// orchestrator tests and by callers that register custom strategies.
func NewEngineWithStrategies(timeout time.Duration, logger *slog.Logger, strategies ...Strategy) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Engine{
		strategies:      strategies,
		strategyTimeout: timeout,
		logger:          logger,
		benched:         make(map[string]struct{}),
	}
}

// Discover returns a lazy candidate stream for one work item. The stream is
// finite and not restartable; later strategies only run when earlier
// candidates have been consumed. An empty stream is a legitimate outcome, not
// an error.
func (e *Engine) Discover(item workitem.WorkItem) *Stream {
	return &Stream{
		engine: e,
		item:   item,
		seen:   make(map[string]struct{}),
	}
}

// backedStrategy is implemented by strategies that delegate to a shared
// search backend. Quota benching keys on the backend, so a 429 seen through
// one strategy also skips every other strategy on the same provider.
type backedStrategy interface {
	Backend() string
}

func benchKey(strategy Strategy) string {
	if backed, ok := strategy.(backedStrategy); ok {
		if name := backed.Backend(); name != "" {
			return name
		}
	}
	return strategy.Name()
}

func (e *Engine) isBenched(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.benched[name]
	return ok
}

func (e *Engine) bench(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.benched[name] = struct{}{}
}

// Stream yields candidates one at a time, pulling strategies lazily.
type Stream struct {
	engine *Engine
	item   workitem.WorkItem

	next    int
	pending []Candidate
	seen    map[string]struct{}
	rank    int
}

// Next returns the next candidate, or false when the sequence is exhausted or
// ctx is done.
func (s *Stream) Next(ctx context.Context) (Candidate, bool) {
	for {
		if err := ctx.Err(); err != nil {
			return Candidate{}, false
		}
		if len(s.pending) > 0 {
			candidate := s.pending[0]
			s.pending = s.pending[1:]
			return candidate, true
		}
		if s.next >= len(s.engine.strategies) {
			return Candidate{}, false
		}

		strategy := s.engine.strategies[s.next]
		s.next++
		s.runStrategy(ctx, strategy)
	}
}

func (s *Stream) runStrategy(ctx context.Context, strategy Strategy) {
	if s.engine.isBenched(benchKey(strategy)) {
		return
	}

	strategyCtx, cancel := context.WithTimeout(ctx, s.engine.strategyTimeout)
	defer cancel()

	candidates, err := strategy.ProduceCandidates(strategyCtx, s.item)
	if err != nil {
		if services.IsQuota(err) {
			s.engine.bench(benchKey(strategy))
			s.engine.logger.Warn("discovery backend rate limited; benched for this run",
				logging.String("strategy", strategy.Name()),
				logging.String("backend", benchKey(strategy)),
				logging.Error(err),
			)
		} else {
			s.engine.logger.Warn("discovery strategy failed; skipping",
				logging.String("strategy", strategy.Name()),
				logging.Error(err),
			)
		}
		// Partial results gathered before the error are still usable.
	}

	for _, candidate := range candidates {
		normalized := NormalizeURL(candidate.URL)
		if normalized == "" {
			continue
		}
		if _, dup := s.seen[normalized]; dup {
			continue
		}
		s.seen[normalized] = struct{}{}
		candidate.URL = normalized
		candidate.Rank = s.rank
		s.rank++
		s.pending = append(s.pending, candidate)
	}
}
