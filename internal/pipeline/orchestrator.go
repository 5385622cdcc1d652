package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/artifacts"
	"scribe/internal/config"
	"scribe/internal/discovery"
	"scribe/internal/extraction"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/quality"
	"scribe/internal/workitem"
)

// Failure reasons recorded on the ledger when no candidate produces an
// acceptable artifact.
const (
	reasonNoCandidates = "no candidates discovered"
	reasonBelowBar     = "no candidates met quality bar"
	reasonBudget       = "time budget exhausted"
)

// Orchestrator runs the discovery → extraction → scoring funnel for one work
// item at a time, committing the outcome through the ledger. All ledger writes
// go through the claim's lease token, so a stale worker can never clobber a
// newer run's result.
type Orchestrator struct {
	store      *ledger.Store
	discovery  *discovery.Engine
	extraction *extraction.Engine
	scorer     *quality.Scorer
	artifacts  *artifacts.Store
	notifier   notifications.Service
	logger     *slog.Logger

	acceptance        quality.Category
	maxCandidates     int
	timeBudget        time.Duration
	candidateDelay    time.Duration
	heartbeatInterval time.Duration
}

// NewOrchestrator wires the funnel from its components.
func NewOrchestrator(
	cfg *config.Config,
	store *ledger.Store,
	discoveryEngine *discovery.Engine,
	extractionEngine *extraction.Engine,
	scorer *quality.Scorer,
	artifactStore *artifacts.Store,
	notifier notifications.Service,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Orchestrator{
		store:             store,
		discovery:         discoveryEngine,
		extraction:        extractionEngine,
		scorer:            scorer,
		artifacts:         artifactStore,
		notifier:          notifier,
		logger:            logger,
		acceptance:        quality.ParseCategory(cfg.Pipeline.Acceptance),
		maxCandidates:     cfg.Pipeline.MaxCandidates,
		timeBudget:        time.Duration(cfg.Pipeline.TimeBudgetSeconds) * time.Second,
		candidateDelay:    time.Duration(cfg.Pipeline.CandidateDelayMS) * time.Millisecond,
		heartbeatInterval: time.Duration(cfg.Pipeline.HeartbeatInterval) * time.Second,
	}
}

// Process runs one work item to a settled state. Submitting an item that
// already has a terminal job is a no-op returning the existing record; an item
// claimed elsewhere returns its current record untouched. Only the caller that
// wins the Pending → InProgress claim does any network work.
func (o *Orchestrator) Process(ctx context.Context, item workitem.WorkItem) (*ledger.JobRecord, error) {
	record, err := o.store.Enqueue(ctx, item)
	if err != nil {
		return nil, err
	}
	if record.Status != ledger.StatusPending {
		o.logger.Debug("work item already settled or in flight",
			logging.String("work_item", record.WorkItemID),
			logging.String("status", string(record.Status)),
		)
		return record, nil
	}

	workItemID := record.WorkItemID
	leaseToken := uuid.NewString()
	record, err = o.store.Claim(ctx, workItemID, leaseToken)
	if errors.Is(err, ledger.ErrConflict) {
		// Lost the race; whoever won owns the outcome.
		return o.store.GetJob(ctx, workItemID)
	}
	if err != nil {
		return nil, err
	}

	stopHeartbeat := o.startHeartbeat(ctx, record.WorkItemID, leaseToken)
	defer stopHeartbeat()

	return o.runClaimed(ctx, record, leaseToken)
}

// runClaimed owns a claimed job through to a terminal commit or a release.
func (o *Orchestrator) runClaimed(ctx context.Context, record *ledger.JobRecord, leaseToken string) (*ledger.JobRecord, error) {
	item := record.WorkItem()
	logger := o.logger.With(
		logging.String("work_item", item.ID),
		logging.String("kind", string(item.Kind)),
	)

	budget := o.timeBudget
	if budget <= 0 {
		budget = 2 * time.Minute
	}
	budgetCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	outcome, err := o.runFunnel(budgetCtx, item, logger)
	if err != nil {
		// Parent cancellation releases the claim so a future run can pick
		// the item up; budget exhaustion is a legitimate failed outcome.
		if ctx.Err() != nil {
			if releaseErr := o.store.Release(context.WithoutCancel(ctx), item.ID, leaseToken); releaseErr != nil {
				logger.Warn("release after cancellation failed", logging.Error(releaseErr))
			}
			return nil, err
		}
		outcome.reason = reasonBudget
	}

	// Attempts count candidates tried, cumulative across explicit retries.
	attempts := record.Attempts + outcome.candidatesTried

	if outcome.accepted == nil {
		reason := outcome.reason
		if reason == "" {
			switch {
			case outcome.lastVerdict != nil:
				reason = fmt.Sprintf("%s (last candidate scored %.2f, %s)",
					reasonBelowBar, outcome.lastVerdict.Score, outcome.lastVerdict.Category)
			case outcome.lastErr != nil:
				reason = "all candidates failed; last: " + outcome.lastErr.Error()
			case outcome.sawCandidate:
				reason = reasonBelowBar
			default:
				reason = reasonNoCandidates
			}
		}
		logger.Info("no acceptable source found", logging.String("reason", reason))
		committed, err := o.store.CommitFailed(ctx, item.ID, leaseToken, attempts, reason)
		if err != nil {
			return nil, err
		}
		if notifyErr := o.notifier.NotifyJobFailed(ctx, item.Title(), reason); notifyErr != nil {
			logger.Warn("failure notification not delivered", logging.Error(notifyErr))
		}
		return committed, nil
	}

	ref, existed, err := o.artifacts.Put(item.ID, outcome.text)
	if err != nil {
		if releaseErr := o.store.Release(ctx, item.ID, leaseToken); releaseErr != nil {
			logger.Warn("release after artifact failure failed", logging.Error(releaseErr))
		}
		return nil, err
	}
	if existed {
		logger.Info("artifact already stored for work item; reusing", logging.String("ref", ref))
	}

	committed, err := o.store.CommitCompleted(ctx, item.ID, leaseToken, attempts, *outcome.accepted, ref)
	if err != nil {
		return nil, err
	}
	logger.Info("work item completed",
		logging.String("source", outcome.accepted.SourceDomain),
		logging.String("method", outcome.accepted.Method),
		logging.Int("rank", outcome.accepted.Rank),
		logging.Float64("score", outcome.score),
		logging.String("category", string(outcome.category)),
	)
	if notifyErr := o.notifier.NotifyJobCompleted(ctx, item.Title(), outcome.accepted.SourceDomain, string(outcome.category)); notifyErr != nil {
		logger.Warn("completion notification not delivered", logging.Error(notifyErr))
	}
	return committed, nil
}

type funnelOutcome struct {
	accepted        *ledger.AcceptedCandidate
	text            string
	score           float64
	category        quality.Category
	reason          string
	sawCandidate    bool
	candidatesTried int
	lastErr         error
	lastVerdict     *quality.Verdict
}

// runFunnel walks the lazy candidate stream in order and stops at the first
// candidate whose extracted text meets the acceptance bar. Candidates are
// never revisited and later ones are never preferred over an accepted earlier
// one.
func (o *Orchestrator) runFunnel(ctx context.Context, item workitem.WorkItem, logger *slog.Logger) (funnelOutcome, error) {
	outcome := funnelOutcome{}
	stream := o.discovery.Discover(item)

	for attempt := 0; o.maxCandidates <= 0 || attempt < o.maxCandidates; attempt++ {
		if attempt > 0 && o.candidateDelay > 0 {
			select {
			case <-ctx.Done():
				return outcome, ctx.Err()
			case <-time.After(o.candidateDelay):
			}
		}

		candidate, ok := stream.Next(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return outcome, err
			}
			return outcome, nil
		}
		outcome.sawCandidate = true
		outcome.candidatesTried++

		candidateLogger := logger.With(
			logging.String("candidate", candidate.URL),
			logging.String("method", string(candidate.Method)),
			logging.Int("rank", candidate.Rank),
		)

		result, err := o.extraction.Extract(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			outcome.lastErr = err
			candidateLogger.Info("candidate extraction failed; moving on", logging.Error(err))
			continue
		}

		verdict := o.scorer.Score(result.Text, item.Kind)
		candidateLogger.Debug("candidate scored",
			logging.Float64("score", verdict.Score),
			logging.String("category", string(verdict.Category)),
			logging.Int("chars", result.CharLength),
		)
		if !verdict.Category.Meets(o.acceptance) {
			outcome.lastVerdict = &verdict
			continue
		}

		outcome.accepted = &ledger.AcceptedCandidate{
			SourceDomain: candidate.SourceDomain,
			URL:          candidate.URL,
			Method:       string(candidate.Method) + "/" + result.Method,
			Rank:         candidate.Rank,
		}
		outcome.text = result.Text
		outcome.score = verdict.Score
		outcome.category = verdict.Category
		return outcome, nil
	}
	return outcome, nil
}

// startHeartbeat keeps the claim's liveness marker fresh until the returned
// stop function runs.
func (o *Orchestrator) startHeartbeat(ctx context.Context, workItemID, leaseToken string) func() {
	if o.heartbeatInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(o.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := o.store.Heartbeat(ctx, workItemID, leaseToken); err != nil {
					o.logger.Warn("heartbeat update failed",
						logging.String("work_item", workItemID),
						logging.Error(err),
					)
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
