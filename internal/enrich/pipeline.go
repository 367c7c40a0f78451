// Package enrich runs enrichment requests against the session: it takes
// the current detection names, asks the enricher for nutrition and
// recipes, and hands the outcome back to the session.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/foodlens/internal/domain"
	"github.com/hammamikhairi/foodlens/internal/logger"
	"github.com/hammamikhairi/foodlens/internal/session"
)

// Option configures the pipeline.
type Option func(*Pipeline)

// WithTimeout bounds a single enrichment call.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// Pipeline connects the session to an Enricher.
type Pipeline struct {
	session  *session.Session
	enricher domain.Enricher
	log      *logger.Logger
	timeout  time.Duration

	wg sync.WaitGroup
}

// New creates an enrichment pipeline.
func New(sess *session.Session, enricher domain.Enricher, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		session:  sess,
		enricher: enricher,
		log:      log,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs one enrichment synchronously. It returns
// ErrEnrichmentInFlight or ErrNothingToEnrich without touching the
// session when the request cannot start. Enricher failures are recorded
// on the session and also returned.
func (p *Pipeline) Run(ctx context.Context) error {
	req, err := p.session.BeginEnrichment()
	if err != nil {
		return err
	}
	return p.complete(ctx, req)
}

// Trigger starts an enrichment in the background so the caller never
// blocks on the remote call. The single-flight check happens before
// Trigger returns. The call outlives ctx's cancellation (an HTTP request
// finishing, say) and is bounded by the pipeline timeout instead.
func (p *Pipeline) Trigger(ctx context.Context) error {
	req, err := p.session.BeginEnrichment()
	if err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.complete(bg, req); err != nil {
			p.log.Warn("enrich: background enrichment failed: %v", err)
		}
	}()
	return nil
}

// Wait blocks until every triggered enrichment has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) complete(ctx context.Context, req session.EnrichmentRequest) (err error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Loading must be released on every exit path, panics included.
	defer func() {
		if r := recover(); r != nil {
			err = domain.Unreachable(fmt.Errorf("enricher panic: %v", r))
			p.session.EnrichmentFailed(req.Ticket, err)
		}
	}()

	start := time.Now()
	result, err := p.enricher.Enrich(callCtx, req.Names, req.Profile)
	if err == nil && result == nil {
		err = domain.Malformed(errors.New("empty enrichment result"))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrUnreachable) {
			err = domain.Unreachable(err)
		}
		p.log.Error("enrich: %v (after %s)", err, time.Since(start).Round(time.Millisecond))
		if !p.session.EnrichmentFailed(req.Ticket, err) {
			p.log.Debug("enrich: failure arrived after the request was released")
		}
		return err
	}

	if !p.session.EnrichmentSucceeded(req.Ticket, result) {
		p.log.Warn("enrich: result arrived after the request was released; dropped")
		return nil
	}
	p.log.Info("enrich: %d names -> %d recipes in %s", len(req.Names), len(result.Recipes), time.Since(start).Round(time.Millisecond))
	return nil
}
