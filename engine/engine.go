// Package engine selects an extraction strategy for the current page,
// falls back to the generic strategy on failure and hands the record to
// the delivery sink.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/ingestor/cleaner"
	"github.com/use-agent/ingestor/models"
	"github.com/use-agent/ingestor/notice"
	"github.com/use-agent/ingestor/page"
	"github.com/use-agent/ingestor/sink"
	"github.com/use-agent/ingestor/strategy"
)

// FailureNotice is shown when neither the selected strategy nor the
// generic fallback produced a record.
const FailureNotice = "Failed to parse content."

// Sender delivers a payload once. *sink.Client implements it.
type Sender interface {
	Send(ctx context.Context, payload *models.Payload) (sink.Outcome, error)
}

// Engine runs extractions against a single page. Runs may overlap: a new
// run cancels the one in flight, and a superseded run drops its record
// instead of delivering it.
type Engine struct {
	page        page.Page
	strategies  []strategy.Strategy
	generic     strategy.Strategy
	sender      Sender
	notifier    notice.Notifier
	markdown    strategy.Converter
	readability strategy.ArticleExtractor

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	last   *models.RunReport
}

// Option configures an Engine.
type Option func(*Engine)

// WithConverter replaces the default markdown converter.
func WithConverter(c strategy.Converter) Option {
	return func(e *Engine) { e.markdown = c }
}

// WithReadability replaces the default article extractor.
func WithReadability(r strategy.ArticleExtractor) Option {
	return func(e *Engine) { e.readability = r }
}

// New creates an Engine. strategies are tried in order; generic is used
// when none matches and as the fallback after a failed extraction.
// A nil notifier logs notices.
func New(p page.Page, strategies []strategy.Strategy, generic strategy.Strategy, sender Sender, notifier notice.Notifier, opts ...Option) *Engine {
	if generic == nil {
		generic = strategy.NewGeneric()
	}
	if notifier == nil {
		notifier = notice.Log{}
	}
	e := &Engine{
		page:       p,
		strategies: strategies,
		generic:    generic,
		sender:     sender,
		notifier:   notifier,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.markdown == nil {
		e.markdown = cleaner.NewMarkdown()
	}
	if e.readability == nil {
		e.readability = cleaner.NewReadability()
	}
	return e
}

// Strategies returns the strategy names in selection order, generic last.
func (e *Engine) Strategies() []string {
	names := make([]string, 0, len(e.strategies)+1)
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}
	return append(names, e.generic.Name())
}

// Last returns the report of the most recently finished run, or nil.
func (e *Engine) Last() *models.RunReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return nil
	}
	r := *e.last
	return &r
}

// Run extracts the current page and delivers the record. The returned
// error is non-nil only when no record could be produced; delivery
// failures are reported through the notifier and RunReport.Outcome.
func (e *Engine) Run(ctx context.Context, trigger string) (*models.RunReport, error) {
	runCtx, seq := e.begin(ctx)
	defer e.end(seq)

	report := &models.RunReport{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	defer func() {
		report.DurationMs = time.Since(report.StartedAt).Milliseconds()
		e.mu.Lock()
		e.last = report
		e.mu.Unlock()
	}()

	log := slog.With("run_id", report.RunID, "trigger", trigger)

	addr, err := e.page.Location(runCtx)
	if err != nil {
		err = models.NewExtractError(models.ErrCodeBrowser, "read page address", err)
		report.Error = err.Error()
		return report, err
	}
	report.Address = addr.String()
	log = log.With("url", report.Address)

	rec, err := e.extract(runCtx, log, addr, report)
	if err != nil {
		if !e.current(seq) {
			report.Discarded = true
			log.Info("superseded run failed, suppressing notice", "error", err)
			return report, nil
		}
		report.Error = err.Error()
		log.Error("extraction failed", "strategy", report.Strategy, "error", err)
		e.notifier.Notify(ctx, FailureNotice, true)
		return report, err
	}
	report.Type = rec.Type()
	report.Title = rec.Title

	if !e.current(seq) {
		report.Discarded = true
		log.Info("discarding record of superseded run", "type", report.Type)
		return report, nil
	}

	payload := e.payload(runCtx, log, addr, rec)

	// Once delivery starts it is allowed to finish even if a newer run
	// begins meanwhile.
	outcome, sendErr := e.sender.Send(context.WithoutCancel(runCtx), payload)
	report.Outcome = outcome.String()
	if sendErr != nil {
		report.Error = sendErr.Error()
		log.Warn("delivery failed", "outcome", report.Outcome, "error", sendErr)
	} else {
		log.Info("run complete", "strategy", report.Strategy, "type", report.Type, "fallback", report.Fallback)
	}

	text, isError := sink.NoticeText(outcome, payload.Title)
	e.notifier.Notify(ctx, text, isError)
	return report, nil
}

// extract runs the selected strategy and, if it fails, the generic one.
func (e *Engine) extract(ctx context.Context, log *slog.Logger, addr *url.URL, report *models.RunReport) (*models.Record, error) {
	sc := &strategy.Context{
		URL:         addr,
		Page:        e.page,
		Markdown:    e.markdown,
		Readability: e.readability,
	}

	s := e.selectStrategy(addr)
	report.Strategy = s.Name()
	log.Debug("strategy selected", "strategy", s.Name())

	rec, err := s.Extract(ctx, sc)
	if err == nil && rec == nil {
		err = models.NewExtractError(models.ErrCodeInternal, s.Name()+" returned no record", nil)
	}
	if err == nil || s == e.generic {
		return rec, err
	}

	log.Warn("strategy failed, falling back to generic",
		"strategy", s.Name(), "code", models.ErrorCode(err), "error", err)
	report.Fallback = true
	report.Strategy = e.generic.Name()

	rec, genErr := e.generic.Extract(ctx, sc)
	if genErr == nil && rec == nil {
		genErr = models.NewExtractError(models.ErrCodeInternal, "generic returned no record", nil)
	}
	if genErr != nil {
		return nil, fmt.Errorf("%s: %w; generic: %w", s.Name(), err, genErr)
	}
	return rec, nil
}

// selectStrategy returns the first matching strategy or the generic one.
func (e *Engine) selectStrategy(u *url.URL) strategy.Strategy {
	for _, s := range e.strategies {
		if matches(s, u) {
			return s
		}
	}
	return e.generic
}

func matches(s strategy.Strategy, u *url.URL) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy match panicked", "strategy", s.Name(), "url", u.String(), "panic", r)
			ok = false
		}
	}()
	return s.Matches(u)
}

// payload builds the submission from the address the page shows now,
// which may differ from the one captured at dispatch.
func (e *Engine) payload(ctx context.Context, log *slog.Logger, dispatched *url.URL, rec *models.Record) *models.Payload {
	cur, err := e.page.Location(ctx)
	if err != nil {
		log.Warn("re-reading address failed, using dispatch address", "error", err)
		cur = dispatched
	}
	return models.NewPayload(rec, cur.String(), page.Host(cur))
}

// begin registers a new run and cancels the one in flight.
func (e *Engine) begin(ctx context.Context) (context.Context, uint64) {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.seq++
	e.cancel = cancel
	return runCtx, e.seq
}

func (e *Engine) end(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seq == seq && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) current(seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq == seq
}
