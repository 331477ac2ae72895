package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/leadsweep/leadsweep/internal/logger"
)

// Config holds collection loop settings.
type Config struct {
	MaxScrollAttempts int           // hard ceiling on scroll passes
	MaxStalls         int           // consecutive passes without new leads before giving up
	SettleDelay       time.Duration // wait after a scroll before rescanning
	IdleTimeout       time.Duration // network-idle wait bound
	EnrichInterval    time.Duration // minimum spacing between enrichment interactions
	ContactSettle     time.Duration // popover settle time
	ModalAttempts     int           // property modal poll attempts
	ModalBackoff      time.Duration // property modal poll backoff
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxScrollAttempts: 60,
		MaxStalls:         5,
		SettleDelay:       1200 * time.Millisecond,
		IdleTimeout:       10 * time.Second,
		EnrichInterval:    500 * time.Millisecond,
		ContactSettle:     800 * time.Millisecond,
		ModalAttempts:     10,
		ModalBackoff:      300 * time.Millisecond,
	}
}

// Collector runs the collection loop over one browser surface. A collector
// owns exactly one run at a time; all state below is single-threaded.
type Collector struct {
	surface    Surface
	scroll     *ScrollDriver
	contact    *ContactEnricher
	property   *PropertyEnricher
	structural StructuralExtractor
	semantic   SemanticExtractor
	limiter    *rate.Limiter
	cfg        Config
	onPass     func(Progress)
	now        func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Collector) { c.cfg = cfg }
}

// WithStructuralExtractor replaces the default selector-table row reader.
func WithStructuralExtractor(s StructuralExtractor) Option {
	return func(c *Collector) { c.structural = s }
}

// WithSemanticExtractor installs the alternate extraction strategy used
// when the structural scan yields zero rows.
func WithSemanticExtractor(s SemanticExtractor) Option {
	return func(c *Collector) { c.semantic = s }
}

// WithProgress installs a callback invoked after every scanning pass.
func WithProgress(fn func(Progress)) Option {
	return func(c *Collector) { c.onPass = fn }
}

// WithClock overrides the time source. Tests use it to pin "now".
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector over the given surface.
func New(surface Surface, opts ...Option) *Collector {
	c := &Collector{
		surface: surface,
		cfg:     DefaultConfig(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.structural == nil {
		c.structural = NewStructuralExtractor(surface)
	}
	c.scroll = NewScrollDriver(surface)
	c.contact = NewContactEnricher(surface, c.cfg.ContactSettle)
	c.property = NewPropertyEnricher(surface, c.cfg.ModalAttempts, c.cfg.ModalBackoff)
	c.limiter = rate.NewLimiter(rate.Every(c.cfg.EnrichInterval), 1)
	return c
}

// runState is the ephemeral per-run mutable state.
type runState struct {
	store          *DedupStore
	section        *SectionClassifier
	scrollAttempts int
	stalls         int
	passes         int
	reachedCutoff  bool
	hitMaxLeads    bool
}

type passStats struct {
	newLeads int
	rowsSeen int
}

// Collect runs the full state machine: Filtering, then Scanning/Scrolling
// until a terminal condition fires. Whatever was accumulated is always
// exported, alongside the terminal condition; only session invalidation
// returns an error, and even then the partial result is returned with it.
func (c *Collector) Collect(ctx context.Context, req Request) (Result, error) {
	if req.TargetStatus == "" {
		req.TargetStatus = StatusAll
	}
	if !req.TargetStatus.Valid() {
		return Result{}, fmt.Errorf("unknown target status %q", req.TargetStatus)
	}

	logger.Info("collection starting",
		"target_status", string(req.TargetStatus),
		"cutoff", req.CutoffDate,
		"max_leads", req.MaxLeads,
		"extract_details", req.ExtractDetails)

	st := &runState{
		store:   NewDedupStore(),
		section: NewSectionClassifier(req.TargetStatus),
	}

	c.applyFilters(ctx, req)

	term, err := c.run(ctx, st, req)

	result := Result{
		Leads:       st.store.Leads(),
		Termination: term,
		Passes:      st.passes,
		ScrapedAt:   c.now(),
		CutoffDate:  req.CutoffDate,
		TotalLeads:  st.store.Size(),
	}

	logger.Info("collection finished",
		"termination", string(term),
		"passes", st.passes,
		"leads", result.TotalLeads,
		"error", err)
	return result, err
}

func (c *Collector) run(ctx context.Context, st *runState, req Request) (Termination, error) {
	for {
		stats, err := c.scanPass(ctx, st, req)
		if err != nil {
			return TermDone, err
		}
		st.passes++
		c.emit(st, "scanning")

		// First pass with no structural rows at all: hand the page to the
		// semantic extractor if one is installed.
		if st.passes == 1 && stats.rowsSeen == 0 && c.semantic != nil {
			if err := c.semanticFallback(ctx, st, req); err != nil {
				return TermDone, err
			}
		}

		if st.reachedCutoff {
			return TermHitCutoff, nil
		}
		if st.hitMaxLeads {
			return TermHitMaxLeads, nil
		}

		if stats.newLeads == 0 {
			st.stalls++
			if st.stalls >= c.cfg.MaxStalls {
				logger.Warn("collection stalled", "consecutive_stalls", st.stalls)
				return TermExhaustedRetries, nil
			}
		} else {
			st.stalls = 0
		}

		st.scrollAttempts++
		if st.scrollAttempts > c.cfg.MaxScrollAttempts {
			logger.Warn("collection hit scroll ceiling", "attempts", st.scrollAttempts)
			return TermExhaustedRetries, nil
		}

		step, err := c.scroll.Advance(ctx)
		if err != nil {
			if isFatal(err) {
				return TermDone, err
			}
			// A failed scroll is not end-of-content; let the stall counter
			// decide if the UI stopped moving.
			logger.Debug("scroll failed, retrying after settle", "error", err)
			c.settle(ctx)
			continue
		}
		c.emit(st, "scrolling")
		c.settle(ctx)

		if step.AtEnd() {
			// Trailing rows can appear only after the last scroll event
			// settles; run one final permissive pass before terminating.
			if _, err := c.scanPass(ctx, st, req); err != nil {
				return TermDone, err
			}
			st.passes++
			c.emit(st, "final")
			if st.reachedCutoff {
				return TermHitCutoff, nil
			}
			if st.hitMaxLeads {
				return TermHitMaxLeads, nil
			}
			return TermDone, nil
		}
	}
}

// scanPass runs the classifier and parser over all currently rendered rows,
// gates them against the cutoff, enriches new in-range leads, and merges
// them into the store.
func (c *Collector) scanPass(ctx context.Context, st *runState, req Request) (passStats, error) {
	var stats passStats

	rows, err := c.structural.ExtractRows(ctx)
	if err != nil {
		return stats, err
	}
	stats.rowsSeen = len(rows)
	logger.Debug("scan pass", "rendered_rows", len(rows))

scan:
	for _, row := range rows {
		switch st.section.Classify(row) {
		case RowSkip:
			continue
		case RowSectionExhausted:
			logger.Debug("target section exhausted for this pass")
			break scan
		case RowYield:
		}

		fragment, ok := ParseRow(row)
		if !ok {
			logger.Debug("row did not parse", "text", truncate(row, 120))
			continue
		}

		updatedAt, dated := ResolveDate(fragment.RawTimestamp, c.now())
		if dated {
			// Rows render in reverse-chronological order within a section:
			// the first one older than the cutoff ends the whole run.
			if !req.CutoffDate.IsZero() && updatedAt.Before(req.CutoffDate) {
				st.reachedCutoff = true
				break scan
			}
			if !req.StartDate.IsZero() && updatedAt.After(req.StartDate) {
				continue
			}
		}

		lead := fragment.Lead(c.now())
		lead.UpdatedAt = updatedAt
		key := lead.Key()

		if st.store.Has(key) {
			st.store.Upsert(key, lead)
			continue
		}

		if req.ExtractDetails {
			if err := c.enrich(ctx, &lead); err != nil {
				return stats, err
			}
		}

		if st.store.Upsert(key, lead) {
			stats.newLeads++
		}

		if req.MaxLeads > 0 && st.store.Size() >= req.MaxLeads {
			st.hitMaxLeads = true
			break scan
		}
	}

	return stats, nil
}

// enrich runs both detail fetchers strictly in sequence; the UI permits
// only one overlay open at a time.
func (c *Collector) enrich(ctx context.Context, lead *Lead) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.contact.Enrich(ctx, lead); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.property.Enrich(ctx, lead)
}

// applyFilters performs the one-time filter setup: the "all branches"
// equivalent and, when the requested section needs it, the
// reassignment-eligible toggle. Both are best-effort.
func (c *Collector) applyFilters(ctx context.Context, req Request) {
	if err := c.surface.WaitIdle(ctx, c.cfg.IdleTimeout); err != nil {
		logger.Debug("initial idle wait failed", "error", err)
	}
	if err := c.surface.Click(ctx, branchFilterSelector); err != nil {
		logger.Debug("branch filter not applied", "error", err)
	}
	if needsReassignToggle(req.TargetStatus) {
		if err := c.surface.ClickByText(ctx, reassignToggleText); err != nil {
			logger.Debug("reassignable toggle not applied", "error", err)
		}
	}
	c.settle(ctx)
}

// needsReassignToggle reports whether a section is hidden behind the
// "show reassignment-eligible" switch.
func needsReassignToggle(s Status) bool {
	return s == StatusNotCurrent || s == StatusAll
}

func (c *Collector) semanticFallback(ctx context.Context, st *runState, req Request) error {
	logger.Info("structural scan yielded no rows, trying semantic extraction")

	html, err := c.surface.HTML(ctx, "html")
	if err != nil {
		if isFatal(err) {
			return err
		}
		logger.Debug("page HTML read failed", "error", err)
		return nil
	}

	leads, err := c.semantic.ExtractLeads(ctx, html)
	if err != nil {
		if isFatal(err) {
			return err
		}
		logger.Warn("semantic extraction failed", "error", err)
		return nil
	}

	for _, lead := range leads {
		if lead.Contact.Name == "" {
			continue
		}
		if lead.CollectedAt.IsZero() {
			lead.CollectedAt = c.now()
		}
		st.store.Upsert(lead.Key(), lead)
		if req.MaxLeads > 0 && st.store.Size() >= req.MaxLeads {
			st.hitMaxLeads = true
			return nil
		}
	}
	logger.Info("semantic extraction merged", "leads", len(leads))
	return nil
}

func (c *Collector) settle(ctx context.Context) {
	if err := c.surface.Sleep(ctx, c.cfg.SettleDelay); err != nil {
		logger.Debug("settle interrupted", "error", err)
	}
	if err := c.surface.WaitIdle(ctx, c.cfg.IdleTimeout); err != nil {
		logger.Debug("idle wait failed", "error", err)
	}
}

func (c *Collector) emit(st *runState, state string) {
	if c.onPass == nil {
		return
	}
	c.onPass(Progress{
		Passes: st.passes,
		Leads:  st.store.Size(),
		State:  state,
	})
}

func isFatal(err error) bool {
	return errors.Is(err, ErrSessionInvalidated)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
