// Package engine composes the browser, session bootstrap, resolver and
// collection loop into one runnable unit shared by the CLI and the HTTP
// API.
package engine

import (
	"context"
	"fmt"

	"github.com/leadsweep/leadsweep/internal/browser"
	"github.com/leadsweep/leadsweep/internal/collector"
	"github.com/leadsweep/leadsweep/internal/logger"
	"github.com/leadsweep/leadsweep/internal/resolver"
	"github.com/leadsweep/leadsweep/internal/session"
)

// ResolverConfig selects the optional LLM-backed resolver.
type ResolverConfig struct {
	Enabled  bool
	Provider string
	Model    string
	APIKey   string
}

// Config aggregates the engine's parts.
type Config struct {
	Browser   browser.Config
	Session   session.Config
	Collector collector.Config
	Resolver  ResolverConfig
	Preflight bool
}

// Engine owns one browser and hands out sequential runs. Runs must not
// overlap: a run owns the page exclusively.
type Engine struct {
	cfg      Config
	browser  *browser.Browser
	resolver *resolver.Client
	semantic collector.SemanticExtractor
}

// New launches the browser and, when configured, builds the resolver
// client.
func New(cfg Config) (*Engine, error) {
	b, err := browser.New(cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	if cfg.Collector == (collector.Config{}) {
		cfg.Collector = collector.DefaultConfig()
	}

	e := &Engine{cfg: cfg, browser: b}

	if cfg.Resolver.Enabled {
		name := cfg.Resolver.Provider
		apiKey := cfg.Resolver.APIKey
		if name == "" {
			name, apiKey = resolver.DetectProvider()
		}
		pcfg := resolver.DefaultProviderConfig()
		pcfg.APIKey = apiKey
		pcfg.Model = cfg.Resolver.Model
		provider, err := resolver.NewProvider(name, pcfg)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("build resolver: %w", err)
		}
		e.resolver = resolver.NewClient(provider)
		e.semantic = resolver.NewLeadExtractor(e.resolver)
		logger.Info("resolver enabled", "provider", name)
	}

	return e, nil
}

// Run executes one collection run end to end: page, preflight, login,
// board, loop. The result always carries whatever was accumulated, even
// when err is non-nil.
func (e *Engine) Run(ctx context.Context, req collector.Request, onPass func(collector.Progress)) (collector.Result, error) {
	page, err := e.browser.NewPage()
	if err != nil {
		return collector.Result{}, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	sess := session.New(page, e.resolver, e.cfg.Session)
	if e.cfg.Preflight {
		if err := sess.Preflight(ctx); err != nil {
			return collector.Result{}, err
		}
	}
	if err := sess.Login(ctx); err != nil {
		return collector.Result{}, err
	}
	if err := sess.OpenBoard(ctx); err != nil {
		return collector.Result{}, err
	}

	opts := []collector.Option{collector.WithConfig(e.cfg.Collector)}
	if e.semantic != nil {
		opts = append(opts, collector.WithSemanticExtractor(e.semantic))
	}
	if onPass != nil {
		opts = append(opts, collector.WithProgress(onPass))
	}

	return collector.New(page, opts...).Collect(ctx, req)
}

// Close shuts the browser down.
func (e *Engine) Close() error {
	return e.browser.Close()
}
