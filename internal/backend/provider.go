package backend

import (
	"fmt"

	"github.com/jonesrussell/harvester/internal/domain"
	"github.com/jonesrussell/harvester/internal/logger"
)

// Provider dispatches fetch backends by source configuration. The
// browser backend's Chrome process and tab pool are shared across runs;
// static backends are cheap and built per run.
type Provider struct {
	defaults Options
	browser  *BrowserBackend
	logger   logger.Interface
}

// NewProvider creates a backend provider.
func NewProvider(defaults Options, poolCap int, headless bool, log logger.Interface) *Provider {
	return &Provider{
		defaults: defaults,
		browser:  NewBrowserBackend(defaults, poolCap, headless, log),
		logger:   log,
	}
}

// Backend returns the backend variant for the given kind, tuned with the
// per-run options. Zero option fields fall back to provider defaults.
func (p *Provider) Backend(kind domain.Backend, opts Options) (Backend, error) {
	merged := p.merge(opts)

	switch kind {
	case domain.BackendStatic:
		return NewStaticBackend(merged), nil
	case domain.BackendBrowser:
		return p.browser.WithOptions(merged), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

// Shutdown releases the shared browser resources.
func (p *Provider) Shutdown() {
	p.browser.Shutdown()
}

func (p *Provider) merge(opts Options) Options {
	if opts.TimeoutMillis == 0 {
		opts.TimeoutMillis = p.defaults.TimeoutMillis
	}
	if opts.WaitMillis == 0 {
		opts.WaitMillis = p.defaults.WaitMillis
	}
	if opts.UserAgent == "" {
		opts.UserAgent = p.defaults.UserAgent
	}
	return opts
}
