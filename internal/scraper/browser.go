package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ligastats/ligastats/internal/pkg/config"
)

// Session is one headless browser tab. Each ingestion run owns its own
// session; sessions are not safe for concurrent use.
type Session struct {
	cfg         config.ScraperConfig
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// NewSession launches a headless Chrome rooted on parent, so cancelling
// parent tears the browser down.
func NewSession(parent context.Context, cfg config.ScraperConfig) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so a broken binary surfaces here, not on the
	// first navigation.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the tab and the browser process down.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
}

func (s *Session) navigate(url string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// location returns the current page URL, or "" when it cannot be read.
func (s *Session) location() string {
	tctx, cancel := context.WithTimeout(s.ctx, queryTimeout)
	defer cancel()
	var loc string
	if err := chromedp.Run(tctx, chromedp.Location(&loc)); err != nil {
		return ""
	}
	return loc
}

func (s *Session) waitReady(sel string, timeout time.Duration) bool {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitReady(sel, chromedp.ByQuery)) == nil
}

func (s *Session) click(sel string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.Click(sel, chromedp.ByQuery))
}
