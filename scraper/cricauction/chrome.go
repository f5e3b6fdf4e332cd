package cricauction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"cricauction-scraper/utils"
)

// ChromeOptions configures the headless browser session.
type ChromeOptions struct {
	Headless bool
	ExecPath string

	PageLoadTimeout time.Duration
	EvalTimeout     time.Duration
	ClickTimeout    time.Duration
}

// ChromeRenderer is a Renderer backed by a single chromedp tab.
type ChromeRenderer struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   ChromeOptions

	closeOnce sync.Once
}

// NewChromeRenderer starts the browser. A browser that cannot start is a
// setup failure and is returned as an error.
func NewChromeRenderer(parent context.Context, opts ChromeOptions, logger *utils.Logger) (*ChromeRenderer, error) {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 20 * time.Second
	}
	if opts.EvalTimeout <= 0 {
		opts.EvalTimeout = 15 * time.Second
	}
	if opts.ClickTimeout <= 0 {
		opts.ClickTimeout = 5 * time.Second
	}

	chromeBin := opts.ExecPath
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	logger.Info("[chrome] Using browser binary: %s", displayBinary(chromeBin))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.WindowSize(1400, 1200),
	)
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("chrome: start browser: %w", err)
	}

	return &ChromeRenderer{ctx: tabCtx, cancel: cancel, opts: opts}, nil
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (r *ChromeRenderer) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(r.ctx, timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (r *ChromeRenderer) Navigate(ctx context.Context, url string) error {
	return r.run(ctx, r.opts.PageLoadTimeout, chromedp.Navigate(url))
}

func (r *ChromeRenderer) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	return r.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (r *ChromeRenderer) Eval(ctx context.Context, script string, out any) error {
	return r.run(ctx, r.opts.EvalTimeout, chromedp.Evaluate(script, out))
}

func (r *ChromeRenderer) Click(ctx context.Context, selector string) error {
	return r.run(ctx, r.opts.ClickTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// Close shuts the tab and the browser process. It is safe to call twice.
func (r *ChromeRenderer) Close() error {
	r.closeOnce.Do(r.cancel)
	return nil
}

func displayBinary(bin string) string {
	if bin == "" {
		return "(chromedp default)"
	}
	return bin
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
