package cricauction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cricauction-scraper/models"
	"cricauction-scraper/services"
	"cricauction-scraper/utils"
)

// DefaultListingURL is the upcoming-auction listing page.
const DefaultListingURL = "https://cricauction.live/upcoming-auction"

// ErrListingsNotFound means the first listing card never appeared.
var ErrListingsNotFound = errors.New("listing cards never appeared")

// Options tunes the walker. Every wait it performs is bounded by one of these.
type Options struct {
	URL string

	// MaxPages is an absolute cap on pages visited.
	MaxPages int
	// StagnantLimit is how many advances may leave the content unchanged
	// before pagination is declared over.
	StagnantLimit int

	LoadTimeout       time.Duration
	LoadAttempts      int
	LoadRetryDelay    time.Duration
	PageChangeTimeout time.Duration
	PollInterval      time.Duration
	SettleDelay       time.Duration

	Now func() time.Time
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		URL:               DefaultListingURL,
		MaxPages:          500,
		StagnantLimit:     1,
		LoadTimeout:       10 * time.Second,
		LoadAttempts:      2,
		LoadRetryDelay:    2 * time.Second,
		PageChangeTimeout: 6 * time.Second,
		PollInterval:      250 * time.Millisecond,
		SettleDelay:       150 * time.Millisecond,
		Now:               time.Now,
	}
}

// Walker pages through the listing and emits every distinct record once.
type Walker struct {
	renderer Renderer
	opts     Options
	logger   *utils.Logger
}

// NewWalker creates a Walker that takes ownership of renderer; Walk closes it.
func NewWalker(renderer Renderer, opts Options, logger *utils.Logger) *Walker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	return &Walker{renderer: renderer, opts: opts, logger: logger}
}

// Walk drives the pagination state machine. emit is called for each new
// record as soon as its page is read. The only error returned is a failed
// initial load; every later fault ends pagination with a StopReason. The
// renderer is closed on every path.
func (w *Walker) Walk(ctx context.Context, emit func(models.Record)) (stats models.WalkStats, err error) {
	defer func() {
		if cerr := w.renderer.Close(); cerr != nil {
			w.logger.Warn("[walker] Closing renderer: %v", cerr)
		}
	}()

	if err := w.load(ctx); err != nil {
		return stats, err
	}

	dateAdded := w.opts.Now().Format("2006-01-02")
	seen := utils.NewKeySet[models.IdentityKey]()

	lastSig, err := w.signature(ctx)
	if err != nil {
		w.logger.Warn("[walker] Reading initial signature: %v", err)
	}

	page, stagnant := 1, 0
	for {
		stats.ScrapeCycles++
		if err := w.scrape(ctx, dateAdded, seen, emit, &stats); err != nil {
			w.logger.Warn("[walker] Page %d read failed: %v", page, err)
			stats.Reason = faultReason(ctx, models.StopRenderer)
			break
		}

		if page >= w.opts.MaxPages {
			stats.Reason = models.StopPageCap
			break
		}

		if reason := w.advance(ctx); reason != models.StopNone {
			stats.Reason = reason
			break
		}

		sig, changed, err := w.awaitChange(ctx, lastSig)
		if err != nil {
			w.logger.Warn("[walker] Waiting for page %d: %v", page+1, err)
			stats.Reason = faultReason(ctx, models.StopRenderer)
			break
		}
		if changed {
			lastSig = sig
			stagnant = 0
			page++
			w.logger.Debug("[walker] Advanced to page %d", page)
			continue
		}

		stagnant++
		stats.Stagnations++
		w.logger.Debug("[walker] Page %d did not change after advancing (%d/%d)", page, stagnant, w.opts.StagnantLimit)
		if stagnant > w.opts.StagnantLimit {
			stats.Reason = models.StopStagnant
			break
		}
	}

	stats.Pages = page
	w.logger.Info("[walker] Done after %d pages (%d reads): %s; %d records emitted",
		stats.Pages, stats.ScrapeCycles, stats.Reason, stats.Emitted)
	return stats, nil
}

func (w *Walker) load(ctx context.Context) error {
	retry := &utils.RetryConfig{
		MaxAttempts: w.opts.LoadAttempts,
		BaseDelay:   w.opts.LoadRetryDelay,
		Logger:      w.logger,
	}
	err := retry.Do(ctx, "load-listings", func(ctx context.Context) error {
		if err := w.renderer.Navigate(ctx, w.opts.URL); err != nil {
			return fmt.Errorf("navigate %s: %w", w.opts.URL, err)
		}
		if err := w.renderer.WaitReady(ctx, cardSelector, w.opts.LoadTimeout); err != nil {
			return fmt.Errorf("wait for %s: %w", cardSelector, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walker: %w: %w", ErrListingsNotFound, err)
	}
	w.logger.Info("[walker] Listing page loaded: %s", w.opts.URL)
	return nil
}

// scrape reads every rendered card in one batch and emits the records not
// yet seen in this session.
func (w *Walker) scrape(ctx context.Context, dateAdded string, seen *utils.KeySet[models.IdentityKey],
	emit func(models.Record), stats *models.WalkStats) error {
	var fragments []string
	if err := w.renderer.Eval(ctx, cardsScript, &fragments); err != nil {
		return fmt.Errorf("read cards: %w", err)
	}
	cards, err := ParseCards(fragments)
	if err != nil {
		return err
	}

	for _, card := range cards {
		rec := card.Record(dateAdded)
		if rec.Title == "" {
			stats.Skipped++
			continue
		}
		if !seen.Add(services.BuildIdentityKey(rec)) {
			continue
		}
		stats.Emitted++
		emit(rec)
	}
	return nil
}

// advance clicks the next control. A missing or unusable control ends
// pagination rather than failing the run.
func (w *Walker) advance(ctx context.Context) models.StopReason {
	var st nextState
	if err := w.renderer.Eval(ctx, nextStateScript, &st); err != nil {
		w.logger.Warn("[walker] Inspecting next control: %v", err)
		return faultReason(ctx, models.StopInteraction)
	}
	if !st.Present || !st.Visible || !st.Enabled {
		return models.StopNoNext
	}

	// The control may only attach once scrolled into view.
	if err := w.renderer.Eval(ctx, scrollScript, nil); err != nil {
		w.logger.Warn("[walker] Scrolling to next control: %v", err)
		return faultReason(ctx, models.StopInteraction)
	}
	if err := utils.Sleep(ctx, w.opts.SettleDelay); err != nil {
		return models.StopCancelled
	}

	if err := w.renderer.Click(ctx, nextSelector); err != nil {
		w.logger.Debug("[walker] Click on next control failed (%v), retrying via script", err)
		var clicked bool
		if err := w.renderer.Eval(ctx, scriptClickScript, &clicked); err != nil || !clicked {
			if err == nil {
				err = errors.New("control vanished")
			}
			w.logger.Warn("[walker] Script click on next control: %v", err)
			return faultReason(ctx, models.StopInteraction)
		}
	}
	return models.StopNone
}

// awaitChange polls until the card signature differs from last or the
// page-change timeout elapses.
func (w *Walker) awaitChange(ctx context.Context, last string) (string, bool, error) {
	deadline := time.Now().Add(w.opts.PageChangeTimeout)
	for {
		if err := utils.Sleep(ctx, w.opts.PollInterval); err != nil {
			return "", false, err
		}
		sig, err := w.signature(ctx)
		if err != nil {
			return "", false, err
		}
		if sig != "" && sig != last {
			return sig, true, nil
		}
		if !time.Now().Before(deadline) {
			return last, false, nil
		}
	}
}

// signature joins the first few card titles; empty means no cards rendered.
func (w *Walker) signature(ctx context.Context) (string, error) {
	var titles []string
	if err := w.renderer.Eval(ctx, signatureScript, &titles); err != nil {
		return "", fmt.Errorf("read signature: %w", err)
	}
	parts := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "|"), nil
}

func faultReason(ctx context.Context, reason models.StopReason) models.StopReason {
	if ctx.Err() != nil {
		return models.StopCancelled
	}
	return reason
}
