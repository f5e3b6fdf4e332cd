package cricauction

import (
	"context"
	"time"
)

// Renderer is a live browser page the walker drives. Implementations own
// the underlying browser session and release it in Close.
type Renderer interface {
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until selector matches at least one element or the
	// timeout elapses.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// Eval runs a JavaScript expression in the page and decodes its JSON
	// result into out. A nil out discards the result.
	Eval(ctx context.Context, script string, out any) error
	Click(ctx context.Context, selector string) error
	Close() error
}

const (
	cardSelector     = ".team-content"
	titleSelector    = "h2"
	locationSelector = ".team-location p"
	subtextSelector  = ".team-subcontent"
	nextSelector     = "#nextBtn"
)

// Page scripts. Each one is a single expression so it can be evaluated as-is.
const (
	// cardsScript returns every rendered card's markup in one round trip.
	cardsScript = `Array.from(document.querySelectorAll('.team-content')).map(c => c.outerHTML)`

	signatureScript = `Array.from(document.querySelectorAll('.team-content h2')).slice(0, 6).map(e => (e.textContent || '').trim())`

	nextStateScript = `(() => {
		const b = document.querySelector('#nextBtn');
		if (!b) return {present: false, visible: false, enabled: false};
		const st = window.getComputedStyle(b);
		const visible = !!(b.offsetWidth || b.offsetHeight || b.getClientRects().length) &&
			st.visibility !== 'hidden' && st.display !== 'none';
		const enabled = !b.disabled && b.getAttribute('aria-disabled') !== 'true';
		return {present: true, visible: visible, enabled: enabled};
	})()`

	scrollScript = `window.scrollTo(0, document.body.scrollHeight)`

	scriptClickScript = `(() => {
		const b = document.querySelector('#nextBtn');
		if (!b) return false;
		b.click();
		return true;
	})()`
)

type nextState struct {
	Present bool `json:"present"`
	Visible bool `json:"visible"`
	Enabled bool `json:"enabled"`
}
