// internal/geometry/chrome.go
package geometry

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/doc"
)

// ChromeConfig tunes the headless measurement browser.
type ChromeConfig struct {
	CellWidth      float64
	ViewportWidth  int
	ViewportHeight int
	Timeout        time.Duration
	Headless       bool
}

// Chrome is a Provider that measures real rendered geometry: each query
// exports the node to XHTML, loads it in a headless browser tab and reads
// layout metrics back. It is the production counterpart of the Estimator and
// is substantially slower, so the scheduler should be configured with a
// generous debounce when it is active.
type Chrome struct {
	cfg         ChromeConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChrome starts the browser allocator. Call Close when done.
func NewChrome(cfg ChromeConfig, logger *zap.Logger) (*Chrome, error) {
	if cfg.CellWidth <= 0 {
		return nil, ErrNoMetrics
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1280
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 2048
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Chrome{
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "geometry_chrome")),
		allocCtx:    allocCtx,
		allocCancel: cancel,
	}, nil
}

// Close tears down the browser allocator.
func (c *Chrome) Close() {
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

// render loads markup into a fresh tab and evaluates expr, decoding the
// result into out.
func (c *Chrome) render(markup, expr string, out any) error {
	ctx, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer timeoutCancel()

	url := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(markup))
	err := chromedp.Run(ctx,
		emulation.SetDeviceMetricsOverride(int64(c.cfg.ViewportWidth), int64(c.cfg.ViewportHeight), 1, false),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(expr, out),
	)
	if err != nil {
		return fmt.Errorf("geometry: chrome measurement: %w", err)
	}
	return nil
}

func (c *Chrome) measureCell(cell *doc.Node) (float64, error) {
	markup, err := doc.ExportCellXHTML(cell, c.cfg.CellWidth)
	if err != nil {
		return 0, err
	}
	var h float64
	if err := c.render(markup, `document.querySelector("td,th").scrollHeight`, &h); err != nil {
		return 0, err
	}
	return h, nil
}

// ContentHeight implements Provider.
func (c *Chrome) ContentHeight(cell *doc.Node) (float64, error) {
	return c.measureCell(cell)
}

// BlockHeight implements Provider: the block is measured wrapped in a cell
// of its own so line wrapping matches in-table rendering.
func (c *Chrome) BlockHeight(block *doc.Node) (float64, error) {
	wrapper := &doc.Node{Kind: doc.KindCell, Children: []*doc.Node{block.Clone()}}
	return c.measureCell(wrapper)
}

// Overflows implements Provider.
func (c *Chrome) Overflows(cell *doc.Node, maxHeight float64) (bool, error) {
	h, err := c.measureCell(cell)
	if err != nil {
		return false, err
	}
	return h > maxHeight, nil
}

// SpareCapacity implements Provider.
func (c *Chrome) SpareCapacity(cell *doc.Node, maxHeight float64) (float64, error) {
	h, err := c.measureCell(cell)
	if err != nil {
		return 0, err
	}
	if h >= maxHeight {
		return 0, nil
	}
	return maxHeight - h, nil
}

// splitProbeJS binary-searches stream offsets inside the first cell using
// Range geometry: the furthest offset whose caret rect still ends within the
// budget height. The stream convention matches the flattened block model:
// every text character is one unit and every <br> is one unit, so the
// returned offset feeds straight into the inline block split. Runs entirely
// in the page to avoid a round trip per probe.
const splitProbeJS = `(function(budget){
	const cell = document.querySelector("td,th");
	if (!cell) return -1;
	const walker = document.createTreeWalker(cell, NodeFilter.SHOW_TEXT | NodeFilter.SHOW_ELEMENT, {
		acceptNode: (n) => (n.nodeType === Node.TEXT_NODE || n.tagName === "BR")
			? NodeFilter.FILTER_ACCEPT : NodeFilter.FILTER_SKIP
	});
	const segs = [];
	while (walker.nextNode()) {
		const n = walker.currentNode;
		segs.push(n.nodeType === Node.TEXT_NODE ? {node: n, len: n.data.length} : {node: n, len: 1});
	}
	const total = segs.reduce((acc, s) => acc + s.len, 0);
	if (total === 0) return -1;
	const top = cell.getBoundingClientRect().top;
	const bottomAt = (off) => {
		let remaining = off;
		for (const s of segs) {
			if (remaining <= s.len) {
				const r = document.createRange();
				if (s.node.nodeType === Node.TEXT_NODE) {
					r.setStart(s.node, 0);
					r.setEnd(s.node, remaining);
				} else {
					r.selectNode(s.node);
				}
				const rects = r.getClientRects();
				if (rects.length === 0) return 0;
				return rects[rects.length - 1].bottom - top;
			}
			remaining -= s.len;
		}
		return cell.scrollHeight;
	};
	if (bottomAt(total) <= budget) return -1;
	let lo = 0, hi = total;
	while (lo + 1 < hi) {
		const mid = (lo + hi) >> 1;
		if (bottomAt(mid) <= budget) lo = mid; else hi = mid;
	}
	return lo;
})(%f)`

// SplitOffset implements Provider via an in-page caret probe.
func (c *Chrome) SplitOffset(block *doc.Node, budget float64) (int, bool, error) {
	wrapper := &doc.Node{Kind: doc.KindCell, Children: []*doc.Node{block.Clone()}}
	markup, err := doc.ExportCellXHTML(wrapper, c.cfg.CellWidth)
	if err != nil {
		return 0, false, err
	}
	var offset int
	if err := c.render(markup, fmt.Sprintf(splitProbeJS, budget), &offset); err != nil {
		return 0, false, err
	}
	if offset <= 0 {
		return 0, false, nil
	}
	return offset, true, nil
}

var _ Provider = (*Chrome)(nil)
