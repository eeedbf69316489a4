package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// queryTimeout bounds every single DOM read. Missing elements resolve fast
// instead of hanging the run; callers get the fallback value.
const queryTimeout = 2 * time.Second

// text returns the trimmed text of the first element matching sel, or def
// when the element is absent or unreadable.
func (s *Session) text(sel, def string, opts ...chromedp.QueryOption) string {
	tctx, cancel := context.WithTimeout(s.ctx, queryTimeout)
	defer cancel()

	var out string
	qopts := append([]chromedp.QueryOption{chromedp.ByQuery, chromedp.AtLeast(0)}, opts...)
	if err := chromedp.Run(tctx, chromedp.Text(sel, &out, qopts...)); err != nil {
		return def
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return def
	}
	return out
}

// attr returns the named attribute of the first element matching sel, or def
// when the element or attribute is absent.
func (s *Session) attr(sel, name, def string, opts ...chromedp.QueryOption) string {
	tctx, cancel := context.WithTimeout(s.ctx, queryTimeout)
	defer cancel()

	var out string
	var ok bool
	qopts := append([]chromedp.QueryOption{chromedp.ByQuery, chromedp.AtLeast(0)}, opts...)
	if err := chromedp.Run(tctx, chromedp.AttributeValue(sel, name, &out, &ok, qopts...)); err != nil || !ok {
		return def
	}
	return strings.TrimSpace(out)
}

// count returns how many elements match sel, 0 on any failure.
func (s *Session) count(sel string) int {
	var n int
	expr := fmt.Sprintf("document.querySelectorAll(%q).length", sel)
	if !s.eval(expr, &n) {
		return 0
	}
	return n
}

// has reports whether node has a descendant matching sel.
func (s *Session) has(node *cdp.Node, sel string) bool {
	var ok bool
	expr := fmt.Sprintf(
		`(() => { const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue; return el != null && el.querySelector(%q) != null; })()`,
		node.FullXPath(), sel)
	return s.eval(expr, &ok) && ok
}

// nodeText returns the trimmed textContent of node itself, or def.
func (s *Session) nodeText(node *cdp.Node, def string) string {
	var out string
	expr := fmt.Sprintf(
		`(() => { const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue; return el ? el.textContent.trim() : ""; })()`,
		node.FullXPath())
	if !s.eval(expr, &out) || out == "" {
		return def
	}
	return out
}

// firstTextNode returns the leading text of the first descendant of node
// matching sel, excluding text contributed by child elements. Used for cells
// where the interesting text sits before nested markup.
func (s *Session) firstTextNode(node *cdp.Node, sel, def string) string {
	var out string
	expr := fmt.Sprintf(
		`(() => {
			const root = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
			if (!root) return "";
			const el = root.querySelector(%q);
			if (!el || !el.firstChild) return "";
			return (el.firstChild.textContent || "").trim();
		})()`,
		node.FullXPath(), sel)
	if !s.eval(expr, &out) || out == "" {
		return def
	}
	return out
}

// evalString runs expr and returns its string result, or def.
func (s *Session) evalString(expr, def string) string {
	var out string
	if !s.eval(expr, &out) || strings.TrimSpace(out) == "" {
		return def
	}
	return strings.TrimSpace(out)
}

// eval runs a JS expression and unmarshals the result into res.
func (s *Session) eval(expr string, res any) bool {
	tctx, cancel := context.WithTimeout(s.ctx, queryTimeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.Evaluate(expr, res)) == nil
}

// listNodes returns all elements matching sel, nil on failure. Attributes are
// populated so callers can branch on class names without extra round trips.
func (s *Session) listNodes(sel string) []*cdp.Node {
	tctx, cancel := context.WithTimeout(s.ctx, 3*queryTimeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(tctx, chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil
	}
	return nodes
}
