// Package dom is the DOM query capability shared by every screen object.
//
// A Querier resolves CSS selectors against a live document (a browser tab,
// or a parsed HTML snapshot). A Finder layers the wait policy on top and
// hands out Element handles. Handles hold a selector and a position only:
// every read resolves the selector again, so a re-rendered document is
// always observed as it is now.
package dom

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound means no element currently matches the selector, either
	// because it was never rendered or because it has been detached.
	ErrNotFound = errors.New("dom: no element matches selector")

	// ErrTimeout means an element did not become visible in time.
	ErrTimeout = errors.New("dom: timed out waiting for element")

	// ErrSelector means the selector uses syntax the static engine does
	// not support.
	ErrSelector = errors.New("dom: unsupported selector")
)

const (
	// DefaultTimeout bounds every poll-until-visible wait.
	DefaultTimeout = 5 * time.Second

	// DefaultPoll is the interval between two visibility probes.
	DefaultPoll = 100 * time.Millisecond
)

// Node is one resolved element of the document.
type Node interface {
	// Text returns the rendered text of the element.
	Text() (string, error)
	// HTML returns the outer HTML of the element.
	HTML() (string, error)
	// Visible reports whether the element is displayed.
	Visible() (bool, error)
}

// Querier resolves a CSS selector against the current document and returns
// the matches in document order. An empty result is not an error.
type Querier interface {
	Query(ctx context.Context, selector string) ([]Node, error)
}

// Finder is the lookup helper injected into screen objects.
type Finder struct {
	q       Querier
	timeout time.Duration
	poll    time.Duration
}

// Option configures a Finder.
type Option func(*Finder)

// WithTimeout sets the poll-until-visible timeout. Default: 5s.
func WithTimeout(d time.Duration) Option { return func(f *Finder) { f.timeout = d } }

// WithPoll sets the interval between visibility probes. Default: 100ms.
func WithPoll(d time.Duration) Option { return func(f *Finder) { f.poll = d } }

// NewFinder wraps q with the default wait policy.
func NewFinder(q Querier, opts ...Option) *Finder {
	f := &Finder{q: q, timeout: DefaultTimeout, poll: DefaultPoll}
	for _, o := range opts {
		o(f)
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.poll <= 0 {
		f.poll = DefaultPoll
	}
	return f
}

// Timeout returns the wait applied by WaitElement handles.
func (f *Finder) Timeout() time.Duration { return f.timeout }

// Element returns a handle on the first match of selector.
func (f *Finder) Element(selector string) Element {
	return Element{f: f, selector: selector}
}

// WaitElement returns a handle on the first match of selector that waits
// for the element to be visible before every read.
func (f *Finder) WaitElement(selector string) Element {
	return Element{f: f, selector: selector, wait: true}
}

// All returns one positional handle per current match of selector.
func (f *Finder) All(ctx context.Context, selector string) ([]Element, error) {
	nodes, err := f.q.Query(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("dom: query %q: %w", selector, err)
	}
	out := make([]Element, len(nodes))
	for i := range nodes {
		out[i] = Element{f: f, selector: selector, index: i}
	}
	return out, nil
}

// Element is a lazy handle on the index-th match of a selector.
type Element struct {
	f        *Finder
	selector string
	index    int
	wait     bool
}

// Immediate returns the same handle without the visibility wait: reads go
// straight to the current document.
func (e Element) Immediate() Element {
	e.wait = false
	return e
}

// Selector returns the CSS selector of the handle.
func (e Element) Selector() string { return e.selector }

// Index returns the 0-based position of the handle among the matches.
func (e Element) Index() int { return e.index }

// String identifies the handle in failure messages.
func (e Element) String() string {
	if e.index == 0 {
		return e.selector
	}
	return fmt.Sprintf("%s [%d]", e.selector, e.index)
}

// Resolve looks the element up in the current document.
func (e Element) Resolve(ctx context.Context) (Node, error) {
	if e.f == nil {
		return nil, fmt.Errorf("%w: zero Element", ErrNotFound)
	}
	if e.wait {
		// Nodes found while polling are bound to the wait deadline.
		if _, err := e.waitVisible(ctx); err != nil {
			return nil, err
		}
	}
	return e.resolve(ctx)
}

func (e Element) resolve(ctx context.Context) (Node, error) {
	nodes, err := e.f.q.Query(ctx, e.selector)
	if err != nil {
		return nil, fmt.Errorf("dom: query %q: %w", e.selector, err)
	}
	if e.index >= len(nodes) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e)
	}
	return nodes[e.index], nil
}

// WaitVisible polls until the element is visible or the Finder timeout
// elapses.
func (e Element) WaitVisible(ctx context.Context) error {
	if e.f == nil {
		return fmt.Errorf("%w: zero Element", ErrNotFound)
	}
	_, err := e.waitVisible(ctx)
	return err
}

func (e Element) waitVisible(parent context.Context) (Node, error) {
	ctx, cancel := context.WithTimeout(parent, e.f.timeout)
	defer cancel()

	ticker := time.NewTicker(e.f.poll)
	defer ticker.Stop()

	var last error
	for {
		n, err := e.resolve(ctx)
		if errors.Is(err, ErrSelector) {
			return nil, err
		}
		if err == nil {
			vis, verr := n.Visible()
			if verr == nil && vis {
				return n, nil
			}
			err = verr
		}
		last = err

		select {
		case <-ctx.Done():
			if perr := parent.Err(); perr != nil {
				return nil, fmt.Errorf("dom: wait %s: %w", e, perr)
			}
			if last != nil {
				return nil, fmt.Errorf("%w after %s: %s: %v", ErrTimeout, e.f.timeout, e, last)
			}
			return nil, fmt.Errorf("%w after %s: %s not visible", ErrTimeout, e.f.timeout, e)
		case <-ticker.C:
		}
	}
}

// Text returns the rendered text of the element.
func (e Element) Text(ctx context.Context) (string, error) {
	n, err := e.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return n.Text()
}

// HTML returns the outer HTML of the element.
func (e Element) HTML(ctx context.Context) (string, error) {
	n, err := e.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return n.HTML()
}

// Displayed reports whether the element is attached and visible. A missing
// element is reported as not displayed, not as an error.
func (e Element) Displayed(ctx context.Context) (bool, error) {
	n, err := e.Resolve(ctx)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n.Visible()
}
