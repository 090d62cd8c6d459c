package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/sdkcheck/dom"
)

// Tab wraps a Rod page opened on the widget.
type Tab struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
}

var _ dom.Querier = (*Tab)(nil)

// OpenTab creates a new tab and navigates it to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	t := &Tab{Page: page, PageURL: pageURL, manager: mgr}
	if err := t.navigate(ctx, pageURL); err != nil {
		page.Close()
		return nil, err
	}
	return t, nil
}

// Navigate points the tab at pageURL and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, pageURL string) error {
	if err := t.navigate(ctx, pageURL); err != nil {
		return err
	}
	t.PageURL = pageURL
	return nil
}

func (t *Tab) navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, t.manager.cfg.NavigateTimeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		t.manager.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return nil
}

// Reload reloads the current document.
func (t *Tab) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, t.manager.cfg.NavigateTimeout)
	defer cancel()
	if err := t.Page.Context(navCtx).Reload(); err != nil {
		return fmt.Errorf("browser: reload: %w", err)
	}
	return t.Page.Context(navCtx).WaitLoad()
}

// Query implements dom.Querier. It returns the current matches without
// waiting; dom.Finder owns the wait policy.
func (t *Tab) Query(ctx context.Context, selector string) ([]dom.Node, error) {
	els, err := t.Page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: elements %q: %w", selector, invalidSelector(err))
	}
	out := make([]dom.Node, len(els))
	for i, el := range els {
		out[i] = rodNode{el: el}
	}
	return out, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}

type rodNode struct {
	el *rod.Element
}

func (n rodNode) Text() (string, error) {
	s, err := n.el.Text()
	if err != nil {
		return "", detached(err)
	}
	return s, nil
}

func (n rodNode) HTML() (string, error) {
	s, err := n.el.HTML()
	if err != nil {
		return "", detached(err)
	}
	return s, nil
}

func (n rodNode) Visible() (bool, error) {
	v, err := n.el.Visible()
	if err != nil {
		return false, detached(err)
	}
	return v, nil
}

// invalidSelector maps the SyntaxError querySelectorAll throws on a
// malformed selector onto dom.ErrSelector, so waits fail at once.
func invalidSelector(err error) error {
	var evalErr *rod.EvalError
	if errors.As(err, &evalErr) && strings.Contains(err.Error(), "is not a valid selector") {
		return fmt.Errorf("%w: %v", dom.ErrSelector, err)
	}
	return err
}

var detachedMessages = []string{
	"Could not find node with given id",
	"does not belong to the document",
	"Cannot find context with specified id",
}

// detached maps "node is gone" CDP failures onto dom.ErrNotFound.
func detached(err error) error {
	var notFound *rod.ObjectNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", dom.ErrNotFound, err)
	}
	msg := err.Error()
	for _, gone := range detachedMessages {
		if strings.Contains(msg, gone) {
			return fmt.Errorf("%w: %v", dom.ErrNotFound, err)
		}
	}
	return err
}
