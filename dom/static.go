package dom

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"golang.org/x/net/html"
)

// Static is a Querier over a parsed HTML document. It serves page objects
// when no browser is involved: rendered snapshots fetched over HTTP, and
// fixtures in tests. Replace swaps the document the way a re-render would.
type Static struct {
	mu   sync.RWMutex
	root *html.Node
	gen  uint64
}

// NewStatic parses doc.
func NewStatic(doc []byte) (*Static, error) {
	s := &Static{}
	if err := s.Replace(doc); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace parses doc and makes it the current document. Nodes resolved from
// the previous document report ErrNotFound from then on.
func (s *Static) Replace(doc []byte) error {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("dom: parse document: %w", err)
	}
	s.mu.Lock()
	s.root = root
	s.gen++
	s.mu.Unlock()
	return nil
}

// Query implements Querier.
func (s *Static) Query(ctx context.Context, sel string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	compiled, err := parseSelector(sel)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && compiled.match(n) {
			out = append(out, &staticNode{doc: s, gen: s.gen, n: n})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(s.root)
	return out, nil
}

type staticNode struct {
	doc *Static
	gen uint64
	n   *html.Node
}

func (sn *staticNode) attached() error {
	if sn.doc.gen != sn.gen {
		return fmt.Errorf("%w: node detached by re-render", ErrNotFound)
	}
	return nil
}

func (sn *staticNode) Text() (string, error) {
	sn.doc.mu.RLock()
	defer sn.doc.mu.RUnlock()
	if err := sn.attached(); err != nil {
		return "", err
	}
	return innerText(sn.n), nil
}

func (sn *staticNode) HTML() (string, error) {
	sn.doc.mu.RLock()
	defer sn.doc.mu.RUnlock()
	if err := sn.attached(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, sn.n); err != nil {
		return "", fmt.Errorf("dom: render: %w", err)
	}
	return buf.String(), nil
}

// Visible is false when the node or any ancestor is hidden.
func (sn *staticNode) Visible() (bool, error) {
	sn.doc.mu.RLock()
	defer sn.doc.mu.RUnlock()
	if err := sn.attached(); err != nil {
		return false, err
	}
	for n := sn.n; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && (hiddenSelf(n) || skipText(n)) {
			return false, nil
		}
	}
	return true, nil
}
