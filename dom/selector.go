package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// The static engine supports the CSS subset the widget's page objects use:
//   - type: "div", "li"
//   - #id: "#onfido-mount", "div#onfido-mount"
//   - classes, any number: ".a", "button.a.b.c"
//   - attributes: "[data-x]", "[role=main]", `[href="#"]`
//   - positional pseudo-classes: ":nth-child(2)", ":first-child", ":last-child"
//   - descendant (space) and child (">") combinators

type combinator byte

const (
	descendant combinator = ' '
	child      combinator = '>'
)

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
	nth     int // 1-based position among element siblings, 0 = any
	last    bool
}

type attrMatch struct {
	key    string
	val    string
	hasVal bool
}

// step is one compound plus the combinator linking it to the previous step.
type step struct {
	comb combinator
	sel  compound
}

type selector []step

// parseSelector compiles a selector. Selector groups (",") are rejected.
func parseSelector(raw string) (selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrSelector)
	}
	if hasTopLevel(raw, ',') {
		return nil, fmt.Errorf("%w: selector groups in %q", ErrSelector, raw)
	}

	tokens := tokenize(raw)
	var out selector
	comb := descendant
	for _, tok := range tokens {
		if tok == ">" {
			if len(out) == 0 || comb == child {
				return nil, fmt.Errorf("%w: dangling '>' in %q", ErrSelector, raw)
			}
			comb = child
			continue
		}
		c, err := parseCompound(tok)
		if err != nil {
			return nil, fmt.Errorf("%w in %q", err, raw)
		}
		out = append(out, step{comb: comb, sel: c})
		comb = descendant
	}
	if comb == child {
		return nil, fmt.Errorf("%w: trailing '>' in %q", ErrSelector, raw)
	}
	return out, nil
}

// tokenize splits on whitespace and '>' outside brackets/parentheses,
// keeping '>' as its own token.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '[' || r == '(':
			depth++
			cur.WriteRune(r)
		case r == ']' || r == ')':
			depth--
			cur.WriteRune(r)
		case depth == 0 && r == '>':
			flush()
			tokens = append(tokens, ">")
		case depth == 0 && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func hasTopLevel(s string, target rune) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case target:
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// parseCompound parses "tag#id.class1.class2[attr=val]:nth-child(2)".
func parseCompound(tok string) (compound, error) {
	var c compound
	i := 0
	readName := func() string {
		start := i
		for i < len(tok) && !strings.ContainsRune("#.[:", rune(tok[i])) {
			i++
		}
		return tok[start:i]
	}

	c.tag = strings.ToLower(readName())
	if c.tag == "*" {
		c.tag = ""
	}

	for i < len(tok) {
		switch tok[i] {
		case '#':
			i++
			c.id = readName()
			if c.id == "" {
				return c, fmt.Errorf("%w: empty id", ErrSelector)
			}
		case '.':
			i++
			cls := readName()
			if cls == "" {
				return c, fmt.Errorf("%w: empty class", ErrSelector)
			}
			c.classes = append(c.classes, cls)
		case '[':
			end := strings.IndexByte(tok[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("%w: unterminated attribute", ErrSelector)
			}
			body := tok[i+1 : i+end]
			i += end + 1
			var a attrMatch
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				a.key = body[:eq]
				a.val = strings.Trim(body[eq+1:], `"'`)
				a.hasVal = true
			} else {
				a.key = body
			}
			if a.key == "" {
				return c, fmt.Errorf("%w: empty attribute name", ErrSelector)
			}
			c.attrs = append(c.attrs, a)
		case ':':
			i++
			name := readName()
			switch {
			case name == "first-child":
				c.nth = 1
			case name == "last-child":
				c.last = true
			case strings.HasPrefix(name, "nth-child("):
				// readName stops at '.', ':' etc; the argument is digits only.
				arg := strings.TrimSuffix(strings.TrimPrefix(name, "nth-child("), ")")
				n, err := strconv.Atoi(arg)
				if err != nil || n < 1 || !strings.HasSuffix(name, ")") {
					return c, fmt.Errorf("%w: nth-child argument %q", ErrSelector, arg)
				}
				c.nth = n
			default:
				return c, fmt.Errorf("%w: pseudo-class :%s", ErrSelector, name)
			}
		default:
			return c, fmt.Errorf("%w: unexpected %q", ErrSelector, tok[i])
		}
	}
	return c, nil
}

// match reports whether n satisfies the whole selector, reading it right to
// left from n.
func (s selector) match(n *html.Node) bool {
	return s.matchAt(n, len(s)-1)
}

func (s selector) matchAt(n *html.Node, i int) bool {
	if !s[i].sel.match(n) {
		return false
	}
	if i == 0 {
		return true
	}
	switch s[i].comb {
	case child:
		p := parentElement(n)
		return p != nil && s.matchAt(p, i-1)
	default:
		for p := parentElement(n); p != nil; p = parentElement(p) {
			if s.matchAt(p, i-1) {
				return true
			}
		}
		return false
	}
}

func (c compound) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && getAttr(n, "id") != c.id {
		return false
	}
	if len(c.classes) > 0 {
		have := strings.Fields(getAttr(n, "class"))
		for _, want := range c.classes {
			if !containsString(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		if !hasAttr(n, a.key) {
			return false
		}
		if a.hasVal && getAttr(n, a.key) != a.val {
			return false
		}
	}
	if c.nth > 0 && elementPosition(n) != c.nth {
		return false
	}
	if c.last && nextElementSibling(n) != nil {
		return false
	}
	return true
}

func parentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}

func elementPosition(n *html.Node) int {
	pos := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			pos++
		}
	}
	return pos
}

func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
