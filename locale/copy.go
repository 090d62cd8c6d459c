package locale

import (
	"fmt"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Copy is the user-facing text of one locale, optionally narrowed to a
// section of the dictionary. Keys passed to a sectioned Copy are relative to
// that section.
type Copy struct {
	catalog  *Catalog
	lang     language.Tag
	messages map[string]*i18n.Message
	prefix   string
}

// Lang returns the locale of this view.
func (c *Copy) Lang() language.Tag { return c.lang }

// Section returns a view scoped to prefix. Sections nest:
// c.Section("cross_device").Section("mobile_connected").
func (c *Copy) Section(prefix string) *Copy {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return c
	}
	sub := *c
	sub.prefix = c.Key(prefix)
	return &sub
}

// Key returns the full dotted key for a key relative to this view.
func (c *Copy) Key(key string) string {
	key = strings.Trim(key, ".")
	if c.prefix == "" {
		return key
	}
	if key == "" {
		return c.prefix
	}
	return c.prefix + "." + key
}

// Message returns the text stored under key. It does not fall back to the
// catalog default: a key absent from this locale yields ErrMissingKey.
func (c *Copy) Message(key string) (string, error) {
	full := c.Key(key)
	if full == "" {
		return "", fmt.Errorf("%w: empty key", ErrMissingKey)
	}

	m, ok := c.messages[full]
	if !ok {
		return "", fmt.Errorf("%w: %s has no %q", ErrMissingKey, c.lang, full)
	}
	return m.Other, nil
}

// Has reports whether key has a message in this locale.
func (c *Copy) Has(key string) bool {
	_, err := c.Message(key)
	return err == nil
}
