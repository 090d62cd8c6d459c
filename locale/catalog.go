// Package locale loads the widget's locale dictionaries and exposes strict,
// read-only per-locale views of them.
//
// Locale files are nested objects keyed by screen, section and item:
//
//	{"cross_device": {"mobile_connected": {"title": {"message": "Connected to your mobile"}}}}
//
// Nested keys are addressed with dots: "cross_device.mobile_connected.title.message".
package locale

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when a caller asks for the empty locale code.
const DefaultLocale = "en"

type unmarshalFunc func(data []byte, v any) error

var formats = map[string]unmarshalFunc{
	"json": json.Unmarshal,
	"toml": toml.Unmarshal,
	"yaml": yaml.Unmarshal,
	"yml":  yaml.Unmarshal,
}

// Catalog holds every loaded locale. It has no mutators: once Load returns
// the catalog is safe to share.
type Catalog struct {
	bundle *i18n.Bundle
	def    language.Tag
	tags   []language.Tag
	files  map[string]string // locale tag -> source file

	// locale tag -> dotted key -> message. Text is kept verbatim: copy is
	// compared as written, never executed as a template.
	messages map[string]map[string]*i18n.Message
}

type options struct {
	def    string
	logger *slog.Logger
}

// Option configures Load.
type Option func(*options)

// WithDefault sets the locale used for the empty code. Default: "en".
func WithDefault(lang string) Option { return func(o *options) { o.def = lang } }

// WithLogger sets the logger used while loading.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// LoadDir loads every locale file found directly in dir.
func LoadDir(dir string, opts ...Option) (*Catalog, error) {
	return Load(os.DirFS(dir), opts...)
}

// Load reads every *.json, *.toml, *.yaml and *.yml file at the root of
// fsys. The file name stem is the locale code (en.json, es.json, fr.toml).
func Load(fsys fs.FS, opts ...Option) (*Catalog, error) {
	o := options{def: DefaultLocale}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	def, err := language.Parse(o.def)
	if err != nil {
		return nil, fmt.Errorf("locale: default %q: %w", o.def, err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("locale: read dir: %w", err)
	}

	bundle := i18n.NewBundle(def)
	c := &Catalog{
		bundle:   bundle,
		def:      def,
		files:    make(map[string]string),
		messages: make(map[string]map[string]*i18n.Message),
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.TrimPrefix(path.Ext(name), ".")
		unmarshal, ok := formats[ext]
		if !ok {
			continue
		}

		tag, err := fileTag(name)
		if err != nil {
			return nil, err
		}
		if prev, dup := c.files[tag.String()]; dup {
			return nil, fmt.Errorf("locale: %s and %s both define %s", prev, name, tag)
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("locale: read %s: %w", name, err)
		}
		var raw any
		if err := unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("locale: parse %s: %w", name, err)
		}
		flat := make(map[string]*i18n.Message)
		if err := flatten("", raw, flat); err != nil {
			return nil, fmt.Errorf("locale: parse %s: %w", name, err)
		}

		msgs := make([]*i18n.Message, 0, len(flat))
		for _, m := range flat {
			msgs = append(msgs, m)
		}
		if err := bundle.AddMessages(tag, msgs...); err != nil {
			return nil, fmt.Errorf("locale: %s: %w", name, err)
		}

		c.files[tag.String()] = name
		c.messages[tag.String()] = flat
		c.tags = append(c.tags, tag)
		o.logger.Debug("locale: loaded", "file", name, "locale", tag.String(), "messages", len(flat))
	}

	if len(c.tags) == 0 {
		return nil, ErrNoLocales
	}
	if _, ok := c.messages[def.String()]; !ok {
		return nil, fmt.Errorf("%w: default %s has no locale file", ErrUnknownLocale, def)
	}

	sort.Slice(c.tags, func(i, j int) bool { return c.tags[i].String() < c.tags[j].String() })
	o.logger.Info("locale: catalog loaded", "locales", len(c.tags), "default", def.String())
	return c, nil
}

// Languages returns the loaded locales sorted by code.
func (c *Catalog) Languages() []language.Tag {
	out := make([]language.Tag, len(c.tags))
	copy(out, c.tags)
	return out
}

// Bundle returns the go-i18n bundle holding every loaded message under its
// dotted key, for callers that render pluralized or templated text. Copy
// lookups never go through it.
func (c *Catalog) Bundle() *i18n.Bundle { return c.bundle }

// Default returns the locale used for the empty code.
func (c *Catalog) Default() language.Tag { return c.def }

// Copy returns the strict view of lang. The empty code selects the default.
func (c *Catalog) Copy(lang string) (*Copy, error) {
	if lang == "" {
		return c.newCopy(c.def), nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownLocale, lang, err)
	}
	for _, t := range c.tags {
		if t.String() == tag.String() {
			return c.newCopy(t), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownLocale, tag)
}

func (c *Catalog) newCopy(tag language.Tag) *Copy {
	return &Copy{
		catalog:  c,
		lang:     tag,
		messages: c.messages[tag.String()],
	}
}

// fileTag reads the locale code from a file name: "en.json", "es-MX.yaml",
// or "active.fr.toml" (last dotted segment of the stem).
func fileTag(name string) (language.Tag, error) {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if i := strings.LastIndexByte(stem, '.'); i >= 0 {
		stem = stem[i+1:]
	}
	tag, err := language.Parse(stem)
	if err != nil || tag == language.Und {
		return language.Und, fmt.Errorf("locale: %s: file name carries no locale code", name)
	}
	return tag, nil
}

// flatten walks a decoded dictionary and records every leaf under its
// dotted key. Every nested object is a group of fields, whatever its keys
// are called.
func flatten(prefix string, v any, out map[string]*i18n.Message) error {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if err := flatten(joinKey(prefix, k), child, out); err != nil {
				return err
			}
		}
		return nil
	case map[any]any:
		for k, child := range node {
			if err := flatten(joinKey(prefix, fmt.Sprint(k)), child, out); err != nil {
				return err
			}
		}
		return nil
	}

	if prefix == "" {
		return errors.New("dictionary root must be an object")
	}
	var text string
	switch leaf := v.(type) {
	case string:
		text = leaf
	case bool, int, int64, uint64, float64:
		text = fmt.Sprint(leaf)
	case nil:
		return fmt.Errorf("%q: null value", prefix)
	default:
		return fmt.Errorf("%q: unsupported value of type %T", prefix, v)
	}
	if _, dup := out[prefix]; dup {
		return fmt.Errorf("%q: defined twice", prefix)
	}
	out[prefix] = &i18n.Message{ID: prefix, Other: text}
	return nil
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
