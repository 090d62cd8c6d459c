// Package verify checks rendered copy against locale dictionaries and
// signals pass/fail, either to a running test or into a collected report.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/sdkcheck/dom"
	"github.com/hazyhaar/sdkcheck/locale"
	"github.com/hazyhaar/sdkcheck/strutil"
)

// ErrEmptyCopy is returned when the expected copy is empty after
// normalisation.
var ErrEmptyCopy = errors.New("verify: expected copy is empty")

// ErrNotDisplayed is recorded when an element that must be shown is not.
var ErrNotDisplayed = errors.New("verify: element not displayed")

// Mismatch is returned by Check when the rendered text differs from the
// expected copy.
type Mismatch struct {
	Selector string
	Want     string
	Got      string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("verify: %s: got %q, want %q", m.Selector, m.Got, m.Want)
}

// Normalize is applied to both sides of a comparison.
func Normalize(s string) string {
	return dom.CleanText(strutil.StripXMLTagsFromString(s))
}

// Check compares the current text of el with expected.
func Check(ctx context.Context, el dom.Element, expected string) error {
	want := Normalize(expected)
	if want == "" {
		return fmt.Errorf("%w: %s", ErrEmptyCopy, el)
	}
	text, err := el.Text(ctx)
	if err != nil {
		return err
	}
	got := Normalize(text)
	if got != want {
		return &Mismatch{Selector: el.String(), Want: want, Got: got}
	}
	return nil
}

// TestingT is the subset of *testing.T a Verifier signals through.
type TestingT interface {
	Errorf(format string, args ...any)
	FailNow()
	Helper()
}

// Result is the outcome of one check.
type Result struct {
	Key      string `json:"key,omitempty"`
	Selector string `json:"selector"`
	Want     string `json:"want,omitempty"`
	Got      string `json:"got,omitempty"`
	Passed   bool   `json:"passed"`
	Err      string `json:"error,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`
}

// Verifier records checks. In test mode the first failure stops the test.
type Verifier struct {
	t      TestingT
	logger *slog.Logger

	mu      sync.Mutex
	results []Result
}

// New returns a Verifier bound to a test.
func New(t TestingT) *Verifier {
	return &Verifier{t: t, logger: slog.Default()}
}

// NewReport returns a collecting Verifier. Failures are logged and kept
// in Results.
func NewReport(logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{logger: logger}
}

// ElementCopy checks that el renders expected.
func (v *Verifier) ElementCopy(ctx context.Context, el dom.Element, expected string) bool {
	if v.t != nil {
		v.t.Helper()
	}
	return v.check(ctx, "", el, expected)
}

// ElementCopyKey checks that el renders the message stored under key. A key
// missing from the locale is a failure.
func (v *Verifier) ElementCopyKey(ctx context.Context, el dom.Element, c *locale.Copy, key string) bool {
	if v.t != nil {
		v.t.Helper()
	}
	full := c.Key(key)
	msg, err := c.Message(key)
	if err != nil {
		return v.record(ctx, el, Result{Key: full, Selector: el.String(), Err: err.Error()}, err)
	}
	return v.check(ctx, full, el, msg)
}

// Displayed checks that el is attached and visible.
func (v *Verifier) Displayed(ctx context.Context, el dom.Element) bool {
	if v.t != nil {
		v.t.Helper()
	}
	ok, err := el.Displayed(ctx)
	if err == nil && !ok {
		err = fmt.Errorf("%w: %s", ErrNotDisplayed, el)
	}
	r := Result{Selector: el.String(), Passed: err == nil}
	if err != nil {
		r.Err = err.Error()
	}
	return v.record(ctx, el, r, err)
}

// Fail records a failure that is not tied to a single element.
func (v *Verifier) Fail(key string, err error) {
	if v.t != nil {
		v.t.Helper()
	}
	v.record(context.Background(), dom.Element{}, Result{Key: key, Err: err.Error()}, err)
}

// Results returns a copy of every recorded result.
func (v *Verifier) Results() []Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Result(nil), v.results...)
}

// Failed reports whether any check failed.
func (v *Verifier) Failed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.results {
		if !r.Passed {
			return true
		}
	}
	return false
}

func (v *Verifier) check(ctx context.Context, key string, el dom.Element, expected string) bool {
	r := Result{Key: key, Selector: el.String(), Want: Normalize(expected)}
	err := Check(ctx, el, expected)

	var mm *Mismatch
	switch {
	case err == nil:
		r.Got = r.Want
		r.Passed = true
	case errors.As(err, &mm):
		r.Got = mm.Got
		r.Err = err.Error()
	default:
		r.Err = err.Error()
	}
	return v.record(ctx, el, r, err)
}

func (v *Verifier) record(ctx context.Context, el dom.Element, r Result, err error) bool {
	if v.t != nil {
		v.t.Helper()
	}
	if err != nil {
		r.Passed = false
		if el.Selector() != "" {
			if snap, serr := dom.Snapshot(ctx, el.Immediate()); serr == nil {
				r.Snapshot = snap
			}
		}
	}

	v.mu.Lock()
	v.results = append(v.results, r)
	v.mu.Unlock()

	if err == nil {
		return true
	}

	if v.t == nil {
		v.logger.Warn("verify: check failed",
			"key", r.Key, "selector", r.Selector, "want", r.Want, "got", r.Got, "error", r.Err)
		return false
	}

	var mm *Mismatch
	if errors.As(err, &mm) {
		require.Equal(v.t, mm.Want, mm.Got, "copy of %s (key %q)", r.Selector, r.Key)
	}
	require.NoError(v.t, err, "check %s (key %q)", r.Selector, r.Key)
	return false
}
