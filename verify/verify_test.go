package verify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/sdkcheck/dom"
	"github.com/hazyhaar/sdkcheck/locale"
)

const page = `<div id="onfido-mount">
  <span class="title">Connected to your <b>mobile</b></span>
  <p class="spaced">  Once you&#39;ve   finished
     continue  </p>
  <span class="empty"></span>
  <span class="icon" hidden></span>
  <button class="cancel">Cancel</button>
</div>`

// recorder captures what a Verifier signals to a test.
type recorder struct {
	errors  []string
	failNow int
}

func (r *recorder) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}
func (r *recorder) FailNow() { r.failNow++ }
func (r *recorder) Helper()  {}

func finder(t *testing.T) *dom.Finder {
	t.Helper()
	s, err := dom.NewStatic([]byte(page))
	require.NoError(t, err)
	return dom.NewFinder(s, dom.WithTimeout(30*time.Millisecond), dom.WithPoll(5*time.Millisecond))
}

func testCopy(t *testing.T) *locale.Copy {
	t.Helper()
	fsys := fstest.MapFS{
		"en.json": {Data: []byte(`{"title": "Connected to your mobile", "cancel": "Cancel", "wrong": "Abort"}`)},
	}
	cat, err := locale.Load(fsys)
	require.NoError(t, err)
	c, err := cat.Copy("en")
	require.NoError(t, err)
	return c
}

func TestCheck_Match(t *testing.T) {
	f := finder(t)
	err := Check(context.Background(), f.Element(".title"), "Connected to your <strong>mobile</strong>")
	assert.NoError(t, err)
}

func TestCheck_Reflexive(t *testing.T) {
	f := finder(t)
	ctx := context.Background()
	for _, sel := range []string{".title", ".spaced", ".cancel"} {
		el := f.Element(sel)
		text, err := el.Text(ctx)
		require.NoError(t, err)
		assert.NoError(t, Check(ctx, el, text), sel)

		html, err := el.HTML(ctx)
		require.NoError(t, err)
		assert.NoError(t, Check(ctx, el, html), sel+" against own HTML")
	}
}

func TestCheck_Mismatch(t *testing.T) {
	f := finder(t)
	err := Check(context.Background(), f.Element(".cancel"), "Abort")

	var mm *Mismatch
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, "Abort", mm.Want)
	assert.Equal(t, "Cancel", mm.Got)
	assert.Equal(t, ".cancel", mm.Selector)
}

func TestCheck_Preconditions(t *testing.T) {
	f := finder(t)
	ctx := context.Background()

	assert.ErrorIs(t, Check(ctx, f.Element(".cancel"), ""), ErrEmptyCopy)
	assert.ErrorIs(t, Check(ctx, f.Element(".cancel"), " <b> </b> "), ErrEmptyCopy)
	assert.ErrorIs(t, Check(ctx, f.Element(".missing"), "x"), dom.ErrNotFound)
}

func TestVerifier_TestModePass(t *testing.T) {
	rec := &recorder{}
	v := New(rec)
	ctx := context.Background()
	f := finder(t)
	c := testCopy(t)

	assert.True(t, v.ElementCopyKey(ctx, f.Element(".title"), c, "title"))
	assert.True(t, v.ElementCopy(ctx, f.Element(".cancel"), "Cancel"))
	assert.True(t, v.Displayed(ctx, f.Element(".cancel")))
	assert.Empty(t, rec.errors)
	assert.Zero(t, rec.failNow)
	assert.False(t, v.Failed())
	assert.Len(t, v.Results(), 3)
}

func TestVerifier_TestModeFailsImmediately(t *testing.T) {
	rec := &recorder{}
	v := New(rec)
	f := finder(t)

	ok := v.ElementCopyKey(context.Background(), f.Element(".cancel"), testCopy(t), "wrong")
	assert.False(t, ok)
	assert.NotEmpty(t, rec.errors)
	assert.GreaterOrEqual(t, rec.failNow, 1)
	assert.True(t, v.Failed())
}

func TestVerifier_MissingKeyFails(t *testing.T) {
	rec := &recorder{}
	v := New(rec)
	f := finder(t)

	ok := v.ElementCopyKey(context.Background(), f.Element(".cancel"), testCopy(t), "absent")
	assert.False(t, ok)
	assert.GreaterOrEqual(t, rec.failNow, 1)

	res := v.Results()
	require.Len(t, res, 1)
	assert.Equal(t, "absent", res[0].Key)
	assert.Contains(t, res[0].Err, "absent")
}

func TestVerifier_ReportMode(t *testing.T) {
	v := NewReport(nil)
	ctx := context.Background()
	f := finder(t)
	c := testCopy(t)

	assert.True(t, v.ElementCopyKey(ctx, f.Element(".title"), c, "title"))
	assert.False(t, v.ElementCopyKey(ctx, f.Element(".cancel"), c, "wrong"))
	assert.False(t, v.Displayed(ctx, f.Element(".icon")))
	assert.False(t, v.Displayed(ctx, f.Element(".missing")))
	v.Fail("tips", errors.New("no tips rendered"))

	res := v.Results()
	require.Len(t, res, 5)
	assert.True(t, res[0].Passed)
	assert.Equal(t, "Connected to your mobile", res[0].Got)

	assert.False(t, res[1].Passed)
	assert.Equal(t, "wrong", res[1].Key)
	assert.Equal(t, "Abort", res[1].Want)
	assert.Equal(t, "Cancel", res[1].Got)
	assert.Contains(t, res[1].Snapshot, "Cancel")

	assert.False(t, res[2].Passed)
	assert.Contains(t, res[2].Err, "not displayed")
	assert.False(t, res[3].Passed)

	assert.Equal(t, "tips", res[4].Key)
	assert.Equal(t, "no tips rendered", res[4].Err)
	assert.True(t, v.Failed())
}

func TestVerifier_FailedWaitSnapshotsOnce(t *testing.T) {
	s, err := dom.NewStatic([]byte(page))
	require.NoError(t, err)
	const timeout = 300 * time.Millisecond
	f := dom.NewFinder(s, dom.WithTimeout(timeout), dom.WithPoll(5*time.Millisecond))
	v := NewReport(nil)

	start := time.Now()
	ok := v.ElementCopyKey(context.Background(), f.WaitElement(".icon"), testCopy(t), "title")
	elapsed := time.Since(start)

	assert.False(t, ok)
	res := v.Results()
	require.Len(t, res, 1)
	assert.Contains(t, res[0].Err, dom.ErrTimeout.Error())
	assert.Less(t, elapsed, 2*timeout, "the snapshot after a failed wait must not wait again")
}

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  a\n\tb  ", "a b"},
		{"Click <a href=\"#\">here</a>", "Click here"},
		{"Once you&#39;ve finished", "Once you've finished"},
		{"a b", "a b"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}
