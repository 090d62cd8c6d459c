// Package screens holds one page object per widget screen. Each page object
// names the elements of its screen and knows how to check their copy.
package screens

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hazyhaar/sdkcheck/dom"
	"github.com/hazyhaar/sdkcheck/locale"
	"github.com/hazyhaar/sdkcheck/verify"
)

// ErrUnknownScreen is returned by New for a name no page object answers to.
var ErrUnknownScreen = errors.New("screens: unknown screen")

// Screen is a page object that can check its own copy.
type Screen interface {
	Name() string
	VerifyUIElements(ctx context.Context, v *verify.Verifier, c *locale.Copy)
}

// Deps are the collaborators every page object receives.
type Deps struct {
	Finder  *dom.Finder
	Catalog *locale.Catalog

	// DocumentType selects the confirm.<type>.message key on the upload
	// confirmation screen. Empty means "document".
	DocumentType string
}

var registry = map[string]func(Deps) Screen{
	CrossDeviceMobileConnectedName: func(d Deps) Screen { return NewCrossDeviceMobileConnected(d) },
	DocumentUploadConfirmationName: func(d Deps) Screen { return NewDocumentUploadConfirmation(d) },
}

// New returns the page object registered under name.
func New(name string, d Deps) (Screen, error) {
	if d.Finder == nil {
		return nil, fmt.Errorf("screens: %s: nil finder", name)
	}
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
	return mk(d), nil
}

// Names lists the registered screens, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// chrome holds the elements every screen of the widget shares.
type chrome struct {
	find *dom.Finder
}

func (c chrome) Title() dom.Element     { return c.find.Element(".onfido-sdk-ui-PageTitle-titleSpan") }
func (c chrome) Subtitle() dom.Element  { return c.find.Element(".onfido-sdk-ui-PageTitle-subTitle") }
func (c chrome) BackArrow() dom.Element { return c.find.Element(".onfido-sdk-ui-NavigationBar-iconBack") }

// Mount is the widget root.
func (c chrome) Mount() dom.Element { return c.find.Element("#onfido-mount") }
