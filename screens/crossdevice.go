package screens

import (
	"context"
	"fmt"

	"github.com/hazyhaar/sdkcheck/dom"
	"github.com/hazyhaar/sdkcheck/locale"
	"github.com/hazyhaar/sdkcheck/verify"
)

// CrossDeviceMobileConnectedName is the registry name of the screen shown
// on the desktop once the mobile device has picked up the flow.
const CrossDeviceMobileConnectedName = "cross_device_mobile_connected"

const (
	iconSelector       = ".onfido-sdk-ui-Theme-icon"
	tipsHeaderSelector = ".onfido-sdk-ui-Theme-header"
	tipsSelector       = ".onfido-sdk-ui-crossDevice-MobileConnected-helpList li"
	cancelSelector     = ".onfido-sdk-ui-crossDevice-MobileConnected-cancel"
)

// CrossDeviceMobileConnected is the "connected to your mobile" screen.
type CrossDeviceMobileConnected struct {
	chrome
}

func NewCrossDeviceMobileConnected(d Deps) *CrossDeviceMobileConnected {
	return &CrossDeviceMobileConnected{chrome: chrome{find: d.Finder}}
}

func (s *CrossDeviceMobileConnected) Name() string { return CrossDeviceMobileConnectedName }

func (s *CrossDeviceMobileConnected) Icon() dom.Element { return s.find.Element(iconSelector) }

// TipsHeader waits for the header to be visible before it is read.
func (s *CrossDeviceMobileConnected) TipsHeader() dom.Element {
	return s.find.WaitElement(tipsHeaderSelector)
}

// Tips returns one handle per rendered tip, in order.
func (s *CrossDeviceMobileConnected) Tips(ctx context.Context) ([]dom.Element, error) {
	return s.find.All(ctx, tipsSelector)
}

func (s *CrossDeviceMobileConnected) Cancel() dom.Element { return s.find.Element(cancelSelector) }

// VerifyUIElements checks every string on the screen against c. Tips are
// matched positionally: the i-th rendered tip against item_i.
func (s *CrossDeviceMobileConnected) VerifyUIElements(ctx context.Context, v *verify.Verifier, c *locale.Copy) {
	screen := c.Section("cross_device.mobile_connected")

	v.ElementCopyKey(ctx, s.Title(), screen, "title.message")
	v.ElementCopyKey(ctx, s.Subtitle(), screen, "title.submessage")
	v.Displayed(ctx, s.Icon())
	v.ElementCopyKey(ctx, s.TipsHeader(), c, "cross_device.tips")

	tips, err := s.Tips(ctx)
	switch {
	case err != nil:
		v.Fail(screen.Key("tips"), err)
	case len(tips) == 0:
		v.Fail(screen.Key("tips"), fmt.Errorf("screens: %s: %w", tipsSelector, dom.ErrNotFound))
	}
	items := screen.Section("tips")
	for i, tip := range tips {
		v.ElementCopyKey(ctx, tip, items, fmt.Sprintf("item_%d", i+1))
	}

	v.ElementCopyKey(ctx, s.Cancel(), c, "cancel")
}
