package screens

import (
	"context"
	"fmt"

	"github.com/hazyhaar/sdkcheck/dom"
	"github.com/hazyhaar/sdkcheck/locale"
	"github.com/hazyhaar/sdkcheck/verify"
)

// DocumentUploadConfirmationName is the registry name of the screen that
// asks the user to confirm or retake an uploaded document.
const DocumentUploadConfirmationName = "document_upload_confirmation"

const (
	clearDetailsSelector = "div#onfido-mount div.onfido-sdk-ui-Title-titleWrapper.onfido-sdk-ui-Title-smaller.onfido-sdk-ui-Confirm-title > div:nth-child(2)"
	redoSelector         = "div#onfido-mount button.onfido-sdk-ui-Confirm-retake.onfido-sdk-ui-Button-button.onfido-sdk-ui-Button-button-outline"
	confirmSelector      = "div#onfido-mount button.onfido-sdk-ui-Confirm-btn-primary.onfido-sdk-ui-Button-button.onfido-sdk-ui-Button-button-primary"
)

// DefaultDocumentType is the dictionary section used when Deps leaves the
// document type empty.
const DefaultDocumentType = "document"

// DocumentUploadConfirmation is the "check your image" screen.
type DocumentUploadConfirmation struct {
	chrome
	catalog *locale.Catalog

	// DocumentType picks confirm.<DocumentType>.message.
	DocumentType string
}

func NewDocumentUploadConfirmation(d Deps) *DocumentUploadConfirmation {
	doc := d.DocumentType
	if doc == "" {
		doc = DefaultDocumentType
	}
	return &DocumentUploadConfirmation{
		chrome:       chrome{find: d.Finder},
		catalog:      d.Catalog,
		DocumentType: doc,
	}
}

func (s *DocumentUploadConfirmation) Name() string { return DocumentUploadConfirmationName }

func (s *DocumentUploadConfirmation) MakeSureClearDetailsMessage() dom.Element {
	return s.find.Element(clearDetailsSelector)
}

func (s *DocumentUploadConfirmation) RedoBtn() dom.Element { return s.find.Element(redoSelector) }

func (s *DocumentUploadConfirmation) ConfirmBtn() dom.Element { return s.find.Element(confirmSelector) }

// WaitForUploadToFinish blocks until the confirm button is visible. It
// returns dom.ErrTimeout when the upload does not finish within the
// Finder timeout.
func (s *DocumentUploadConfirmation) WaitForUploadToFinish(ctx context.Context) error {
	return s.ConfirmBtn().WaitVisible(ctx)
}

// Copy returns the dictionary for lang. Empty lang selects the catalog
// default.
func (s *DocumentUploadConfirmation) Copy(lang string) (*locale.Copy, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("screens: %s: %w", s.Name(), locale.ErrNoLocales)
	}
	return s.catalog.Copy(lang)
}

func (s *DocumentUploadConfirmation) VerifyUIElements(ctx context.Context, v *verify.Verifier, c *locale.Copy) {
	if err := s.WaitForUploadToFinish(ctx); err != nil {
		v.Fail(confirmSelector, err)
		return
	}
	confirm := c.Section("confirm")
	v.ElementCopyKey(ctx, s.MakeSureClearDetailsMessage(), confirm.Section(s.DocumentType), "message")
	v.ElementCopyKey(ctx, s.RedoBtn(), confirm, "redo")
	v.ElementCopyKey(ctx, s.ConfirmBtn(), confirm, "confirm")
}
