package locale

import "errors"

var (
	// ErrNoLocales is returned by Load when the filesystem holds no
	// recognised locale file.
	ErrNoLocales = errors.New("locale: no locale files found")

	// ErrUnknownLocale is returned when a locale code is not in the catalog.
	ErrUnknownLocale = errors.New("locale: unknown locale")

	// ErrMissingKey is returned when a key has no message in the requested
	// locale. Lookups never fall back to another locale.
	ErrMissingKey = errors.New("locale: missing key")
)
