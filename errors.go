package zipdex

import "errors"

var (
	// ErrNoCountries is returned by Open when the configured country set is
	// empty. An engine without partitions cannot serve any request.
	ErrNoCountries = errors.New("zipdex: no countries configured")
)
