package zipdex

import (
	"github.com/zipdex/zipdex/codec"
	"github.com/zipdex/zipdex/postal"
)

type options struct {
	codec     codec.Codec
	logger    *Logger
	countries []postal.Country
}

// Option configures engine construction.
type Option func(*options)

// WithCodec configures the codec used to decode records from the data blob.
// It must be the codec the artifacts were built with; if nil is passed,
// codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging. The default is a noop logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithCountries restricts the engine to the given country partitions.
// The default is every supported country; each listed country must have
// both of its artifacts present in the store or Open fails.
func WithCountries(countries ...postal.Country) Option {
	return func(o *options) {
		o.countries = countries
	}
}
