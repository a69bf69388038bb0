package postal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCountry(t *testing.T) {
	tests := []struct {
		raw     string
		country Country
		ok      bool
	}{
		{"90210", US, true},
		{"90210-1234", US, true},
		{"K1A 0B1", CA, true},
		{"k1a0b1", CA, true},
		{"K1A\t0B1", CA, true},
		{"  10001  ", US, true},
		{"invalid", Unknown, false},
		{"123", Unknown, false},
		{"1234", Unknown, false},
		{"123456", Unknown, false},
		{"90210-123", Unknown, false},
		{"K11 0B1", Unknown, false},
		{"", Unknown, false},
		{"   ", Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			country, ok := DetectCountry(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.country, country)
		})
	}
}

func TestNormalizeUS(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"90210", "90210", true},
		{"90210-1234", "90210", true},
		{" 10001 ", "10001", true},
		{"1234", "", false},     // too short
		{"123456", "", false},   // 6 digits, no dash
		{"12345-123", "", false}, // malformed extension
		{"12345-12345", "", false},
		{"abcde", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Normalize(tt.raw, US)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCA(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"K1A 0B1", "K1A0B1", true},
		{"k1a0b1", "K1A0B1", true},
		{"k1a  0b1", "K1A0B1", true},
		{"m5v3a8", "M5V3A8", true},
		{"K11 0B1", "", false}, // digit where a letter is required
		{"KAA 0B1", "", false}, // letter where a digit is required
		{"K1A 0B", "", false},  // missing final character
		{"K1A", "", false},     // missing second group
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Normalize(tt.raw, CA)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCountryToken(t *testing.T) {
	// The country token is compared case-insensitively.
	got, ok := Normalize("90210-1234", Country("us"))
	assert.True(t, ok)
	assert.Equal(t, "90210", got)

	got, ok = Normalize("k1a 0b1", Country("ca"))
	assert.True(t, ok)
	assert.Equal(t, "K1A0B1", got)

	_, ok = Normalize("90210", Country("DE"))
	assert.False(t, ok)

	_, ok = Normalize("90210", Unknown)
	assert.False(t, ok)
}

func TestNormalizeAny(t *testing.T) {
	code, country, ok := NormalizeAny("k1a 0b1")
	assert.True(t, ok)
	assert.Equal(t, "K1A0B1", code)
	assert.Equal(t, CA, country)

	code, country, ok = NormalizeAny("90210-1234")
	assert.True(t, ok)
	assert.Equal(t, "90210", code)
	assert.Equal(t, US, country)

	_, _, ok = NormalizeAny("not a code")
	assert.False(t, ok)
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"90210", "90210-1234", "k1a 0b1", "M5V 3A8", "10001"}
	for _, raw := range inputs {
		code, country, ok := NormalizeAny(raw)
		assert.True(t, ok, raw)

		again, ok := Normalize(code, country)
		assert.True(t, ok, raw)
		assert.Equal(t, code, again, raw)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("90210", US))
	assert.True(t, IsValid("K1A 0B1", CA))
	assert.False(t, IsValid("12345-123", US))
	assert.False(t, IsValid("K11 0B1", CA))
	assert.False(t, IsValid("90210", Unknown))

	assert.True(t, IsValidAny("90210"))
	assert.True(t, IsValidAny("k1a0b1"))
	assert.False(t, IsValidAny("invalid"))
}

func TestParseCountry(t *testing.T) {
	for _, s := range []string{"US", "us", " Us "} {
		c, ok := ParseCountry(s)
		assert.True(t, ok)
		assert.Equal(t, US, c)
	}
	c, ok := ParseCountry("ca")
	assert.True(t, ok)
	assert.Equal(t, CA, c)

	_, ok = ParseCountry("MX")
	assert.False(t, ok)
	_, ok = ParseCountry("")
	assert.False(t, ok)
}
