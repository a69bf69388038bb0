package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/zipdex/zipdex/model"
)

// Binary is the default compact codec for PostalLocation records.
//
// Layout: five uvarint length-prefixed strings (postal code, country code,
// place name, admin1, admin2) followed by latitude and longitude as IEEE 754
// bits in little-endian uint64. Encoding then decoding is a byte-exact round
// trip; trailing bytes after the last field are treated as corruption.
type Binary struct{}

// Name returns the unique name of the codec ("binary").
func (Binary) Name() string { return "binary" }

// Marshal encodes a PostalLocation. Other types are rejected.
func (Binary) Marshal(v any) ([]byte, error) {
	var loc model.PostalLocation
	switch t := v.(type) {
	case model.PostalLocation:
		loc = t
	case *model.PostalLocation:
		loc = *t
	default:
		return nil, fmt.Errorf("binary codec: unsupported type %T", v)
	}

	// Size guess: field lengths plus prefixes plus two coordinates.
	buf := make([]byte, 0, 32+len(loc.PostalCode)+len(loc.CountryCode)+len(loc.PlaceName)+len(loc.AdminCode1)+len(loc.AdminCode2))

	for _, s := range []string{loc.PostalCode, loc.CountryCode, loc.PlaceName, loc.AdminCode1, loc.AdminCode2} {
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(loc.Latitude))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(loc.Longitude))
	return buf, nil
}

// Unmarshal decodes into a *model.PostalLocation.
func (Binary) Unmarshal(data []byte, v any) error {
	loc, ok := v.(*model.PostalLocation)
	if !ok {
		return fmt.Errorf("binary codec: unsupported type %T", v)
	}

	fields := make([]string, 5)
	for i := range fields {
		sLen, n := binary.Uvarint(data)
		if n <= 0 {
			return errors.New("binary codec: invalid string length")
		}
		data = data[n:]
		if uint64(len(data)) < sLen {
			return errors.New("binary codec: short buffer for string")
		}
		fields[i] = string(data[:sLen])
		data = data[sLen:]
	}

	if len(data) != 16 {
		return errors.New("binary codec: malformed coordinate section")
	}
	lat := math.Float64frombits(binary.LittleEndian.Uint64(data))
	lng := math.Float64frombits(binary.LittleEndian.Uint64(data[8:]))

	loc.PostalCode = fields[0]
	loc.CountryCode = fields[1]
	loc.PlaceName = fields[2]
	loc.AdminCode1 = fields[3]
	loc.AdminCode2 = fields[4]
	loc.Latitude = lat
	loc.Longitude = lng
	return nil
}
