package token

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Identifier is the primary key of a tokenable subject. It is either
// integral or textual and keeps that kind through a token round-trip.
type Identifier struct {
	text    string
	num     int64
	numeric bool
}

// IntID builds a numeric identifier.
func IntID(n int64) Identifier {
	return Identifier{num: n, numeric: true}
}

// StringID builds a textual identifier.
func StringID(s string) Identifier {
	return Identifier{text: s}
}

// IsZero reports whether the identifier cannot name a persisted subject.
func (i Identifier) IsZero() bool {
	if i.numeric {
		return i.num == 0
	}
	return i.text == ""
}

// IsNumeric reports whether the identifier was built from an integer.
func (i Identifier) IsNumeric() bool {
	return i.numeric
}

// Int64 returns the numeric value; ok is false for textual identifiers.
func (i Identifier) Int64() (int64, bool) {
	return i.num, i.numeric
}

func (i Identifier) String() string {
	if i.numeric {
		return strconv.FormatInt(i.num, 10)
	}
	return i.text
}

// MarshalJSON encodes numeric identifiers as JSON numbers and the rest as strings.
func (i Identifier) MarshalJSON() ([]byte, error) {
	if i.numeric {
		return []byte(strconv.FormatInt(i.num, 10)), nil
	}
	return json.Marshal(i.text)
}

// claimValue is what gets embedded in the signed payload.
func (i Identifier) claimValue() any {
	if i.numeric {
		return i.num
	}
	return i.text
}

// identifierFromClaim decodes a claim parsed with json.Number enabled.
func identifierFromClaim(v any) (Identifier, error) {
	switch val := v.(type) {
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return Identifier{}, fmt.Errorf("identifier %q is not an int64", val.String())
		}
		return IntID(n), nil
	case string:
		return StringID(val), nil
	case nil:
		return Identifier{}, fmt.Errorf("identifier claim missing")
	default:
		return Identifier{}, fmt.Errorf("identifier claim has type %T", v)
	}
}
