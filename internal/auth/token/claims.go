package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// maxNumericDateSeconds bounds exp and iat so millisecond conversion cannot overflow.
const maxNumericDateSeconds = 1e12

// accessClaims is the claim set of an access token. exp and iat keep
// millisecond precision; jwt.MapClaims truncates them to jwt.TimePrecision.
type accessClaims struct {
	jwt.MapClaims
}

func (c *accessClaims) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var values jwt.MapClaims
	if err := dec.Decode(&values); err != nil {
		return err
	}
	c.MapClaims = values
	return nil
}

func (c *accessClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.numericDate(claimExpiresAt)
}

func (c *accessClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.numericDate(claimIssuedAt)
}

func (c *accessClaims) numericDate(name string) (*jwt.NumericDate, error) {
	v, ok := c.MapClaims[name]
	if !ok {
		return nil, nil
	}

	var seconds float64
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s claim: %w", name, jwt.ErrInvalidType)
		}
		seconds = f
	case float64:
		seconds = n
	default:
		return nil, fmt.Errorf("%s claim: %w", name, jwt.ErrInvalidType)
	}
	if math.Abs(seconds) > maxNumericDateSeconds {
		return nil, fmt.Errorf("%s claim out of range: %w", name, jwt.ErrInvalidType)
	}

	ms := int64(math.Round(seconds * 1000))
	return &jwt.NumericDate{Time: time.UnixMilli(ms)}, nil
}

// numericDateClaim encodes t as seconds since the epoch, with a fractional
// part only when t is not on a whole second.
func numericDateClaim(t time.Time) json.Number {
	ms := t.UnixMilli()
	if ms%1000 == 0 {
		return json.Number(strconv.FormatInt(ms/1000, 10))
	}
	return json.Number(strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64))
}
