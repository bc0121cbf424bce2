package recipe

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Price is a decimal amount with at most 3 integer digits and 2 decimal
// places. It is carried as text so no float rounding ever touches it.
type Price string

var priceRe = regexp.MustCompile(`^\d{1,3}(\.\d{1,2})?$`)

func (p Price) Valid() bool {
	return priceRe.MatchString(string(p))
}

// Normalized renders a valid price with exactly two decimals ("5" -> "5.00").
// Invalid prices are returned unchanged.
func (p Price) Normalized() Price {
	if !p.Valid() {
		return p
	}

	whole, frac, _ := strings.Cut(string(p), ".")
	n, err := strconv.Atoi(whole)
	if err != nil {
		return p
	}

	for len(frac) < 2 {
		frac += "0"
	}

	return Price(strconv.Itoa(n) + "." + frac)
}

// UnmarshalJSON accepts both 5.5 and "5.5".
func (p *Price) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}

	*p = Price(raw)
	return nil
}
