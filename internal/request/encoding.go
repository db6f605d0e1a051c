package request

import (
	"net/url"
	"strings"

	"zenrin-geocoding/internal/apperr"
)

// BatchEncoding writes the address list into the request parameters.
type BatchEncoding interface {
	Encode(params url.Values, addresses []string) error
}

// DelimitedWord joins all addresses into a single word parameter.
type DelimitedWord struct {
	Delimiter string
}

// Encode implements BatchEncoding.
func (d DelimitedWord) Encode(params url.Values, addresses []string) error {
	if len(addresses) > 1 {
		for i, a := range addresses {
			if strings.Contains(a, d.Delimiter) {
				return apperr.Validation("request", "address %d contains the batch delimiter %q", i+1, d.Delimiter)
			}
		}
	}
	params.Set("word", strings.Join(addresses, d.Delimiter))
	return nil
}

// RepeatedWord sends one word parameter per address.
type RepeatedWord struct{}

// Encode implements BatchEncoding.
func (RepeatedWord) Encode(params url.Values, addresses []string) error {
	params.Del("word")
	for _, a := range addresses {
		params.Add("word", a)
	}
	return nil
}
