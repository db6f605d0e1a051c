// Package response projects the address-coding JSON reply onto GeocodeResult
// values.
//
// The reply has the shape
//
//	{"status": "...", "result": {"info": {...}, "item": [ {...}, ... ]}}
//
// and is first decoded into a generic tree, then validated field by field.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/models"
)

// Decode parses a response body into a generic JSON tree.
func Decode(body []byte) (any, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Response("response", "body is not valid JSON").Wrap(err)
	}
	if dec.More() {
		return nil, apperr.Response("response", "unexpected data after JSON document")
	}
	return raw, nil
}

// Map extracts the results from a decoded reply, dropping entries ranked
// strictly below minimum. A reply without a result object is an error; an
// empty item list is not.
func Map(raw any, minimum models.MatchLevel) ([]models.GeocodeResult, error) {
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, apperr.Response("response", "top level is %s, want object", kindName(raw))
	}
	result, ok := root["result"].(map[string]any)
	if !ok {
		return nil, apperr.Response("response", "missing result object (status %v)", root["status"])
	}

	results := []models.GeocodeResult{}

	itemValue, present := result["item"]
	if !present || itemValue == nil {
		return results, nil
	}
	items, ok := itemValue.([]any)
	if !ok {
		return nil, apperr.Response("response", "result.item is %s, want array", kindName(itemValue))
	}

	for i, it := range items {
		entry, err := mapItem(it)
		if err != nil {
			return nil, apperr.Response("response", "item %d", i).Wrap(err)
		}
		if !entry.MatchLevel.Satisfies(minimum) {
			continue
		}
		results = append(results, entry)
	}

	return results, nil
}

// MapBody decodes and maps in one step.
func MapBody(body []byte, minimum models.MatchLevel) ([]models.GeocodeResult, error) {
	raw, err := Decode(body)
	if err != nil {
		return nil, err
	}
	return Map(raw, minimum)
}

func mapItem(v any) (models.GeocodeResult, error) {
	item, ok := v.(map[string]any)
	if !ok {
		return models.GeocodeResult{}, fmt.Errorf("entry is %s, want object", kindName(v))
	}

	lon, lat, err := position(item["match_position"])
	if err != nil {
		return models.GeocodeResult{}, err
	}

	var r models.GeocodeResult
	r.Longitude = lon
	r.Latitude = lat

	level, err := optionalString(item, "match_level")
	if err != nil {
		return models.GeocodeResult{}, err
	}
	r.MatchLevel = models.MatchLevel(level)

	fields := []struct {
		key string
		dst *string
	}{
		{"address", &r.Address},
		{"post_code", &r.PostalCode},
		{"address2", &r.Prefecture},
		{"address3", &r.Municipality},
		{"address4", &r.District},
	}
	for _, f := range fields {
		if *f.dst, err = optionalString(item, f.key); err != nil {
			return models.GeocodeResult{}, err
		}
	}

	switch b := item["building_info"].(type) {
	case nil:
	case map[string]any:
		if r.BuildingID, err = optionalString(b, "zid"); err != nil {
			return models.GeocodeResult{}, fmt.Errorf("building_info: %w", err)
		}
	default:
		return models.GeocodeResult{}, fmt.Errorf("building_info is %s, want object", kindName(b))
	}

	return r, nil
}

// position reads a [longitude, latitude] pair and checks its range.
func position(v any) (float64, float64, error) {
	pair, ok := v.([]any)
	if !ok || len(pair) < 2 {
		return 0, 0, fmt.Errorf("match_position must be a [longitude, latitude] pair, got %v", v)
	}
	lon, ok := pair[0].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("longitude is %s, want number", kindName(pair[0]))
	}
	lat, ok := pair[1].(float64)
	if !ok {
		return 0, 0, fmt.Errorf("latitude is %s, want number", kindName(pair[1]))
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude %v out of range [-180, 180]", lon)
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	return lon, lat, nil
}

func optionalString(obj map[string]any, key string) (string, error) {
	switch v := obj[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s is %s, want string", key, kindName(v))
	}
}

func kindName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
