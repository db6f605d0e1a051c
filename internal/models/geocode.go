package models

import (
	"fmt"
	"strings"

	"zenrin-geocoding/internal/apperr"
)

// AuthMethod selects how requests authenticate against the address-coding API.
type AuthMethod string

const (
	AuthIP      AuthMethod = "ip"
	AuthReferer AuthMethod = "referer"
	AuthBearer  AuthMethod = "bearer"
)

// ParseAuthMethod parses an auth method case-insensitively. Empty means ip.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch m := AuthMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return AuthIP, nil
	case AuthIP, AuthReferer, AuthBearer:
		return m, nil
	default:
		return "", apperr.Config("models", "unknown auth method %q (want ip, referer or bearer)", s)
	}
}

// Datum is the geodetic reference system for returned coordinates.
type Datum string

const (
	DatumJGD       Datum = "JGD"
	DatumTokyo     Datum = "TOKYO"
	DatumTokyoNavi Datum = "TOKYO_NAVI"
)

// ParseDatum parses a datum name. Empty means JGD.
func ParseDatum(s string) (Datum, error) {
	switch d := Datum(strings.ToUpper(strings.TrimSpace(s))); d {
	case "":
		return DatumJGD, nil
	case DatumJGD, DatumTokyo, DatumTokyoNavi:
		return d, nil
	default:
		return "", apperr.Config("models", "unknown datum %q (want JGD, TOKYO or TOKYO_NAVI)", s)
	}
}

// MatchLevel is the granularity at which an address was resolved.
// The zero value means no minimum was configured.
type MatchLevel string

const (
	MatchTOD MatchLevel = "TOD" // prefecture
	MatchSHK MatchLevel = "SHK" // municipality
	MatchOAZ MatchLevel = "OAZ" // district
	MatchAZC MatchLevel = "AZC" // block
	MatchGIK MatchLevel = "GIK" // street
	MatchTBN MatchLevel = "TBN" // lot number
)

var matchLevelRanks = map[MatchLevel]int{
	MatchTOD: 1,
	MatchSHK: 2,
	MatchOAZ: 3,
	MatchAZC: 4,
	MatchGIK: 5,
	MatchTBN: 6,
}

// ParseMatchLevel parses a configured minimum match level. Empty means unset.
func ParseMatchLevel(s string) (MatchLevel, error) {
	l := MatchLevel(strings.ToUpper(strings.TrimSpace(s)))
	if l == "" {
		return "", nil
	}
	if _, ok := matchLevelRanks[l]; !ok {
		return "", apperr.Config("models", "unknown match level %q (want TOD, SHK, OAZ, AZC, GIK or TBN)", s)
	}
	return l, nil
}

// Rank orders match levels from TOD (1) to TBN (6). Sub-variants returned by
// the service such as TBN1 rank as their three-letter prefix. Unrecognized
// codes rank 0, below every configurable minimum.
func (l MatchLevel) Rank() int {
	code := strings.ToUpper(string(l))
	if len(code) > 3 {
		code = code[:3]
	}
	return matchLevelRanks[MatchLevel(code)]
}

// Satisfies reports whether l meets the minimum. An unset minimum accepts all.
func (l MatchLevel) Satisfies(minimum MatchLevel) bool {
	if minimum == "" {
		return true
	}
	return l.Rank() >= minimum.Rank()
}

// GeocodeConfig holds everything needed to build a request to the service.
// It is built once at process start and passed by value.
type GeocodeConfig struct {
	Domain     string
	APIKey     string
	AuthMethod AuthMethod
	Referer    string
	Token      string
	Datum      Datum
	MatchLevel MatchLevel
	VerifySSL  bool
	// Proxies maps a URL scheme ("http", "https") to a proxy URL.
	Proxies map[string]string

	UseKana      bool
	UseMultiAddr bool
}

// Validate checks that credentials match the auth method and enums are known.
func (c GeocodeConfig) Validate() error {
	if strings.TrimSpace(c.Domain) == "" {
		return apperr.Config("config", "api domain is required")
	}
	if c.APIKey == "" {
		return apperr.Config("config", "api key is required")
	}

	switch c.AuthMethod {
	case AuthIP:
		if c.Referer != "" || c.Token != "" {
			return apperr.Config("config", "ip auth takes neither referer nor token")
		}
	case AuthReferer:
		if c.Referer == "" {
			return apperr.Config("config", "referer is required for referer auth")
		}
		if c.Token != "" {
			return apperr.Config("config", "token is not used with referer auth")
		}
	case AuthBearer:
		if c.Token == "" {
			return apperr.Config("config", "token is required for bearer auth")
		}
		if c.Referer != "" {
			return apperr.Config("config", "referer is not used with bearer auth")
		}
	default:
		return apperr.Config("config", "unknown auth method %q", c.AuthMethod)
	}

	switch c.Datum {
	case DatumJGD, DatumTokyo, DatumTokyoNavi:
	default:
		return apperr.Config("config", "unknown datum %q", c.Datum)
	}
	if c.MatchLevel != "" {
		if _, ok := matchLevelRanks[c.MatchLevel]; !ok {
			return apperr.Config("config", "unknown match level %q", c.MatchLevel)
		}
	}
	return nil
}

// String masks credentials so the config can be logged.
func (c GeocodeConfig) String() string {
	return fmt.Sprintf("GeocodeConfig{domain=%s auth=%s key=%s datum=%s match_level=%s verify_ssl=%t}",
		c.Domain, c.AuthMethod, MaskSecret(c.APIKey), c.Datum, c.MatchLevel, c.VerifySSL)
}

// MaskSecret keeps the first few characters of a secret.
func MaskSecret(s string) string {
	const visible = 10
	if s == "" {
		return "None"
	}
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return s[:visible] + "..."
}

// GeocodeResult is one resolved address.
type GeocodeResult struct {
	Address      string     `json:"address,omitempty"`
	Longitude    float64    `json:"longitude"`
	Latitude     float64    `json:"latitude"`
	MatchLevel   MatchLevel `json:"match_level,omitempty"`
	PostalCode   string     `json:"postal_code,omitempty"`
	Prefecture   string     `json:"prefecture,omitempty"`
	Municipality string     `json:"municipality,omitempty"`
	District     string     `json:"district,omitempty"`
	BuildingID   string     `json:"building_id,omitempty"`
}
