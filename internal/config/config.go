// Package config merges flags, environment variables, an optional .env file
// and an optional YAML file into the settings the CLI runs with.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is the merged CLI configuration. It is intended to be mapped by viper.
type Config struct {
	Domain       string `mapstructure:"domain"       validate:"required"`
	APIKey       string `mapstructure:"key"          validate:"required"`
	AuthMethod   string `mapstructure:"auth_method"  validate:"oneof=ip referer bearer"`
	Referer      string `mapstructure:"referer"      validate:"required_if=AuthMethod referer"`
	Token        string `mapstructure:"token"        validate:"required_if=AuthMethod bearer"`
	Datum        string `mapstructure:"datum"        validate:"oneof=JGD TOKYO TOKYO_NAVI"`
	MatchLevel   string `mapstructure:"match_level"  validate:"omitempty,oneof=TOD SHK OAZ AZC GIK TBN"`
	VerifySSL    string `mapstructure:"verify_ssl"`
	NoVerifySSL  bool   `mapstructure:"no_verify_ssl"`
	HTTPProxy    string `mapstructure:"http_proxy"   validate:"omitempty,url"`
	HTTPSProxy   string `mapstructure:"https_proxy"  validate:"omitempty,url"`
	UseKana      bool   `mapstructure:"kana"`
	UseMultiAddr bool   `mapstructure:"multi_addr"`

	LogLevel      string `mapstructure:"log_level"      validate:"oneof=trace debug info warn error fatal panic disabled"`
	ServerAddress string `mapstructure:"server_address" validate:"required"`
	DatabaseURL   string `mapstructure:"database_url"`
}

// envBindings lists the environment variables read for each key. The first
// variable that is set wins.
var envBindings = map[string][]string{
	"domain":         {"ZENRIN_API_DOMAIN"},
	"key":            {"ZENRIN_API_KEY"},
	"auth_method":    {"ZENRIN_AUTH_METHOD"},
	"referer":        {"ZENRIN_REFERER"},
	"token":          {"ZENRIN_TOKEN"},
	"datum":          {"ZENRIN_DATUM"},
	"match_level":    {"ZENRIN_MATCH_LEVEL"},
	"verify_ssl":     {"ZENRIN_VERIFY_SSL"},
	"http_proxy":     {"http_proxy", "HTTP_PROXY"},
	"https_proxy":    {"https_proxy", "HTTPS_PROXY"},
	"kana":           {"ZENRIN_USE_KANA"},
	"multi_addr":     {"ZENRIN_USE_MULTI_ADDR"},
	"log_level":      {"ZENRIN_LOG_LEVEL"},
	"server_address": {"ZENRIN_SERVER_ADDRESS"},
	"database_url":   {"ZENRIN_DATABASE_URL"},
}

// flagNames maps struct fields to the flag a user should pass when a value
// is missing or invalid.
var flagNames = map[string]string{
	"Domain":        "domain",
	"APIKey":        "key",
	"AuthMethod":    "auth-method",
	"Referer":       "referer",
	"Token":         "token",
	"Datum":         "datum",
	"MatchLevel":    "match-level",
	"HTTPProxy":     "",
	"HTTPSProxy":    "",
	"LogLevel":      "log-level",
	"ServerAddress": "addr",
}

var envNames = map[string]string{
	"Domain":        "ZENRIN_API_DOMAIN",
	"APIKey":        "ZENRIN_API_KEY",
	"AuthMethod":    "ZENRIN_AUTH_METHOD",
	"Referer":       "ZENRIN_REFERER",
	"Token":         "ZENRIN_TOKEN",
	"Datum":         "ZENRIN_DATUM",
	"MatchLevel":    "ZENRIN_MATCH_LEVEL",
	"HTTPProxy":     "http_proxy",
	"HTTPSProxy":    "https_proxy",
	"LogLevel":      "ZENRIN_LOG_LEVEL",
	"ServerAddress": "ZENRIN_SERVER_ADDRESS",
}

// NewViper returns a viper instance with defaults and environment bindings.
// Flags are bound by the caller.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("domain", "")
	v.SetDefault("key", "")
	v.SetDefault("auth_method", "ip")
	v.SetDefault("referer", "")
	v.SetDefault("token", "")
	v.SetDefault("datum", "JGD")
	v.SetDefault("match_level", "")
	v.SetDefault("verify_ssl", "true")
	v.SetDefault("no_verify_ssl", false)
	v.SetDefault("http_proxy", "")
	v.SetDefault("https_proxy", "")
	v.SetDefault("kana", false)
	v.SetDefault("multi_addr", false)
	v.SetDefault("log_level", "warn")
	v.SetDefault("server_address", ":8080")
	v.SetDefault("database_url", "")

	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	return v
}

// LoadDotEnv loads variables from a .env file without overriding variables
// already set in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("loaded env file")
	return nil
}

// LoadConfig reads the optional config file, then unmarshals and validates.
func LoadConfig(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperr.Config("config", "reading %s", file).Wrap(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.Config("config", "decoding configuration").Wrap(err)
	}
	cfg.normalize()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, translate(err)
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	c.Domain = strings.TrimSpace(c.Domain)
	c.AuthMethod = strings.ToLower(strings.TrimSpace(c.AuthMethod))
	if c.AuthMethod == "" {
		c.AuthMethod = string(models.AuthIP)
	}
	c.Datum = strings.ToUpper(strings.TrimSpace(c.Datum))
	if c.Datum == "" {
		c.Datum = string(models.DatumJGD)
	}
	c.MatchLevel = strings.ToUpper(strings.TrimSpace(c.MatchLevel))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// SSLVerification reports whether TLS certificates are verified. Either
// --no-verify-ssl or ZENRIN_VERIFY_SSL=false turns verification off.
func (c *Config) SSLVerification() bool {
	if c.NoVerifySSL {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(c.VerifySSL), "false")
}

// Proxies returns the scheme to proxy mapping, omitting unset schemes.
func (c *Config) Proxies() map[string]string {
	proxies := map[string]string{}
	if c.HTTPProxy != "" {
		proxies["http"] = c.HTTPProxy
	}
	if c.HTTPSProxy != "" {
		proxies["https"] = c.HTTPSProxy
	}
	return proxies
}

// Geocode projects the merged settings onto a GeocodeConfig. Credentials that
// the selected auth method does not use are dropped.
func (c *Config) Geocode() (models.GeocodeConfig, error) {
	method, err := models.ParseAuthMethod(c.AuthMethod)
	if err != nil {
		return models.GeocodeConfig{}, err
	}
	datum, err := models.ParseDatum(c.Datum)
	if err != nil {
		return models.GeocodeConfig{}, err
	}
	level, err := models.ParseMatchLevel(c.MatchLevel)
	if err != nil {
		return models.GeocodeConfig{}, err
	}

	gc := models.GeocodeConfig{
		Domain:       c.Domain,
		APIKey:       c.APIKey,
		AuthMethod:   method,
		Datum:        datum,
		MatchLevel:   level,
		VerifySSL:    c.SSLVerification(),
		Proxies:      c.Proxies(),
		UseKana:      c.UseKana,
		UseMultiAddr: c.UseMultiAddr,
	}

	switch method {
	case models.AuthReferer:
		gc.Referer = c.Referer
	case models.AuthBearer:
		gc.Token = c.Token
	}
	if (c.Referer != "" && gc.Referer == "") || (c.Token != "" && gc.Token == "") {
		log.Debug().Str("auth_method", string(method)).Msg("ignoring credentials not used by auth method")
	}

	if err := gc.Validate(); err != nil {
		return models.GeocodeConfig{}, err
	}
	return gc, nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Config("config", "invalid configuration").Wrap(err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return apperr.Config("config", "%s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	source := envNames[fe.Field()]
	if flag := flagNames[fe.Field()]; flag != "" {
		source = fmt.Sprintf("--%s (or set %s in .env)", flag, envNames[fe.Field()])
	}

	switch fe.Tag() {
	case "required":
		return source + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when using %s authentication", source, fe.Param()[strings.LastIndex(fe.Param(), " ")+1:])
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", source, fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", source, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", source, fe.Tag())
	}
}
