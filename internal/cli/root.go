// Package cli implements the zenrin-geocode command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/config"
	"zenrin-geocoding/internal/input"
	"zenrin-geocoding/internal/models"
	"zenrin-geocoding/internal/output"
	"zenrin-geocoding/internal/service"
	"zenrin-geocoding/internal/transport"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ErrNoMode is returned when none of --address, --batch or --interactive is given.
var ErrNoMode = errors.New("one of --address, --batch or --interactive is required")

// ResultSink stores geocode results somewhere besides stdout.
type ResultSink interface {
	SaveResults(ctx context.Context, results []models.GeocodeResult) (int64, error)
}

// SinkOpener connects to the sink at databaseURL. The returned func releases it.
type SinkOpener func(ctx context.Context, databaseURL string) (ResultSink, func(), error)

type app struct {
	v         *viper.Viper
	cfg       *config.Config
	transport service.Transport
	openSink  SinkOpener

	configFile string
	envFile    string

	address     string
	batch       string
	output      string
	interactive bool
}

// Option customises the command tree, mostly for tests.
type Option func(*app)

// WithTransport replaces the HTTP transport.
func WithTransport(tr service.Transport) Option {
	return func(a *app) {
		a.transport = tr
	}
}

// WithSinkOpener replaces the database sink.
func WithSinkOpener(open SinkOpener) Option {
	return func(a *app) {
		a.openSink = open
	}
}

// NewRootCmd builds the complete command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{
		v:         config.NewViper(),
		transport: transport.NewClient(),
		openSink:  openPostgresSink,
	}
	for _, opt := range opts {
		opt(a)
	}

	cmd := &cobra.Command{
		Use:   "zenrin-geocode",
		Short: "Convert Japanese addresses to coordinates with the ZENRIN Maps API",
		Long: `Geocode Japanese addresses through the ZENRIN Maps address-coding API.

Settings come from flags, then environment variables, then a .env file,
then an optional --config YAML file.`,
		Example: `  # Using .env file (recommended)
  zenrin-geocode --address "東京都千代田区淡路町2-101"

  # IP-based authentication
  zenrin-geocode --domain web.zmaps-api.com --key YOUR_API_KEY --auth-method ip --address "東京都千代田区淡路町2-101"

  # Referer-based authentication
  zenrin-geocode --domain web.zmaps-api.com --key YOUR_API_KEY --auth-method referer --referer "https://example.com" --address "東京都千代田区淡路町2-101"

  # OAuth 2.0 authentication
  zenrin-geocode --domain web.zmaps-api.com --key YOUR_API_KEY --auth-method bearer --token YOUR_TOKEN --address "東京都千代田区淡路町2-101"

  # Batch processing
  zenrin-geocode --batch addresses.txt --output results.json

  # Interactive mode
  zenrin-geocode --interactive`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runRoot,
	}

	pf := cmd.PersistentFlags()
	pf.String("domain", "", "API domain (e.g., web.zmaps-api.com) [env: ZENRIN_API_DOMAIN]")
	pf.String("key", "", "API key (sent via x-api-key header) [env: ZENRIN_API_KEY]")
	pf.String("auth-method", "", "Authentication method: ip, referer or bearer [env: ZENRIN_AUTH_METHOD]")
	pf.String("referer", "", "Referer URL (required for referer auth) [env: ZENRIN_REFERER]")
	pf.String("token", "", "OAuth 2.0 token (required for bearer auth) [env: ZENRIN_TOKEN]")
	pf.String("datum", "", "Geodetic system: JGD, TOKYO or TOKYO_NAVI [env: ZENRIN_DATUM]")
	pf.String("match-level", "", "Minimum matching hierarchy: TOD, SHK, OAZ, AZC, GIK or TBN [env: ZENRIN_MATCH_LEVEL]")
	pf.Bool("no-verify-ssl", false, "Disable SSL certificate verification (not recommended) [env: ZENRIN_VERIFY_SSL]")
	pf.Bool("kana", false, "Enable kana address matching [env: ZENRIN_USE_KANA]")
	pf.Bool("multi-addr", false, "Return every candidate for ambiguous addresses [env: ZENRIN_USE_MULTI_ADDR]")
	pf.String("log-level", "", "Log level written to stderr [env: ZENRIN_LOG_LEVEL]")
	pf.String("database-url", "", "Also store results in this PostgreSQL database [env: ZENRIN_DATABASE_URL]")
	pf.StringVar(&a.configFile, "config", "", "Optional YAML config file")
	pf.StringVar(&a.envFile, "env-file", ".env", "Environment file loaded before reading settings")

	bindings := map[string]string{
		"domain":        "domain",
		"key":           "key",
		"auth_method":   "auth-method",
		"referer":       "referer",
		"token":         "token",
		"datum":         "datum",
		"match_level":   "match-level",
		"no_verify_ssl": "no-verify-ssl",
		"kana":          "kana",
		"multi_addr":    "multi-addr",
		"log_level":     "log-level",
		"database_url":  "database-url",
	}
	for key, flag := range bindings {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	f := cmd.Flags()
	f.StringVar(&a.address, "address", "", "Single address to geocode")
	f.StringVar(&a.batch, "batch", "", "File containing addresses (one per line)")
	f.StringVarP(&a.output, "output", "o", "", "Output file for JSON results")
	f.BoolVarP(&a.interactive, "interactive", "i", false, "Interactive mode")
	cmd.MarkFlagsMutuallyExclusive("address", "batch", "interactive")
	cmd.MarkFlagsMutuallyExclusive("interactive", "output")

	cmd.AddCommand(newCheckCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

// setup loads settings and configures logging. Every command calls it first.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return apperr.Config("config", "env file").Wrap(err)
	}

	cfg, err := config.LoadConfig(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	configureLogger(cfg.LogLevel, cmd.ErrOrStderr())
	log.Debug().Str("domain", cfg.Domain).Str("auth_method", cfg.AuthMethod).Msg("configuration loaded")

	return nil
}

func (a *app) newService() (*service.GeoCodeService, error) {
	gc, err := a.cfg.Geocode()
	if err != nil {
		return nil, err
	}
	return service.NewGeoCodeService(gc, a.transport, nil)
}

func (a *app) runRoot(cmd *cobra.Command, _ []string) error {
	if !a.interactive && a.address == "" && a.batch == "" {
		_ = cmd.Help()
		return ErrNoMode
	}

	if err := a.setup(cmd); err != nil {
		return err
	}
	svc, err := a.newService()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	switch {
	case a.interactive:
		return runInteractive(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout())
	case a.address != "":
		results, err := svc.Geocode(ctx, a.address)
		if err != nil {
			return err
		}
		return a.emit(cmd, results)
	default:
		return a.runBatch(cmd, svc)
	}
}

func (a *app) runBatch(cmd *cobra.Command, svc *service.GeoCodeService) error {
	addresses, err := input.ReadAddressFile(a.batch)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperr.Validation("batch", "ファイル '%s' が見つかりません", a.batch)
		}
		return apperr.Validation("batch", "cannot read %s", a.batch).Wrap(err)
	}
	if len(addresses) == 0 {
		return apperr.Validation("batch", "no addresses in %s", a.batch)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d 件の住所を処理中...\n", len(addresses))

	results, err := svc.GeocodeBatch(cmd.Context(), addresses)
	if err != nil {
		return err
	}
	return a.emit(cmd, results)
}

// emit prints or saves results and forwards them to the database sink.
func (a *app) emit(cmd *cobra.Command, results []models.GeocodeResult) error {
	if err := a.store(cmd.Context(), results); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if a.output == "" {
		return output.WriteText(out, results)
	}

	if err := output.WriteJSONFile(a.output, results); err != nil {
		return err
	}
	fmt.Fprintf(out, "結果を %s に保存しました\n", a.output)
	return nil
}

func (a *app) store(ctx context.Context, results []models.GeocodeResult) error {
	if a.cfg.DatabaseURL == "" || len(results) == 0 {
		return nil
	}

	sink, release, err := a.openSink(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("cli: opening result store: %w", err)
	}
	defer release()

	n, err := sink.SaveResults(ctx, results)
	if err != nil {
		return fmt.Errorf("cli: storing results: %w", err)
	}
	log.Info().Int64("rows", n).Msg("results stored")
	return nil
}

// FormatError renders an error the way the CLI prints it.
func FormatError(err error) string {
	return "エラー: " + strings.TrimSpace(err.Error())
}
