package cli

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/models"
	"zenrin-geocoding/internal/request"

	"github.com/spf13/cobra"
)

// CheckAddress is the address used to probe the service.
const CheckAddress = "東京都千代田区淡路町2-101"

var statusHints = map[int][]string{
	http.StatusBadRequest: {
		"Invalid request parameters",
		"Incorrect parameter format",
		"Missing required parameters",
	},
	http.StatusUnauthorized: {
		"Authentication failed",
		"Invalid API key",
		"IP address not whitelisted",
	},
	http.StatusForbidden: {
		"Access forbidden",
		"Domain/Referer not whitelisted",
	},
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Send one test request and show the request and raw response",
		Long: `Send a single request for a known address and print everything needed to
debug connectivity: endpoint, auth headers (API key masked), parameters,
response status, headers and body.`,
		Args:                  cobra.NoArgs,
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			svc, err := a.newService()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			line := strings.Repeat("=", 70)
			fmt.Fprintln(out, line)
			fmt.Fprintln(out, "ZENRIN Maps API connection check")
			fmt.Fprintln(out, line)

			spec, resp, err := svc.Send(cmd.Context(), []string{CheckAddress})
			if spec != nil {
				printRequest(out, svc.Config(), spec)
			}
			if err != nil {
				fmt.Fprintln(out, "\n"+FormatError(err))
				printFailureHint(out, err)
				return err
			}

			fmt.Fprintf(out, "\nResponse Status: %d\n", resp.StatusCode)
			fmt.Fprintln(out, "Response Headers:")
			for _, k := range sortedKeys(resp.Header) {
				fmt.Fprintf(out, "  %s: %s\n", k, strings.Join(resp.Header[k], ", "))
			}
			fmt.Fprintln(out, "\nResponse Body:")
			fmt.Fprintln(out, string(resp.Body))

			if resp.StatusCode == http.StatusOK {
				fmt.Fprintln(out, "\nSuccess! API is working correctly.")
				return nil
			}

			fmt.Fprintf(out, "\nError: Received status code %d\n", resp.StatusCode)
			if hints, ok := statusHints[resp.StatusCode]; ok {
				fmt.Fprintln(out, "\nPossible issues:")
				for _, h := range hints {
					fmt.Fprintf(out, "  - %s\n", h)
				}
			}
			return apperr.Response("check", "upstream returned status %d", resp.StatusCode)
		},
	}
}

func printRequest(out io.Writer, cfg models.GeocodeConfig, spec *request.Spec) {
	proxies := "None"
	if len(spec.Proxies) > 0 {
		proxies = fmt.Sprint(spec.Proxies)
	}

	fmt.Fprintf(out, "\nEndpoint: %s\n", spec.URL)
	fmt.Fprintf(out, "Auth Method: %s\n", cfg.AuthMethod)
	fmt.Fprintf(out, "API Key: %s\n", models.MaskSecret(cfg.APIKey))
	fmt.Fprintf(out, "SSL Verify: %t\n", spec.VerifySSL)
	fmt.Fprintf(out, "Proxy: %s\n", proxies)

	fmt.Fprintln(out, "\nRequest Headers:")
	for _, k := range sortedKeys(spec.Headers) {
		v := spec.Headers[k]
		if k == request.HeaderAPIKey {
			v = models.MaskSecret(v)
		}
		fmt.Fprintf(out, "  %s: %s\n", k, v)
	}

	fmt.Fprintln(out, "\nRequest Parameters:")
	for _, k := range sortedKeys(spec.Params) {
		fmt.Fprintf(out, "  %s: %s\n", k, strings.Join(spec.Params[k], ", "))
	}
}

func printFailureHint(out io.Writer, err error) {
	var (
		certErr      *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
	)
	switch {
	case errors.As(err, &certErr), errors.As(err, &authorityErr):
		fmt.Fprintln(out, "\nTry setting: ZENRIN_VERIFY_SSL=false in .env")
	case apperr.Is(err, apperr.KindNetwork):
		fmt.Fprintln(out, "\nCheck your internet connection and proxy settings")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
