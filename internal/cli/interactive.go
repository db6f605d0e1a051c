package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"zenrin-geocoding/internal/models"
	"zenrin-geocoding/internal/output"
)

type singleGeocoder interface {
	Geocode(ctx context.Context, address string) ([]models.GeocodeResult, error)
}

var quitWords = map[string]bool{"quit": true, "exit": true, "q": true}

// runInteractive geocodes one address per input line until a quit word or EOF.
// Lookup errors are printed and the loop continues.
func runInteractive(ctx context.Context, svc singleGeocoder, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "インタラクティブモード (終了するには 'quit' または 'exit' を入力)")
	fmt.Fprintln(out, strings.Repeat("-", 60))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n住所を入力してください: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\n終了します")
			return scanner.Err()
		}

		address := strings.TrimSpace(scanner.Text())
		if quitWords[strings.ToLower(address)] {
			return nil
		}
		if address == "" {
			continue
		}

		results, err := svc.Geocode(ctx, address)
		if err != nil {
			fmt.Fprintln(out, FormatError(err))
			continue
		}
		if err := output.WriteText(out, results); err != nil {
			return err
		}
	}
}
