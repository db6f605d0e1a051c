// Package output renders geocode results for people and for files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"zenrin-geocoding/internal/models"
)

const width = 60

var (
	frameLine     = strings.Repeat("=", width)
	separatorLine = strings.Repeat("-", width)
)

// NoResultsMessage is printed when a lookup matched nothing.
const NoResultsMessage = "結果が見つかりませんでした"

// WriteText writes one framed block per lookup.
func WriteText(w io.Writer, results []models.GeocodeResult) error {
	var b strings.Builder

	b.WriteString(frameLine + "\n")
	if len(results) == 0 {
		b.WriteString(NoResultsMessage + "\n")
	}
	for i, r := range results {
		if i > 0 {
			b.WriteString(separatorLine + "\n")
		}
		writeResult(&b, r)
	}
	b.WriteString(frameLine + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeResult(b *strings.Builder, r models.GeocodeResult) {
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(b, "%s: %s\n", label, value)
		}
	}

	line("住所", r.Address)
	line("経度", formatCoordinate(r.Longitude))
	line("緯度", formatCoordinate(r.Latitude))
	line("マッチレベル", string(r.MatchLevel))
	line("郵便番号", r.PostalCode)
	line("都道府県", r.Prefecture)
	line("市区町村", r.Municipality)
	line("町域", r.District)
	line("ZID", r.BuildingID)
}

// formatCoordinate prints the shortest representation that round-trips.
func formatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteJSON writes results as an indented JSON array with non-ASCII and HTML
// characters left unescaped.
func WriteJSON(w io.Writer, results []models.GeocodeResult) error {
	if results == nil {
		results = []models.GeocodeResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("output: encoding results: %w", err)
	}
	return nil
}

// WriteJSONFile writes results to path, replacing any existing file.
func WriteJSONFile(path string, results []models.GeocodeResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: creating %s: %w", path, err)
	}

	if err := WriteJSON(f, results); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("output: closing %s: %w", path, err)
	}
	return nil
}
