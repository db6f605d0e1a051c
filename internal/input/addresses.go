// Package input reads address lists for batch mode.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const bom = "\ufeff"

// ReadAddresses returns one address per non-blank line, trimmed.
func ReadAddresses(r io.Reader) ([]string, error) {
	var addresses []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("input: reading addresses: %w", err)
	}

	return addresses, nil
}

// ReadAddressFile reads addresses from a UTF-8 text file.
func ReadAddressFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	defer f.Close()

	return ReadAddresses(f)
}
