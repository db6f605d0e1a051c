package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"zenrin-geocoding/internal/apperr"
	"zenrin-geocoding/internal/cli"
)

func main() {
	err := cli.NewRootCmd().ExecuteContext(context.Background())
	if err == nil {
		return
	}

	if !errors.Is(err, cli.ErrNoMode) {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
	}
	os.Exit(apperr.ExitCode(err))
}
