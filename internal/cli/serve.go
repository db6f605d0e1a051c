package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zenrin-geocoding/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve geocoding over HTTP",
		Long: `Expose the geocoder over HTTP.

  GET /health
  GET /geocode?q=<address>[&q=<address>...]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			svc, err := a.newService()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:              a.cfg.ServerAddress,
				Handler:           handler.NewRouter(handler.NewGeoCodeHandler(svc)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			return serve(ctx, srv)
		},
	}

	cmd.Flags().String("addr", "", "Listen address [env: ZENRIN_SERVER_ADDRESS]")
	_ = a.v.BindPFlag("server_address", cmd.Flags().Lookup("addr"))

	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}
