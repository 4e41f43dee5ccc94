package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phantomsec/gibson/internal/api"
	"github.com/phantomsec/gibson/internal/store"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP view of the storage root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.env.ServeAddr
			}

			var db *store.Store
			if opened, err := store.New(a.layout.DBPath(), a.logger); err == nil {
				db = opened
				defer db.Close()
			} else {
				a.logger.Warn().Err(err).Msg("query index unavailable; scan history disabled")
			}

			srv := api.NewServer(addr, a.layout, db, a.metrics, a.logger)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-stop
				if err := srv.Shutdown(); err != nil {
					a.logger.Error().Err(err).Msg("shutdown failed")
				}
			}()

			return srv.Start()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default GIBSON_SERVE_ADDR)")
	return cmd
}
