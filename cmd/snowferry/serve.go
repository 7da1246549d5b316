package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/snowferry/snowferry/pkg/migrate/connection"
	"github.com/snowferry/snowferry/pkg/migrate/server"
	"github.com/snowferry/snowferry/pkg/migrate/state"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the job submission HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		var mgr state.Manager
		if historyPath != "" {
			gm, err := state.NewSqliteGormManager(historyPath)
			if err != nil {
				return err
			}
			mgr = gm
		}

		// one shared provider for all submitted jobs, 4 conns per endpoint
		provider := connection.NewSQLProvider(4, log)
		srv := server.New(provider, mgr, log)
		log.Info().Str("addr", serveAddr).Msg("serving job submission API")
		return http.ListenAndServe(serveAddr, server.NewRouter(srv))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8085", "listen address")
}
