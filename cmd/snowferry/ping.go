package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snowferry/snowferry/pkg/migrate/config"
	"github.com/snowferry/snowferry/pkg/migrate/connection"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test connectivity to both endpoints of the job config",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg, err := config.Load(osFs(), jobFile)
		if err != nil {
			return err
		}
		provider := connection.NewSQLProvider(1, log)
		for _, ep := range []struct {
			name string
			cfg  config.Endpoint
		}{
			{"source", cfg.Source},
			{"target", cfg.Target},
		} {
			sess, err := provider.Connect(cmd.Context(), ep.cfg)
			if err != nil {
				return fmt.Errorf("%s : %w", ep.name, err)
			}
			err = provider.TestConnection(cmd.Context(), sess)
			sess.Close()
			if err != nil {
				return fmt.Errorf("%s : %w", ep.name, err)
			}
			fmt.Printf("%s (%s): ok\n", ep.name, ep.cfg.Driver)
		}
		return nil
	},
}
