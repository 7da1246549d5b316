package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snowferry/snowferry/pkg/migrate/config"
	"github.com/snowferry/snowferry/pkg/migrate/connection"
	"github.com/snowferry/snowferry/pkg/migrate/table"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the base tables of the source schema with approximate row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		cfg, err := config.Load(osFs(), jobFile)
		if err != nil {
			return err
		}
		provider := connection.NewSQLProvider(1, log)
		sess, err := provider.Connect(cmd.Context(), cfg.Source)
		if err != nil {
			return err
		}
		defer sess.Close()

		fetcher, err := table.NewInfoFetcher(sess)
		if err != nil {
			return err
		}
		infos, err := fetcher.All(cmd.Context(), &table.FetchOptions{
			SortByCol:       table.SortByTableName,
			SortByDirection: table.SortDirectionASC,
		})
		if err != nil {
			return err
		}
		for _, ifo := range infos {
			fmt.Printf("%s\t~%d rows\n", ifo.Name, ifo.Rows)
		}
		fmt.Printf("%d tables\n", len(infos))
		return nil
	},
}
