package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	jobFile     string
	historyPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:           "snowferry",
	Short:         "Migrate table data between two database endpoints, table by table",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&jobFile, "job", "job.json", "path to the job config file")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "snowferry.sqlite", "run history sqlite file, empty disables history")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "dump the full report when the run finishes")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(serveCmd)
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}).With().Timestamp().Logger()
}

func osFs() afero.Fs {
	return afero.NewOsFs()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
