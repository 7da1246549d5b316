package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/snowferry/snowferry/pkg/migrate"
	"github.com/snowferry/snowferry/pkg/migrate/config"
	"github.com/snowferry/snowferry/pkg/migrate/connection"
	"github.com/snowferry/snowferry/pkg/migrate/stage"
	"github.com/snowferry/snowferry/pkg/migrate/state"
	"github.com/snowferry/snowferry/pkg/migrate/table"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the migration job described by the job config file",
	RunE:  runMigration,
}

func runMigration(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := config.Load(osFs(), jobFile)
	if err != nil {
		return err
	}

	provider := connection.NewSQLProvider(cfg.MaxConcurrency, log)
	if cfg.Target.Driver == config.DriverSnowflake && cfg.Target.Stage != "" {
		loader, err := stage.NewLoader(cfg.Target, log)
		if err != nil {
			return err
		}
		provider.Stager = loader
	}

	job := migrate.JobFromConfig(cfg)
	if len(job.Tables) == 0 {
		// empty table_list means "everything in the source schema"
		job.Tables, err = discoverTables(cmd.Context(), provider, cfg)
		if err != nil {
			return err
		}
	}

	orch, err := migrate.New(provider, job, log)
	if err != nil {
		return err
	}

	var mgr state.Manager
	if historyPath != "" {
		gm, err := state.NewSqliteGormManager(historyPath)
		if err != nil {
			return err
		}
		mgr = gm
		mgr.InitRunLog(orch.RunID(), len(job.Tables))
		for _, t := range job.Tables {
			mgr.InitTableRunLog(orch.RunID(), t.Name)
		}
	}
	go waitForInterrupt(orch, mgr)

	startTime := time.Now()
	rep, runErr := orch.Run(cmd.Context())
	state.RecordReport(mgr, rep, runErr)

	for _, name := range rep.Order {
		tr := rep.Tables[name]
		switch tr.Status {
		case migrate.StatusSucceeded:
			fmt.Printf("%-10s %s : %d rows in %s\n", tr.Status, name, tr.RowsMigrated, tr.TimeTaken())
		case migrate.StatusFailed:
			fmt.Printf("%-10s %s : %d rows, error: %s\n", tr.Status, name, tr.RowsMigrated, tr.Error)
		default:
			fmt.Printf("%-10s %s : %d rows\n", tr.Status, name, tr.RowsMigrated)
		}
	}
	fmt.Printf("Overall: %s (%s)\n", rep.Overall, rep.Summary())
	fmt.Printf("Time taken: %s\n", time.Since(startTime))
	if verbose {
		spew.Dump(rep)
	}

	if runErr != nil {
		return runErr
	}
	if rep.Overall == migrate.StatusFailed {
		return rep.Err()
	}
	return nil
}

func discoverTables(ctx context.Context, provider connection.Provider, cfg *config.Config) ([]migrate.TableSpec, error) {
	sess, err := provider.Connect(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	fetcher, err := table.NewInfoFetcher(sess)
	if err != nil {
		return nil, err
	}
	// biggest tables first so the long poles start while slots are plentiful
	infos, err := fetcher.All(ctx, &table.FetchOptions{
		SortByCol:       table.SortByRows,
		SortByDirection: table.SortDirectionDESC,
	})
	if err != nil {
		return nil, err
	}
	specs := make([]migrate.TableSpec, 0, len(infos))
	for _, ifo := range infos {
		specs = append(specs, migrate.TableSpec{Name: ifo.Name, RowCountHint: ifo.Rows})
	}
	return specs, nil
}

func waitForInterrupt(orch *migrate.Orchestrator, mgr state.Manager) {
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, os.Interrupt, syscall.SIGTERM)

	<-interruptChannel
	fmt.Println("Interrupt received. Stopping after current batches...")
	orch.Cancel()

	<-interruptChannel
	fmt.Println("Second interrupt. Aborting...")
	if mgr != nil {
		mgr.OnShutDownEv()
	}
	os.Exit(130)
}
