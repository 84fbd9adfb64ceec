package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gateflow/gateflow/pkg/cmd"
	"github.com/gateflow/gateflow/pkg/log"
	"github.com/gateflow/gateflow/pkg/persistence"
	"github.com/gateflow/gateflow/pkg/versioning"
	cli "github.com/urfave/cli/v3"
)

func versionsCommand() *cli.Command {
	databaseFlag := &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Persistence URL (memory://, file://<dir> or postgres://...)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}

	workflowFlag := &cli.StringFlag{
		Name:     "workflow-id",
		Aliases:  []string{"w"},
		Usage:    "Workflow identifier",
		Required: true,
	}

	return &cli.Command{
		Name:    "versions",
		Aliases: []string{"ver"},
		Usage:   "Manage stored workflow versions",
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "List a workflow's versions, newest first",
				Flags: []cli.Flag{databaseFlag, workflowFlag},
				Action: withStore(func(ctx context.Context, command *cli.Command, store *versioning.Store) error {
					versions, err := store.GetVersionHistory(ctx, command.String("workflow-id"))
					if err != nil {
						return err
					}

					for _, version := range versions {
						fmt.Printf("v%d\t%s\t%s\t%s\t%s\n",
							version.Version, version.ID, version.Status,
							version.Metadata.CreatedAt.Format("2006-01-02 15:04:05"), version.Name)
					}

					return nil
				}),
			},
			{
				Name:      "activate",
				Usage:     "Make a version the single active one",
				ArgsUsage: "<version-id>",
				Flags:     []cli.Flag{databaseFlag, workflowFlag},
				Action: withStore(func(ctx context.Context, command *cli.Command, store *versioning.Store) error {
					versionID := command.Args().First()
					if versionID == "" {
						return fmt.Errorf("version id argument is required")
					}

					return store.ActivateVersion(ctx, command.String("workflow-id"), versionID)
				}),
			},
			{
				Name:      "rollback",
				Usage:     "Roll the workflow back to an earlier version",
				ArgsUsage: "<version-id>",
				Flags: []cli.Flag{
					databaseFlag,
					workflowFlag,
					&cli.BoolFlag{
						Name:  "no-backup",
						Usage: "Skip snapshotting the current state before rolling back",
					},
				},
				Action: withStore(func(ctx context.Context, command *cli.Command, store *versioning.Store) error {
					versionID := command.Args().First()
					if versionID == "" {
						return fmt.Errorf("version id argument is required")
					}

					result, err := store.Rollback(ctx, command.String("workflow-id"), versionID, versioning.RollbackOptions{
						CreateBackup: !command.Bool("no-backup"),
					})
					if err != nil {
						return err
					}

					for _, warning := range result.Warnings {
						fmt.Println("warning:", warning)
					}

					fmt.Printf("rolled back to v%d (%s)\n", result.RolledBackTo.Version, result.RolledBackTo.ID)

					if result.Backup != nil {
						fmt.Printf("backup saved as v%d (%s)\n", result.Backup.Version, result.Backup.ID)
					}

					return nil
				}),
			},
			{
				Name:      "compare",
				Usage:     "Diff two stored versions",
				ArgsUsage: "<from-version-id> <to-version-id>",
				Flags:     []cli.Flag{databaseFlag},
				Action: withStore(func(ctx context.Context, command *cli.Command, store *versioning.Store) error {
					if command.Args().Len() != 2 {
						return fmt.Errorf("expected two version id arguments")
					}

					diff, err := store.CompareVersions(ctx, command.Args().Get(0), command.Args().Get(1))
					if err != nil {
						return err
					}

					fmt.Printf("nodes: +%d -%d ~%d\n", len(diff.AddedNodes), len(diff.RemovedNodes), len(diff.ModifiedNodes))
					fmt.Printf("edges: +%d -%d ~%d\n", len(diff.AddedEdges), len(diff.RemovedEdges), len(diff.ModifiedEdges))
					fmt.Printf("significant: %v\n", diff.SignificantChanges)

					return nil
				}),
			},
			{
				Name:  "stats",
				Usage: "Summarize a workflow's version history",
				Flags: []cli.Flag{databaseFlag, workflowFlag},
				Action: withStore(func(ctx context.Context, command *cli.Command, store *versioning.Store) error {
					stats, err := store.GetVersionStats(ctx, command.String("workflow-id"))
					if err != nil {
						return err
					}

					fmt.Printf("total: %d\n", stats.TotalVersions)

					for status, count := range stats.ByStatus {
						fmt.Printf("  %s: %d\n", status, count)
					}

					fmt.Printf("latest: v%d\n", stats.LatestVersion)

					if stats.ActiveVersion > 0 {
						fmt.Printf("active: v%d\n", stats.ActiveVersion)
					}

					return nil
				}),
			},
		},
	}
}

type storeAction func(ctx context.Context, command *cli.Command, store *versioning.Store) error

// withStore opens persistence from --database-url, builds a version store
// and guarantees the backend is closed after the action runs.
func withStore(action storeAction) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		logger := log.WithModule("versions")

		p, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
		if err != nil {
			return err
		}

		defer closePersistence(ctx, logger, p)

		tracer, err := newTracer(ctx, command)
		if err != nil {
			return err
		}

		var storeOpts []versioning.StoreOption
		if tracer != nil {
			storeOpts = append(storeOpts, versioning.WithTracer(tracer))
		}

		return action(ctx, command, versioning.NewStore(p, logger, storeOpts...))
	}
}

func closePersistence(ctx context.Context, logger *slog.Logger, p persistence.Persistence) {
	if err := p.Close(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}
