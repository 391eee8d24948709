package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezkam/taskguard/internal/domain"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "taskguardctl",
		Short: "Inspect and reconcile duplicate tasks",
		Long: `taskguardctl works directly against the task store.

Storage is configured with TASKGUARD_* environment variables (or a .env file)
and can be overridden with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load (missing file is ignored)")
	pf.StringVar(&flags.storage, "storage", "", "storage backend: memory, postgres, sqlite, gcs")
	pf.StringVar(&flags.dsn, "dsn", "", "PostgreSQL connection string")
	pf.StringVar(&flags.sqlitePath, "sqlite-path", "", "SQLite database file")
	pf.StringVar(&flags.gcsBucket, "gcs-bucket", "", "GCS bucket holding task documents")
	pf.StringVarP(&flags.output, "output", "o", formatTable, "output format: table, json, yaml")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		scanCmd(flags),
		statsCmd(flags),
		createCmd(flags),
		transitionCmd(flags, "complete", "Mark a task done"),
		transitionCmd(flags, "revert", "Move a done task back to pending"),
	)
	return root
}

func scanCmd(flags *globalFlags) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Remove duplicate tasks (all tenants unless --tenant is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				result, err := a.scanner.Scan(ctx, tenant)
				if err != nil {
					return err
				}
				return a.out.scan(tenant, result)
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "restrict the scan to one tenant")
	return cmd
}

func statsCmd(flags *globalFlags) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report duplicate groups without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				stats, err := a.reporter.Stats(ctx, tenant)
				if err != nil {
					return err
				}
				return a.out.stats(stats)
			})
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "restrict the report to one tenant")
	return cmd
}

func createCmd(flags *globalFlags) *cobra.Command {
	var params domain.CreateTaskParams
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task unless the same pending task already exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				task, created, err := a.resolver.CreateOrGetExisting(ctx, params)
				if err != nil {
					return err
				}
				return a.out.task(task, created)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&params.TenantID, "tenant", "", "tenant id (required)")
	f.StringVar(&params.Description, "description", "", "task description (required)")
	f.StringVar(&params.AssignedTo, "assigned-to", "", "assignee (required)")
	f.StringVar(&params.GivenBy, "given-by", "", "who assigned the task (required)")
	f.StringVar(&params.ClientName, "client", "", "client name")
	f.StringVar(&params.Deadline, "deadline", "", "deadline as YYYY-MM-DD")
	f.StringVar(&params.Priority, "priority", "", "Low, Medium or High (default Medium)")
	return cmd
}

// transitionCmd builds complete and revert, which share their addressing flags:
// either --id, or --tenant/--description/--assigned-to.
func transitionCmd(flags *globalFlags, action, short string) *cobra.Command {
	var id, tenant, description, assignedTo string
	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			byID := id != ""
			byIdentity := tenant != "" || description != "" || assignedTo != ""
			if byID == byIdentity {
				return errors.New("pass either --id or --tenant, --description and --assigned-to")
			}

			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				var (
					task *domain.Task
					err  error
				)
				switch {
				case action == "complete" && byID:
					task, err = a.engine.CompleteByID(ctx, id)
				case action == "complete":
					task, err = a.engine.CompleteByIdentity(ctx, tenant, description, assignedTo)
				case byID:
					task, err = a.engine.RevertByID(ctx, id)
				default:
					task, err = a.engine.RevertByIdentity(ctx, tenant, description, assignedTo)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", action, err)
				}
				return a.out.task(task, false)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&id, "id", "", "task id")
	f.StringVar(&tenant, "tenant", "", "tenant id")
	f.StringVar(&description, "description", "", "task description")
	f.StringVar(&assignedTo, "assigned-to", "", "assignee")
	return cmd
}
