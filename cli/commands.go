package cli

import (
	"fmt"
	"strconv"

	"facility-backend/jobs"

	"github.com/spf13/cobra"
)

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

// runJob runs a bulk job through the runner so that it takes the job lock and
// ends up in the job history.
func (a *App) runJob(cmd *cobra.Command, kind jobs.Kind, opts jobs.Options) error {
	ctx := cmd.Context()
	rep := a.runner.Run(ctx, kind, opts)
	_ = a.history.Record(ctx, rep)
	if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	return rep.Err()
}

// printResult prints a best-effort result even when some of its steps failed.
func printResult[T any](cmd *cobra.Command, res *T, err error) error {
	if res != nil {
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
	}
	return err
}

func (a *App) mappingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage department mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listMappings(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List department mappings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.listMappings(cmd)
			},
		},
		&cobra.Command{
			Use:     "add <projector-department> <turar-department>",
			Short:   "Map a projector department onto a turar department",
			Args:    cobra.ExactArgs(2),
			Example: `  facility mappings add "Хирургия" "Surgery"`,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.mappings.Create(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a mapping; staging rows and links it produced stay",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := a.mappings.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "mapping %d deleted\n", id)
				return nil
			},
		},
	)
	return cmd
}

func (a *App) listMappings(cmd *cobra.Command) error {
	ms, err := a.mappings.List(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), ms)
}

func (a *App) materializeCommand() *cobra.Command {
	var (
		clearFirst bool
		mappingID  uint
	)
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Copy the rows every mapping covers into the staging tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mappingID == 0 {
				return a.runJob(cmd, jobs.KindMaterialize, jobs.Options{ClearStaging: clearFirst})
			}

			ctx := cmd.Context()
			m, err := a.mappings.Get(ctx, mappingID)
			if err != nil {
				return err
			}
			if clearFirst {
				if res, err := a.staging.Clear(ctx, mappingID); err != nil {
					return printResult(cmd, res, err)
				}
			}
			res, err := a.staging.Materialize(ctx, *m)
			return printResult(cmd, res, err)
		},
	}
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "delete existing staging rows first")
	cmd.Flags().UintVar(&mappingID, "mapping", 0, "only this mapping")
	return cmd
}

func (a *App) linkCommand() *cobra.Command {
	var (
		undo      bool
		mappingID uint
	)
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Write department-level links for every mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			switch {
			case undo:
				if mappingID == 0 {
					return fmt.Errorf("--undo needs --mapping")
				}
				res, err := a.engine.UnlinkDepartments(ctx, mappingID)
				return printResult(cmd, res, err)
			case mappingID != 0:
				res, err := a.engine.LinkDepartments(ctx, mappingID)
				return printResult(cmd, res, err)
			}
			return a.runJob(cmd, jobs.KindLink, jobs.Options{})
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "remove the department links of --mapping")
	cmd.Flags().UintVar(&mappingID, "mapping", 0, "only this mapping")
	return cmd
}

func (a *App) discoverCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Turn department links into room connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return a.runJob(cmd, jobs.KindDiscover, jobs.Options{Limit: limit})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max connections to create (0 = DISCOVERY_LIMIT)")
	return cmd
}

func (a *App) resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every connection and clear all peer columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.engine.ResetAll(cmd.Context())
			return printResult(cmd, res, err)
		},
	}
}

func (a *App) verifyCommand() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that connections still name the rooms their ids point at",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.engine.VerifyConnections(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if strict && len(report.Drifted) > 0 {
				return fmt.Errorf("%d drifted connection sides", len(report.Drifted))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when drift is found")
	return cmd
}

func (a *App) jobsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Show the most recent job runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", jobs.DefaultHistoryLimit, "number of runs")
	return cmd
}
