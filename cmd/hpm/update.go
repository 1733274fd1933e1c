package main

import (
	"os"

	"github.com/matsen/hpm/internal/syncer"
	"github.com/spf13/cobra"
)

var updateSource string

var updateCmd = &cobra.Command{
	Use:   "update <identifier|all>",
	Short: "Refresh existing pages",
	Long: `Fetch a paper again and update its page, sending only the columns whose
values changed.

With "all", every page of the template's database is refreshed using the
identifier stored in the template's identifier column. Pages that fail are
reported and the run continues; the exit status is 1 if any page failed.

Update queries the engine by default; use --source local to reuse cached
results.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateSource, "source", "remote", "Where engine results come from (local, remote)")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	sess, err := openSession(updateSource)
	if err != nil {
		return err
	}
	defer sess.Close()

	if args[0] == "all" {
		return updateAll(cmd, sess)
	}

	out, err := sess.syncer.Update(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	resp := newSyncResponse(out)
	if humanOutput {
		printOutcomeHuman(resp)
		return nil
	}
	return outputJSON(resp)
}

func updateAll(cmd *cobra.Command, sess *session) error {
	report, err := sess.syncer.UpdateAll(cmd.Context())
	if err != nil {
		return err
	}

	resp := BatchResponse{
		Updated:   report.Count(syncer.ActionUpdated),
		Unchanged: report.Count(syncer.ActionUnchanged),
		Skipped:   report.Skipped,
		Results:   make([]SyncResponse, 0, len(report.Outcomes)),
	}
	for _, out := range report.Outcomes {
		resp.Results = append(resp.Results, newSyncResponse(out))
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, FailureResponse{
			Identifier: f.Identifier,
			Step:       f.Step.String(),
			Error:      f.Err.Error(),
		})
	}

	if humanOutput {
		for _, r := range resp.Results {
			printOutcomeHuman(r)
		}
		for _, f := range resp.Failures {
			outputHuman("FAILED %s while %s: %s\n", f.Identifier, f.Step, f.Error)
		}
		outputHuman("\n%d updated, %d unchanged, %d skipped, %d failed\n",
			resp.Updated, resp.Unchanged, len(resp.Skipped), len(resp.Failures))
	} else if err := outputJSON(resp); err != nil {
		return err
	}

	if len(report.Failures) > 0 {
		// The report is already on stdout; exit without a second error body.
		sess.Close()
		os.Exit(ExitError)
	}
	return nil
}
