package main

import (
	"github.com/spf13/cobra"
)

var (
	addUpdate bool
	addSource string
)

var addCmd = &cobra.Command{
	Use:   "add <identifier>",
	Short: "Create a page for a paper",
	Long: `Fetch a paper and create a page for it in the template's database.

Identifiers may carry a prefix (arXiv:, doi:, literature:, CorpusId:) or be
given bare. A page with the same title already present is a conflict unless
--update is set, in which case the existing page is updated instead.

Results are read from the local cache when present; use --source remote to
always query the engine.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVarP(&addUpdate, "update", "u", false, "Update the existing page instead of reporting a conflict")
	addCmd.Flags().StringVar(&addSource, "source", "local", "Where engine results come from (local, remote)")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	sess, err := openSession(addSource)
	if err != nil {
		return err
	}
	defer sess.Close()

	out, err := sess.syncer.Add(cmd.Context(), args[0], addUpdate)
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
