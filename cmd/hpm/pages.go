package main

import (
	"github.com/matsen/hpm/internal/config"
	"github.com/matsen/hpm/internal/notion"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <page-id>",
	Short: "Move a page to the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setArchived(cmd, args[0], true)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <page-id>",
	Short: "Restore an archived page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setArchived(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(restoreCmd)
}

func setArchived(cmd *cobra.Command, pageID string, archived bool) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if err := settings.RequireToken(); err != nil {
		return err
	}

	client := notion.NewClient(settings.Token, notion.WithTimeout(settings.Timeout))
	var page *notion.Page
	if archived {
		page, err = client.ArchivePage(cmd.Context(), pageID)
	} else {
		page, err = client.RestorePage(cmd.Context(), pageID)
	}
	if err != nil {
		return err
	}

	status := "restored"
	if archived {
		status = "archived"
	}
	if humanOutput {
		outputHuman("%s %s\n", status, page.Title())
		return nil
	}
	return outputJSON(SyncResponse{
		Identifier: page.ID,
		Title:      page.Title(),
		Action:     status,
		PageID:     page.ID,
		URL:        page.URL,
	})
}
