package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/timmy/doctranslate/internal/repository"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show submissions made from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withJournal(func(repo *repository.SubmissionRepository) error {
				subs, err := repo.ListRecent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(subs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No submissions recorded")
					return nil
				}

				rows := make([][]string, 0, len(subs))
				for _, s := range subs {
					rows = append(rows, []string{
						s.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
						s.FileName,
						languagePair(s.FromLang, s.ToLang),
						strconv.FormatInt(s.PromptID, 10),
						string(s.Status),
						truncate(s.ErrorMessage, promptPreviewLen),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Submitted", "File", "Languages", "Prompt", "Status", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of submissions to show")
	return cmd
}
