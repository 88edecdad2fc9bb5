package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

const promptPreviewLen = 60

func newPromptsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List the translation prompts the backend offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			prompts, err := client.Prompts(cmd.Context())
			if err != nil {
				return fmt.Errorf("load prompts: %w", err)
			}
			if len(prompts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No prompts available")
				return nil
			}

			rows := make([][]string, 0, len(prompts))
			for i, p := range prompts {
				marker := ""
				if i == 0 {
					marker = "*"
				}
				rows = append(rows, []string{
					marker,
					strconv.FormatInt(p.ID, 10),
					p.PromptName,
					truncate(p.PromptText, promptPreviewLen),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"", "ID", "Name", "Text"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
