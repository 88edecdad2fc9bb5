package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/timmy/doctranslate/internal/api/handler"
	"github.com/timmy/doctranslate/internal/domain"
	"github.com/timmy/doctranslate/internal/language"
	"github.com/timmy/doctranslate/internal/refresh"
	"github.com/timmy/doctranslate/internal/status"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var day string
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show documents uploaded on a day and their pipeline progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if all {
				docs, err := client.ListAll(cmd.Context())
				if err != nil {
					return errors.New(handler.ListErrorMessage)
				}
				if len(docs) == 0 {
					fmt.Fprintln(out, "No documents")
					return nil
				}
				fmt.Fprint(out, renderDocuments(docs))
				return nil
			}

			coord := refresh.New(client)
			defer coord.Close()
			if day == "" {
				err = coord.Refresh(cmd.Context(), nil)
			} else {
				err = coord.SetDay(cmd.Context(), day)
			}
			if errors.Is(err, refresh.ErrInvalidDay) {
				return fmt.Errorf("--date must be YYYY-MM-DD, got %q", day)
			}

			st := coord.State()
			if st.Failed() {
				return errors.New(handler.ListErrorMessage)
			}
			if len(st.Documents) == 0 {
				fmt.Fprintf(out, "No documents for %s\n", st.Date)
				return nil
			}
			fmt.Fprint(out, renderDocuments(st.Documents))
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "date", "", "Day to list (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&all, "all", false, "List every document regardless of day")
	cmd.MarkFlagsMutuallyExclusive("date", "all")
	return cmd
}

func renderDocuments(docs []domain.Document) string {
	headers := []string{"File", "Languages", "Status"}
	for _, stage := range domain.Stages {
		headers = append(headers, stage.Label())
	}
	headers = append(headers, "Uploaded At")

	rows := make([][]string, 0, len(docs))
	for i := range docs {
		rows = append(rows, documentRow(&docs[i]))
	}
	return renderTable(headers, rows, nil)
}

func documentRow(doc *domain.Document) []string {
	p := status.Describe(doc)
	row := []string{
		doc.FileName,
		languagePair(doc.FromLanguage, doc.ToLanguage),
		p.Aggregate.String(),
	}
	for _, s := range p.Stages {
		row = append(row, stageMarker(s))
	}
	uploaded := doc.UploadDatetime
	if t, ok := doc.UploadedAt(time.Local); ok {
		uploaded = t.Format("2006-01-02 15:04")
	}
	return append(row, uploaded)
}

func stageMarker(s status.StageProgress) string {
	switch s.State {
	case status.Done:
		return "✓"
	case status.StageFailed:
		return "✗"
	default:
		return "…"
	}
}

func languagePair(from, to string) string {
	name := func(code string) string {
		if n := language.Name(code); n != language.Unknown {
			return n
		}
		return strings.TrimSpace(code)
	}
	return name(from) + " → " + name(to)
}
