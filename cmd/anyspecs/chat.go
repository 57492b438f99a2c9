package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/models"
	"github.com/anyspecs/anyspecs/internal/notice"
	"github.com/anyspecs/anyspecs/internal/processor"
	"github.com/anyspecs/anyspecs/internal/repositories"
	"github.com/anyspecs/anyspecs/internal/ux"
)

func (a *app) chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Summarize documents with the server's AI workflow",
	}
	cmd.AddCommand(a.chatRunCmd())
	return cmd
}

// chatOutput is the structured form of a chat run.
type chatOutput struct {
	Results   []models.Result `json:"results" yaml:"results"`
	ReportURL string          `json:"report_url,omitempty" yaml:"report_url,omitempty"`
}

func (a *app) chatRunCmd() *cobra.Command {
	var (
		workers  int
		save     string
		reupload bool
		export   bool
		skip     []string
	)
	cmd := &cobra.Command{
		Use:   "run <path>...",
		Short: "Process documents one by one and print their summaries",
		Long: "Uploads each document to the workflow service and runs the workflow on it. " +
			"A failed document is reported and the remaining ones still run.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(); err != nil {
				return err
			}
			ctx := a.context(cmd)
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Workers
			}
			for _, pattern := range skip {
				if _, err := filepath.Match(pattern, ""); err != nil {
					return fmt.Errorf("--skip %q: %w", pattern, err)
				}
			}

			var store processor.ReportStore
			if export {
				s, err := repositories.NewR2Store(a.cfg.R2)
				if err != nil {
					return err
				}
				store = s
			}

			p := processor.New(a.client, a.printer, processor.Options{
				User:          a.cfg.Dify.User,
				InputVariable: a.cfg.Dify.InputVariable,
				Workers:       workers,
				OnProgress: func(pr processor.Progress) {
					a.printer.Statusln(ux.ProgressLine(pr))
				},
			})
			added, err := p.Add(args...)
			if err != nil {
				a.printer.Notify(warning(err.Error()))
			}
			for _, it := range added {
				if !skipped(it.Name, skip) {
					continue
				}
				if err := p.Remove(it.ID); err != nil {
					return err
				}
				notice.Infof(a.printer, "Skipped %s", it.Name)
			}

			a.printer.Statusln(ux.Steps(p.Step()))
			summary, err := p.Run(ctx)
			if err != nil {
				return err
			}
			a.printer.Statusln(ux.Steps(p.Step()))

			out := chatOutput{Results: summary.Results}
			table := a.format == ux.FormatTable
			if table {
				a.println(ux.RenderResults(summary.Results))
			}
			if summary.Unauthorized > 0 {
				if !table {
					if _, err := a.encode(out); err != nil {
						return err
					}
				}
				return fmt.Errorf("%d file(s) rejected by the workflow service: %w", summary.Unauthorized, api.ErrUnauthorized)
			}

			if summary.Completed > 0 {
				if save != "" {
					if err := p.SaveReport(save); err != nil {
						return err
					}
				}
				if reupload {
					if _, err := p.UploadReport(ctx, a.client); err != nil {
						return err
					}
				}
				if store != nil {
					url, err := p.ExportReport(ctx, store)
					if err != nil {
						return err
					}
					out.ReportURL = url
				}
			}

			if table {
				if out.ReportURL != "" {
					a.println(out.ReportURL)
				}
				return nil
			}
			_, err = a.encode(out)
			return err
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "documents processed at once (default $ANYSPECS_WORKERS)")
	cmd.Flags().StringVar(&save, "save", "", "write a text report to this path")
	cmd.Flags().BoolVar(&reupload, "reupload", false, "upload the report into the file library")
	cmd.Flags().BoolVar(&export, "export", false, "export the report to the configured R2 bucket")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "drop queued documents whose name matches this glob (repeatable)")
	return cmd
}

func skipped(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
