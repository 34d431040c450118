package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/railcsv/internal/core"
)

// fileSummary is the per-file output of ingest and dir.
type fileSummary struct {
	File      string           `json:"file"`
	ReportID  string           `json:"report_id,omitempty"`
	System    string           `json:"system,omitempty"`
	Records   int              `json:"records"`
	RowErrors int              `json:"row_errors"`
	Diff      *core.HeaderDiff `json:"diff,omitempty"`
	Error     string           `json:"error,omitempty"`
	Code      string           `json:"code,omitempty"`
}

func summarize(name string, res *core.FileResult, err error) fileSummary {
	s := fileSummary{File: name}
	if res != nil {
		s.ReportID = res.ReportID
		s.System = string(res.System)
		s.Records = len(res.Records)
		s.RowErrors = len(res.RowErrors)
		if !res.Diff.Clean() {
			diff := res.Diff
			s.Diff = &diff
		}
	}
	if err != nil {
		s.Error = err.Error()
		s.Code = core.MapError(err).Code
		// A rejected file is never saved, so its id is meaningless.
		s.ReportID = ""
	}
	return s
}

func newIngestCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest one or more exports",
		Long: `Ingest processes each file through the pipeline and saves it.
The measurement system is taken from the file name prefix.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			var (
				out    []fileSummary
				failed int
			)
			for _, path := range args {
				res, err := ingestFile(cmd, app.Service, path)
				if err != nil {
					failed++
				}
				out = append(out, summarize(filepath.Base(path), res, err))
			}

			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
			}
			return nil
		},
	}
}

func ingestFile(cmd *cobra.Command, svc *core.Service, path string) (*core.FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	ctx := core.ContextWithSource(cmd.Context(), "cli")
	return svc.IngestFile(ctx, filepath.Base(path), f, size)
}

func newDirCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dir <path>",
		Short: "Ingest every export waiting in a drop directory",
		Long: `Dir ingests each *.csv file in path. Saved files move to path/Uploaded,
row errors are written to path/Failed, and rejected files stay in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Service.IngestDir(ctx, args[0])
			if err != nil {
				return err
			}

			out := make([]fileSummary, 0, len(result.Files))
			for _, f := range result.Files {
				out = append(out, summarize(f.FileName, f.Result, f.Err))
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if n := len(result.Failed()); n > 0 {
				return fmt.Errorf("%d of %d file(s) failed", n, len(result.Files))
			}
			return nil
		},
	}
}

func newPreviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file>",
		Short: "Run the pipeline over an export without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			// No store is needed for a dry run.
			svc := core.NewService(nil)
			resp, err := svc.PreviewFile(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return core.NewUserError(err)
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func newSystemsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "systems",
		Short: "List the measurement systems and their column catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), core.All())
		},
	}
}

func newNormalizeHeaderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-header <line>",
		Short: "Print the canonical form of a header line",
		Long: `Normalize-header rewrites a raw header line (quoted, comma or
semicolon separated) into canonical column names, one per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := strings.TrimSpace(args[0])
			if line == "" {
				return errors.New("header line is empty")
			}
			for _, col := range strings.Split(core.NormalizeHeader(line), ",") {
				fmt.Fprintln(cmd.OutOrStdout(), col)
			}
			return nil
		},
	}
}

func newDeleteReportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-report <report-id>",
		Short: "Delete a saved report and everything ingested with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := flags.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Store.DeleteReport(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
