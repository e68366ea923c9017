package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/auditlog"
	"github.com/bankfeed-dev/bankfeed/internal/importer"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/pipeline"
)

func newImportCommand() *cobra.Command {
	var account string
	var sourceType string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a bank export, or every file waiting in the import directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			if len(args) == 1 {
				return importOne(cmd, rt, args[0], sourceType, account)
			}

			files, err := importer.Scan(rt.importDir())
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Println("Nothing to import.")
				return nil
			}
			for _, f := range files {
				if err := importOne(cmd, rt, f.Path, sourceType, account); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "target account name")
	cmd.Flags().StringVar(&sourceType, "source-type", "csv", "source type (csv, pdf-extract)")

	return cmd
}

func importOne(cmd *cobra.Command, rt *runtime, path, sourceType, account string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := importer.ReadRows(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	result, err := rt.pipe.ImportFile(cmd.Context(), rows, path, sourceType, account)
	if err != nil {
		return err
	}

	appendAudit(rt, auditlog.Entry{
		Action:   auditAction(result),
		FileName: path,
		BatchID:  result.Batch.ID,
		Details:  fmt.Sprintf("fingerprint %s", result.Batch.Fingerprint),
	})

	printImportResult(result)
	return nil
}

func auditAction(result pipeline.ImportResult) string {
	if result.NeedsMapping {
		return "awaiting-mapping"
	}
	return "staged"
}

func printImportResult(result pipeline.ImportResult) {
	b := result.Batch
	fmt.Printf("%s -> batch %s\n", b.FileName, b.ID)

	if result.Analysis != nil {
		printAnalysis(*result.Analysis)
	}

	switch {
	case result.NeedsMapping:
		fmt.Println("Layout not recognized with enough confidence.")
		fmt.Printf("Confirm the columns with: bankfeed batch map %s --date N --desc N --amount N\n", b.ID)
	case result.TemplateUsed:
		fmt.Printf("Known layout, mapping template reused. %d transactions staged.\n", len(b.Transactions))
	default:
		fmt.Printf("Layout auto-accepted. %d transactions staged.\n", len(b.Transactions))
	}

	if !result.NeedsMapping {
		within, database := b.DuplicateCounts()
		if within+database > 0 {
			fmt.Printf("Duplicates: %d within file, %d already imported (excluded by default).\n", within, database)
		}
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}

func printAnalysis(a model.AnalysisResult) {
	fmt.Printf("Detected columns (headers: %v):\n", a.HasHeaders)
	for _, col := range a.Columns {
		fmt.Printf("  %2d  %-24s %-12s %.2f (%s)\n",
			col.ColumnIndex, col.HeaderName, col.FieldType, col.Confidence, col.DetectionMethod)
	}
	if a.DateFormat != "" {
		fmt.Printf("Date format: %s\n", a.DateFormat)
	}
}

// appendAudit records an action, logging rather than failing on error.
func appendAudit(rt *runtime, e auditlog.Entry) {
	e.Timestamp = time.Now().UTC()
	if err := auditlog.Append(rt.dataDir, []auditlog.Entry{e}); err != nil {
		rt.log.Warn().Err(err).Msg("writing audit log failed")
	}
}
