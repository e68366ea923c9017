package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/auditlog"
	"github.com/bankfeed-dev/bankfeed/internal/importer"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/pipeline"
)

func newBatchCommand() *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Review and manage staged import batches",
	}
	batchCmd.AddCommand(newBatchListCommand())
	batchCmd.AddCommand(newBatchShowCommand())
	batchCmd.AddCommand(newBatchMapCommand())
	batchCmd.AddCommand(newBatchRecheckCommand())
	batchCmd.AddCommand(newBatchCategorizeCommand())
	batchCmd.AddCommand(newBatchStatusCommand())
	batchCmd.AddCommand(newBatchCommitCommand())
	batchCmd.AddCommand(newBatchDeleteCommand())
	return batchCmd
}

func newBatchListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			batches, err := rt.store.ListBatches(cmd.Context())
			if err != nil {
				return err
			}
			if len(batches) == 0 {
				fmt.Println("No staged batches.")
				return nil
			}
			for _, b := range batches {
				within, database := b.DuplicateCounts()
				fmt.Printf("%s  %-18s %-24s %3d txns  %d dups\n",
					b.ID, b.State, filepath.Base(b.FileName), len(b.Transactions), within+database)
			}
			return nil
		},
	}
}

func newBatchShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show a staged batch's transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			batch, err := rt.pipe.LoadBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBatch(batch)
			return nil
		},
	}
}

func printBatch(b model.ImportBatch) {
	fmt.Printf("Batch %s (%s) from %s\n", b.ID, b.State, b.FileName)
	for i, t := range b.Transactions {
		flag := " "
		switch {
		case t.ParseError != "":
			flag = "!"
		case t.IsDuplicate:
			flag = "D"
		}
		category := ""
		if len(t.Splits) > 0 {
			category = t.Splits[0].CategoryID
		}
		fmt.Printf("%3d %s %s  %-40.40s %10s  %-9s %s\n",
			i, flag, t.Date.Format("2006-01-02"), t.Description,
			t.Amount.StringFixed(2), t.Status, category)
		if t.ParseError != "" {
			fmt.Printf("      %s\n", t.ParseError)
		}
	}
	within, database := b.DuplicateCounts()
	fmt.Printf("%d transactions, %d within-file duplicates, %d database duplicates\n",
		len(b.Transactions), within, database)
}

func newBatchMapCommand() *cobra.Command {
	var dateCol, descCol, amountCol, debitCol, creditCol int
	var dateFormat, name string
	var noHeaders bool

	cmd := &cobra.Command{
		Use:   "map <batch-id>",
		Short: "Confirm column assignments for an unrecognized layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			mapping := model.ColumnMapping{
				DateCol:    dateCol,
				DescCol:    descCol,
				AmountCol:  amountCol,
				DebitCol:   debitCol,
				CreditCol:  creditCol,
				DateFormat: dateFormat,
				HasHeaders: !noHeaders,
			}
			batch, err := rt.pipe.ApplyMapping(cmd.Context(), args[0], mapping, name)
			if err != nil {
				return err
			}

			appendAudit(rt, auditlog.Entry{
				Action:   "mapped",
				FileName: batch.FileName,
				BatchID:  batch.ID,
				Details:  fmt.Sprintf("template %q", name),
			})
			fmt.Printf("Mapping confirmed, %d transactions staged.\n", len(batch.Transactions))
			return nil
		},
	}

	cmd.Flags().IntVar(&dateCol, "date", -1, "date column index (0-based)")
	cmd.Flags().IntVar(&descCol, "desc", -1, "description column index")
	cmd.Flags().IntVar(&amountCol, "amount", -1, "signed amount column index")
	cmd.Flags().IntVar(&debitCol, "debit", -1, "debit column index")
	cmd.Flags().IntVar(&creditCol, "credit", -1, "credit column index")
	cmd.Flags().StringVar(&dateFormat, "format", "auto", "date format label (e.g. MM/DD/YYYY)")
	cmd.Flags().StringVar(&name, "name", "", "template name for this layout")
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "the file has no header row")

	return cmd
}

func newBatchRecheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recheck <batch-id>",
		Short: "Re-run duplicate detection for a staged batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			batch, err := rt.pipe.RecheckDuplicates(cmd.Context(), args[0])
			var retryable *pipeline.RetryableError
			if errors.As(err, &retryable) {
				fmt.Printf("%v. Run the command again to retry.\n", err)
				return nil
			}
			if err != nil {
				return err
			}
			within, database := batch.DuplicateCounts()
			fmt.Printf("Rechecked: %d within-file, %d database duplicates.\n", within, database)
			return nil
		},
	}
}

func newBatchCategorizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <batch-id>",
		Short: "Request category suggestions for a staged batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			batch, err := rt.pipe.Categorize(cmd.Context(), args[0])
			var retryable *pipeline.RetryableError
			if errors.As(err, &retryable) {
				fmt.Printf("%v. Run the command again to retry.\n", err)
				return nil
			}
			if err != nil {
				return err
			}

			categorized := 0
			for _, t := range batch.Transactions {
				if t.Categorized() {
					categorized++
				}
			}
			fmt.Printf("%d of %d transactions categorized.\n", categorized, len(batch.Transactions))
			return nil
		},
	}
}

func newBatchStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <batch-id> <index> <pending|confirmed|excluded>",
		Short: "Change one staged transaction's review status",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}
			status := model.TransactionStatus(args[2])
			switch status {
			case model.StatusPending, model.StatusConfirmed, model.StatusExcluded:
			default:
				return fmt.Errorf("invalid status %q", args[2])
			}

			if _, err := rt.pipe.SetTransactionStatus(cmd.Context(), args[0], index, status); err != nil {
				return err
			}
			fmt.Printf("Transaction %d set to %s.\n", index, status)
			return nil
		},
	}
}

func newBatchCommitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <batch-id>",
		Short: "Write a batch's reviewed transactions to permanent storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			batch, err := rt.pipe.LoadBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			txns, err := rt.pipe.Commit(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			appendAudit(rt, auditlog.Entry{
				Action:   "committed",
				FileName: batch.FileName,
				BatchID:  batch.ID,
				Details:  fmt.Sprintf("%d transactions", len(txns)),
			})

			// Move the source file out of the import directory.
			if dir := filepath.Dir(batch.FileName); samePath(dir, rt.importDir()) {
				if err := importer.MarkProcessed(dir, filepath.Base(batch.FileName)); err != nil {
					rt.log.Warn().Err(err).Msg("moving source file to processed failed")
				}
			}

			total, err := rt.store.CountTransactions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Committed %d transactions (%d total in history).\n", len(txns), total)
			return nil
		},
	}
}

// samePath reports whether two paths name the same location once cleaned and
// resolved to absolute form. Batch file names are stored as given on the
// command line, so a relative path must still match the configured import
// directory.
func samePath(a, b string) bool {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return absA == absB
}

func newBatchDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <batch-id>",
		Short: "Discard a staged batch without committing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			batch, err := rt.pipe.LoadBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := rt.pipe.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			appendAudit(rt, auditlog.Entry{
				Action:   "deleted",
				FileName: batch.FileName,
				BatchID:  batch.ID,
			})
			fmt.Println("Batch deleted.")
			return nil
		},
	}
}
