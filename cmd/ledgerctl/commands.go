package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/mmdatafocus/textile_ledger/accounting"
	"github.com/mmdatafocus/textile_ledger/config"
	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/mmdatafocus/textile_ledger/models/reports"
	"github.com/mmdatafocus/textile_ledger/utils"
	"github.com/mmdatafocus/textile_ledger/workflow"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type environment struct {
	out     io.Writer
	connect func(ctx context.Context) (*gorm.DB, *config.Settings, error)
}

func newRootCommand(env *environment) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Textile ledger maintenance",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.SetOut(env.out)

	rootCmd.AddCommand(
		newMigrateCommand(env),
		newSetupCOACommand(env),
		newLedgerCommand(env),
		newTrialBalanceCommand(env),
		newDispatchOutboxCommand(env),
		newRequeueOutboxCommand(env),
	)
	return rootCmd
}

func newMigrateCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := env.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := models.MigrateTables(db); err != nil {
				return fmt.Errorf("migrating tables: %w", err)
			}
			fmt.Fprintln(env.out, "migrations applied")
			return nil
		},
	}
}

func newSetupCOACommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-coa",
		Short: "Create the default textile chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := env.connect(cmd.Context())
			if err != nil {
				return err
			}
			accounts, err := accounting.NewAccountRegistry(db, nil).SetupDefaultCOA(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.Code, a.Name, a.Type)
			}
			return w.Flush()
		},
	}
}

func newLedgerCommand(env *environment) *cobra.Command {
	var (
		accountID int
		from, to  string
		xlsxPath  string
	)
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print an account ledger or export it to Excel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := utils.ParseOptionalDate(from)
			if err != nil {
				return err
			}
			toDate, err := utils.ParseOptionalDate(to)
			if err != nil {
				return err
			}
			db, _, err := env.connect(cmd.Context())
			if err != nil {
				return err
			}
			statement, err := accounting.NewLedgerProjector(db).ComputeLedgerRange(cmd.Context(), accountID,
				models.LedgerRange{From: fromDate, To: toDate})
			if err != nil {
				return err
			}
			if xlsxPath != "" {
				return writeFile(xlsxPath, func(w io.Writer) error {
					return reports.WriteLedgerStatement(w, statement)
				})
			}
			return printStatement(env.out, statement)
		},
	}
	cmd.Flags().IntVar(&accountID, "account", 0, "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&from, "from", "", "first date included (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date included (YYYY-MM-DD)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an Excel file instead of printing")
	return cmd
}

func newTrialBalanceCommand(env *environment) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance or export it to Excel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := env.connect(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := accounting.NewLedgerProjector(db).TrialBalance(cmd.Context())
			if err != nil {
				return err
			}
			if xlsxPath != "" {
				return writeFile(xlsxPath, func(w io.Writer) error {
					return reports.WriteTrialBalance(w, rows)
				})
			}
			w := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "Code\tAccount\tDebit\tCredit\t")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", r.Code, r.Name, r.Debit.StringFixed(2), r.Credit.StringFixed(2))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an Excel file instead of printing")
	return cmd
}

func newDispatchOutboxCommand(env *environment) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "dispatch-outbox",
		Short: "Publish pending outbox records to Pub/Sub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, settings, err := env.connect(ctx)
			if err != nil {
				return err
			}
			publisher, err := config.NewPubSubPublisher(ctx, settings)
			if err != nil {
				return err
			}
			defer publisher.Close()

			dispatcher := workflow.NewOutboxDispatcher(db, publisher, config.NewLogger(settings.LogLevel))
			if !once {
				dispatcher.Run(ctx)
				return nil
			}
			sent, err := dispatcher.DispatchOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out, "published %d record(s)\n", sent)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "claim and publish a single batch, then exit")
	return cmd
}

func newRequeueOutboxCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue-outbox <id>",
		Short: "Reset a FAILED or DEAD outbox record to PENDING",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			db, _, err := env.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := models.RequeueOutboxRecord(cmd.Context(), db, id); err != nil {
				return err
			}
			fmt.Fprintf(env.out, "outbox record %d requeued\n", id)
			return nil
		},
	}
}

func printStatement(out io.Writer, s *models.LedgerStatement) error {
	fmt.Fprintf(out, "%s %s (%s)\n", s.Account.Code, s.Account.Name, s.Account.Type)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "\tOpening balance\t\t\t%s\n", s.OpeningBalance.StringFixed(2))
	for _, l := range s.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			l.Date.Format(utils.DateLayout), l.VoucherNumber,
			l.Debit.StringFixed(2), l.Credit.StringFixed(2), l.RunningBalance.StringFixed(2))
	}
	fmt.Fprintf(w, "\tClosing balance\t%s\t%s\t%s\n",
		s.TotalDebit.StringFixed(2), s.TotalCredit.StringFixed(2), s.ClosingBalance.StringFixed(2))
	return w.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
