package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"expenses/internal/core"
	"expenses/internal/legacy"
	"expenses/internal/query"
	"expenses/internal/services"
)

var errAborted = errors.New("aborted by user")

func (a *app) addCmd() *cobra.Command {
	var in services.ExpenseInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Example: `  expenses add --amount 12.50 --category food --description "Lunch"
  expenses add --date 2024-05-01 --amount 3,20 --category transport --description Bus`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Date == "" {
				in.Date = a.service.Today()
			}
			e, err := a.service.SubmitNewExpense(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s %s %s (%s)\n",
				e.ID, e.Date, e.Amount, e.Description, e.Category.Label())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Date, "date", "", "date of the expense, YYYY-MM-DD (default: today)")
	f.StringVarP(&in.Description, "description", "d", "", "what the money was spent on")
	f.StringVarP(&in.Category, "category", "c", "", "one of: "+categoryList())
	f.StringVarP(&in.Amount, "amount", "a", "", "amount spent, e.g. 12.50")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var filter query.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			entries := a.service.GetFilteredView(filter.Category, filter.Date)
			if len(entries) == 0 {
				fmt.Fprintln(out, "No expenses found.")
				return nil
			}
			if err := writeEntries(out, entries); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d expenses, total %s\n", len(entries), query.SumAmounts(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter.Category, "category", "c", query.AllCategories, "only this category")
	cmd.Flags().StringVar(&filter.Date, "date", "", "only this date, YYYY-MM-DD")
	return cmd
}

func (a *app) monthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "Show the monthly total, daily average and category breakdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := core.MonthKeyOf(a.service.Today())
			if len(args) == 1 {
				key = args[0]
			}
			t, err := time.Parse("2006-01", key)
			if err != nil {
				return fmt.Errorf("invalid month %q: want YYYY-MM", key)
			}

			v := a.service.GetMonthlyView(t.Year(), int(t.Month()))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", t.Format("January 2006"))
			fmt.Fprintf(out, "Total:         %s\n", v.Total)
			fmt.Fprintf(out, "Daily average: %s\n", v.DailyAverage.StringFixed(2))
			if len(v.Breakdown) == 0 {
				fmt.Fprintln(out, "\nNo expenses this month.")
				return nil
			}

			fmt.Fprintln(out)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, b := range v.Breakdown {
				fmt.Fprintf(w, "%s\t%s\n", b.Category.Label(), b.Amount)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out)
			return writeEntries(out, v.Entries)
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Delete expense %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}
			if err := a.service.RequestDelete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n := a.service.Summary(a.service.Today()).Count
			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Delete all %d expenses? This cannot be undone.", n))
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}
			if err := a.service.RequestClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expenses\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show overall, today's and this month's totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.service.Summary(a.service.Today())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Total\t%s\n", s.Total)
			fmt.Fprintf(w, "Today\t%s\n", s.Today)
			fmt.Fprintf(w, "This month\t%s\n", s.Month)
			fmt.Fprintf(w, "Expenses\t%d\n", s.Count)
			if a.service.Degraded() {
				fmt.Fprintf(w, "Storage\tunavailable (not saved)\n")
			}
			return w.Flush()
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Migrate entries from the legacy JSON list into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = a.cfg.LegacyImportPath
			}
			n, err := a.service.ImportLegacy(cmd.Context(), legacy.NewFileSource(path))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d expenses\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "legacy JSON file (default: LEGACY_IMPORT_PATH)")
	return cmd
}

func writeEntries(out io.Writer, entries []core.Entry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tCATEGORY\tAMOUNT\tDESCRIPTION\tID")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Date, e.Category.Label(), e.Amount, e.Description, e.ID)
	}
	return w.Flush()
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func categoryList() string {
	names := make([]string, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		names = append(names, c.String())
	}
	return strings.Join(names, ", ")
}
