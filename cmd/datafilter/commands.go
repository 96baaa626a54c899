package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/paveg/datafilter/internal/api"
	"github.com/paveg/datafilter/internal/dataset"
	"github.com/paveg/datafilter/internal/errors"
	"github.com/paveg/datafilter/internal/filter"
	"github.com/paveg/datafilter/internal/render"
	"github.com/paveg/datafilter/internal/sorting"
	"github.com/paveg/datafilter/internal/value"
	"github.com/paveg/datafilter/internal/version"
	"github.com/spf13/cobra"
)

func newShowCommand(a *app) *cobra.Command {
	var rows int
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print a dataset as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session.Load(args[0]); err != nil {
				return err
			}
			return a.table(cmd, rows)
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", render.DefaultTableOptions().MaxRows, "Rows to print (0 prints all)")
	return cmd
}

func newStatsCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Print per-field statistics grouped by value kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session.Load(args[0]); err != nil {
				return err
			}
			report, err := a.session.Stats()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			return render.Report(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newFilterCommand(a *app) *cobra.Command {
	var (
		stat   string
		output string
		rows   int
	)
	cmd := &cobra.Command{
		Use:   "filter <file> [condition...]",
		Short: "Keep the records matching every condition",
		Long: `Conditions are written as "<field> <operator> <operand>", for example
"age >= 30", "name contains al" or "tags list_any > 3". Operands are read
as literals when possible, so 30 is an int and [1,2] a list.

--stat compares a numeric field against its own statistic, for example
--stat "salary:>:mean".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && stat == "" {
				return errors.NewInvalidArgumentError("filter", "", "no condition given").
					WithHint(`pass a condition such as "age >= 30" or use --stat`)
			}
			conds := make([]filter.Condition, 0, len(args)-1)
			for _, expr := range args[1:] {
				c, err := filter.ParseCondition(expr)
				if err != nil {
					return err
				}
				conds = append(conds, c)
			}

			total, err := a.session.Load(args[0])
			if err != nil {
				return err
			}
			if len(conds) > 0 {
				if _, err := a.session.Filter(conds...); err != nil {
					return err
				}
			}
			if stat != "" {
				field, op, name, err := parseStatFlag(stat)
				if err != nil {
					return err
				}
				threshold, _, err := a.session.FilterByStat(field, op, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %s (%s)\n", field, op, value.FormatFloat(threshold), name)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "kept %d of %d records\n", a.session.Len(), total)
			if output != "" {
				return a.save(cmd, output)
			}
			return a.table(cmd, rows)
		},
	}
	cmd.Flags().StringVar(&stat, "stat", "", "Statistic filter as field:operator:stat (min, max or mean)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of printing it")
	cmd.Flags().IntVarP(&rows, "rows", "n", render.DefaultTableOptions().MaxRows, "Rows to print (0 prints all)")
	return cmd
}

func newSortCommand(a *app) *cobra.Command {
	var (
		output string
		rows   int
	)
	cmd := &cobra.Command{
		Use:   "sort <file> <key>[,<key>...]",
		Short: "Sort records by one or more fields",
		Long: `Keys are field names, most significant first. Prefix a key with "-" or
suffix it with ":desc" for descending order. Null values always sort last.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := sorting.ParseKeys(strings.Join(args[1:], ","))
			if err != nil {
				return err
			}
			if _, err := a.session.Load(args[0]); err != nil {
				return err
			}
			if res := a.session.Sort(keys...); res.Err != nil {
				return res.Err
			}
			if output != "" {
				return a.save(cmd, output)
			}
			return a.table(cmd, rows)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of printing it")
	cmd.Flags().IntVarP(&rows, "rows", "n", render.DefaultTableOptions().MaxRows, "Rows to print (0 prints all)")
	return cmd
}

func newConvertCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Rewrite a dataset in the format implied by the output extension",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session.Load(args[0]); err != nil {
				return err
			}
			return a.save(cmd, args[1])
		},
	}
}

func newFieldsCommand(a *app) *cobra.Command {
	var (
		add    []string
		remove []string
		rename []string
		set    string
		where  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "fields <file>",
		Short: "List or edit the fields of a dataset",
		Long: `Without flags, fields lists every field with its type signature and how
many records carry it. Edits are applied in the order remove, rename, add
and set, after which the listing reflects the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.session.Load(args[0]); err != nil {
				return err
			}
			for _, f := range remove {
				if err := a.session.RemoveField(f); err != nil {
					return err
				}
			}
			for _, pair := range rename {
				from, to, err := splitPair(pair, "rename")
				if err != nil {
					return err
				}
				if err := a.session.RenameField(from, to); err != nil {
					return err
				}
			}
			for _, pair := range add {
				field, raw, err := splitPair(pair, "add")
				if err != nil {
					return err
				}
				if err := a.session.AddField(field, value.DecodeCell(raw)); err != nil {
					return err
				}
			}
			if set != "" {
				if err := a.updateField(cmd, set, where); err != nil {
					return err
				}
			}

			if output != "" {
				if err := a.save(cmd, output); err != nil {
					return err
				}
			}
			return a.fieldTable(cmd)
		},
	}
	cmd.Flags().StringArrayVar(&add, "add", nil, "Add a field as name=default to every record")
	cmd.Flags().StringArrayVar(&remove, "remove", nil, "Remove a field from every record")
	cmd.Flags().StringArrayVar(&rename, "rename", nil, "Rename a field as old=new")
	cmd.Flags().StringVar(&set, "set", "", "Set field=value on the records matching --where")
	cmd.Flags().StringVar(&where, "where", "", "Condition selecting the records --set updates")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the edited dataset to this file")
	return cmd
}

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve the dataset API and monitoring endpoints over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if _, err := a.session.Load(args[0]); err != nil {
					return err
				}
			}
			cfg := a.cfg
			if addr != "" {
				cfg.ServerAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.NewServer(cfg, a.session, a.collector, a.logger).ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to the configured server address)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version needs no configuration or session.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Info()
			if asJSON {
				return writeJSON(cmd, info)
			}
			fmt.Fprint(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func (a *app) table(cmd *cobra.Command, rows int) error {
	opts := render.DefaultTableOptions()
	opts.MaxRows = rows
	return render.Table(cmd.OutOrStdout(), a.session.Data(), opts)
}

func (a *app) save(cmd *cobra.Command, path string) error {
	written, err := a.session.Save(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %d records to %s\n", a.session.Len(), written)
	return nil
}

func (a *app) updateField(cmd *cobra.Command, set, where string) error {
	const op = "UpdateField"
	if where == "" {
		return errors.NewInvalidArgumentError(op, "", "--set requires --where")
	}
	field, raw, err := splitPair(set, "set")
	if err != nil {
		return err
	}
	cond, err := filter.ParseCondition(where)
	if err != nil {
		return err
	}
	n, err := a.session.UpdateField(cond, field, value.DecodeCell(raw))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "updated %s on %d records\n", field, n)
	return nil
}

func (a *app) fieldTable(cmd *cobra.Command) error {
	presence, err := a.session.Fields()
	if err != nil {
		return err
	}
	d := a.session.Data()
	names := make([]string, 0, len(presence))
	for f := range presence {
		names = append(names, f)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tPRESENT\tNULL")
	for _, f := range names {
		p := presence[f]
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\n", f, dataset.Signature(d, f), p.PresentCount, p.TotalRows, p.NullCount)
	}
	return tw.Flush()
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// parseStatFlag splits "salary:>:mean" into its parts.
func parseStatFlag(s string) (string, filter.Operator, string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return "", "", "", errors.NewInvalidArgumentError("FilterByStat", "", "malformed --stat "+s).
			WithHint(`use field:operator:stat, for example "salary:>:mean"`)
	}
	op, err := filter.ParseOperator(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(parts[0]), op, strings.TrimSpace(parts[2]), nil
}

func splitPair(s, flag string) (string, string, error) {
	left, right, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(left) == "" {
		return "", "", errors.NewInvalidArgumentError(flag, "", fmt.Sprintf("--%s expects name=value, got %q", flag, s))
	}
	return strings.TrimSpace(left), right, nil
}
