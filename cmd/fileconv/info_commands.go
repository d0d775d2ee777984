package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itsthejuice/File-Converter/internal/planner"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "formats [INPUT]",
		Short: "List supported formats, or the targets reachable from INPUT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := ctx.registryValue()
			out := cmd.OutOrStdout()
			if len(args) == 0 && from == "" {
				fmt.Fprintln(out, "Inputs:")
				for _, m := range reg.AllInputFormats() {
					fmt.Fprintln(out, "  "+m)
				}
				fmt.Fprintln(out, "Outputs:")
				for _, m := range reg.AllOutputFormats() {
					fmt.Fprintln(out, "  "+m)
				}
				return nil
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			src, err := resolveSourceMIME(path, from)
			if err != nil {
				return err
			}
			targets := planner.SupportedOutputsFor(src, reg)
			if len(targets) == 0 {
				fmt.Fprintf(out, "No conversions available for %s\n", src)
				return nil
			}
			fmt.Fprintf(out, "%s converts to:\n", src)
			for _, m := range targets {
				fmt.Fprintln(out, "  "+m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source MIME type instead of an input file")
	return cmd
}

func newPluginsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := ctx.registryValue().Info()
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No plugins registered")
				return nil
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				state := "ready"
				switch {
				case !info.Enabled:
					state = "disabled"
				case !info.Available:
					state = "missing " + strings.Join(info.Missing, ",")
				}
				rows = append(rows, []string{
					info.Name,
					info.Version,
					strings.Join(info.Inputs, ", "),
					strings.Join(info.Outputs, ", "),
					state,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Name", "Version", "Inputs", "Outputs", "State"}, rows, nil))
			return nil
		},
	}
}

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "presets [MIME]",
		Short: "List option presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := ctx.newEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			mimes := eng.Presets.MIMEs()
			if len(args) == 1 {
				mimes = []string{args[0]}
			}
			var rows [][]string
			for _, m := range mimes {
				for _, name := range eng.Presets.Names(m) {
					opts, _ := eng.Presets.Lookup(m, name)
					pairs := make([]string, 0, len(opts))
					for _, k := range opts.Keys() {
						pairs = append(pairs, k+"="+opts[k].String())
					}
					rows = append(rows, []string{m, name, strings.Join(pairs, " ")})
				}
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No presets")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Type", "Preset", "Options"}, rows, nil))
			return nil
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.ListHistory(limit, 0)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No conversions recorded")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				finished := ""
				if !r.FinishedAt.IsZero() {
					finished = r.FinishedAt.Local().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{
					finished,
					r.Status,
					shortName(r.SrcPath),
					r.DstMime,
					strconv.FormatInt(r.DurationMs, 10),
					r.OutputPath,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Status", "Source", "Target", "ms", "Output"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}
