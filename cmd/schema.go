package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/schema"
	"github.com/okian/renalrisk/internal/domain/types"
)

func schemaCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema [aki|akd]",
		Short: "Show the inputs and slot order of each target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := schema.All()
			if len(args) == 1 {
				target, err := model.ParseTarget(args[0])
				if err != nil {
					return err
				}
				s, err := schema.For(target)
				if err != nil {
					return err
				}
				schemas = []schema.Schema{s}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				descs := make([]types.SchemaDescriptor, 0, len(schemas))
				for _, s := range schemas {
					descs = append(descs, types.DescribeSchema(s))
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(descs)
			}
			for i, s := range schemas {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := printSchema(out, types.DescribeSchema(s)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printSchema(w io.Writer, d types.SchemaDescriptor) error {
	fmt.Fprintf(w, "%s inputs\n", d.Label)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tKIND\tOPTIONS")
	for _, f := range d.Inputs {
		label := f.Label
		if f.Unit != "" {
			label += " (" + f.Unit + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Key, label, f.Kind, strings.Join(f.Options, " | "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s slots\n", d.Label)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range d.Slots {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Position, s.Name, s.Field)
	}
	return tw.Flush()
}
