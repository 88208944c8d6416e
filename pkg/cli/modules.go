package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/flowedit/pkg/module"
)

// NewModulesCommand creates the modules command
func NewModulesCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "Inspect module catalogs",
		Long:  `List and validate the module catalogs services are instantiated from.`,
	}

	cmd.AddCommand(newModulesListCommand(opts))
	cmd.AddCommand(newModulesValidateCommand())

	return cmd
}

func newModulesListCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list [catalog.yaml]",
		Short: "List the modules in a catalog",
		Long: `List the modules in a catalog file. Without an argument the
configured catalog is used, or the built-in catalog when none is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			catalog, err := opts.catalog(path)
			if err != nil {
				return err
			}
			printModulesTable(cmd.OutOrStdout(), catalog)
			return nil
		},
	}
}

func newModulesValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog.yaml>",
		Short: "Validate a module catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := module.LoadFile(args[0])
			if err != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", args[0])
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d modules valid\n", args[0], catalog.Len())
			return nil
		},
	}
}

// printModulesTable prints one row per module
func printModulesTable(w io.Writer, catalog *module.Catalog) {
	_, _ = fmt.Fprintf(w, "%-16s %-10s %-20s %-20s %s\n", "NAME", "CATEGORY", "INPUTS", "OUTPUTS", "PARAMETERS")
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, name := range catalog.Names() {
		d, err := catalog.Lookup(name)
		if err != nil {
			continue
		}
		inputs := portNames(d.Inputs)
		if dp := d.DynamicPorts; dp != nil {
			inputs = append(inputs, fmt.Sprintf("%s1..%d", dp.Prefix, dp.Max))
		}
		params := make([]string, 0, len(d.Parameters))
		for _, p := range d.Parameters {
			params = append(params, p.Name)
		}
		_, _ = fmt.Fprintf(w, "%-16s %-10s %-20s %-20s %s\n",
			d.Name, orDash(d.Category), orDash(strings.Join(inputs, ",")),
			orDash(strings.Join(portNames(d.Outputs), ",")), orDash(strings.Join(params, ",")))
	}
	_, _ = fmt.Fprintf(w, "\nTotal: %d modules\n", catalog.Len())
}

func portNames(ports []module.PortSpec) []string {
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Name)
	}
	return names
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
