package main

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/modboot/internal/application"
	"github.com/vyrodovalexey/modboot/internal/exposure"
	"github.com/vyrodovalexey/modboot/internal/modularity"
	"github.com/vyrodovalexey/modboot/internal/samples"
)

func newContractsCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "contracts",
		Short: "Print the contracts every sample component is exposed under",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			resolver := exposure.NewResolver(cfg.Exposure.MarkerOrDefault())
			printContracts(cmd.OutOrStdout(), resolver, samples.CodeUnits())
			return nil
		},
	}
}

func printContracts(out io.Writer, resolver exposure.Resolver, units []*modularity.CodeUnit) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UNIT\tCOMPONENT\tCONTRACTS")
	for _, unit := range units {
		for _, c := range unit.Components {
			contracts := "(not exposed)"
			if c.Declared() {
				contracts = joinTypes(resolver.ResolveAll(c))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", unit.Name, exposure.TypeName(c.Type), contracts)
		}
	}
	_ = w.Flush()
}

func newModulesCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "Print the sample module graph in configuration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			logger, err := initLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := application.New(cmd.Context(), samples.NewWebModule(logger),
				application.WithConfig(cfg),
				application.WithLogger(logger),
				application.WithSkipConfigure(),
			)
			if err != nil {
				return err
			}
			printModules(cmd.OutOrStdout(), app.Modules())
			return nil
		},
	}
}

func printModules(out io.Writer, modules []*modularity.Descriptor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tCAPABILITIES\tDEPENDS ON\tCODE UNITS\tAUTO-REGISTER")
	for _, d := range modules {
		deps := make([]string, 0, len(d.DependsOn()))
		for _, dep := range d.DependsOn() {
			deps = append(deps, dep.Name())
		}
		units := make([]string, 0, len(d.CodeUnits()))
		for _, u := range d.CodeUnits() {
			units = append(units, u.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			d.Name(),
			d.Capabilities(),
			orDash(deps),
			orDash(units),
			!d.SkipsAutoRegistration(),
		)
	}
	_ = w.Flush()
}

func joinTypes(types []reflect.Type) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, exposure.TypeName(t))
	}
	return orDash(names)
}

func orDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
