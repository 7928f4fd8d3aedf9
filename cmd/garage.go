package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/carbridge/core/observable"
)

var garageCmd = &cobra.Command{
	Use:   "garage",
	Short: "Inspect the vehicles provided by the connectors",
}

var garageLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the vehicles of the configured connectors",
	RunE:  runGarageLs,
}

func init() {
	garageCmd.AddCommand(garageLsCmd)
	rootCmd.AddCommand(garageCmd)
}

func runGarageLs(cmd *cobra.Command, _ []string) error {
	svc, _, err := loadService()
	if err != nil {
		return err
	}
	if err := svc.StartConnectors(cmd.Context()); err != nil {
		return err
	}
	defer func() { _ = svc.Stop() }()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VIN\tTYPE\tNAME\tSTATE\tODOMETER\tLEVEL")
	for _, v := range svc.Tree().Garage.Vehicles() {
		level := "-"
		if d, ok := v.Drives.Get("primary"); ok {
			level = formatted(d.Level)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", v.ID(), formatted(v.Type), formatted(v.Name), formatted(v.State), formatted(v.Odometer), level)
	}
	return w.Flush()
}

func formatted(v observable.Valuer) string {
	s, ok := v.Formatted()
	if !ok {
		return "-"
	}
	if u := v.Unit(); u != "" {
		return s + " " + string(u)
	}
	return s
}
