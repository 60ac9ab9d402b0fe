package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/picogrid/legion-rendezvous/pkg/vehicle"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available vehicle backends",
	Long:  `List all registered vehicle backends with their descriptions`,
	RunE:  listBackends,
}

func listBackends(_ *cobra.Command, _ []string) error {
	names := vehicle.DefaultRegistry.List()
	if len(names) == 0 {
		fmt.Println("No vehicle backends registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "----\t-----------")

	for _, name := range names {
		fleet, err := vehicle.DefaultRegistry.Get(name)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", fleet.Name(), fleet.Description())
	}

	return w.Flush()
}
