package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/assignment-tracker/internal/server"
)

var plansJSON bool

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Print the subscription tiers the server would load",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		catalog, err := server.LoadCatalog(cfg)
		if err != nil {
			return err
		}
		tiers := catalog.All()

		out := cmd.OutOrStdout()
		if plansJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tiers)
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPRICE\tASSIGNMENTS\tCOURSES\tSYNC\tFEATURES")
		for _, t := range tiers {
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\t%s\n",
				t.Name, t.Price,
				limit(t.Limits.MaxAssignments), limit(t.Limits.MaxCourses),
				t.Limits.SyncFrequency, strings.Join(t.Features, "; "))
		}
		return w.Flush()
	},
}

func limit(n int) string {
	if n == entitlement.Unlimited {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

func init() {
	plansCmd.Flags().BoolVar(&plansJSON, "json", false, "print as JSON")
}
