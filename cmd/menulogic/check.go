package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mchmarny/menulogic/pkg/config"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the menu definition and every condition without evaluating them",
		Long: `Check parses every condition of the menu, including those held by the
condition store, and reports items whose parent is missing or whose parent
chain loops. It exits non-zero when any condition or parent chain is broken.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := config.LoadMenu(a.cfg.MenuFile)
			if err != nil {
				return err
			}

			if m.Items, err = a.conditions(cmd.Context(), m.Items, nil); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			var broken int
			for _, p := range config.CheckMenu(m, a.cfg.Evaluator()) {
				level := "warning"
				if p.Err != nil {
					level = "error"
					broken++
				}
				fmt.Fprintf(w, "%s: %s\n", level, p)
			}
			if broken > 0 {
				return fmt.Errorf("%d of %d items are broken", broken, len(m.Items))
			}
			fmt.Fprintf(w, "%d items ok\n", len(m.Items))
			return nil
		},
	}
}
