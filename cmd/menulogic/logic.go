package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mchmarny/menulogic/pkg/store"
)

func newLogicCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logic",
		Short: "Manage conditions held by the condition store",
		Long: `Conditions in the store override the ones in the menu definition. A
condition that does not parse is refused, and setting an empty condition
removes it, leaving the item always visible.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <item-id>",
			Short: "Print the stored condition of an item",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := a.conditionStore()
				if err != nil {
					return err
				}
				defer st.Close()
				c, err := st.Get(cmd.Context(), args[0])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("item %s has no stored condition", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), c)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <item-id> <condition>",
			Short: "Store the condition of an item",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := a.conditionStore()
				if err != nil {
					return err
				}
				defer st.Close()
				return st.Set(cmd.Context(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:     "unset <item-id>",
			Aliases: []string{"rm"},
			Short:   "Remove the stored condition of an item",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := a.conditionStore()
				if err != nil {
					return err
				}
				defer st.Close()
				return st.Delete(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "Print every stored condition",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				st, err := a.conditionStore()
				if err != nil {
					return err
				}
				defer st.Close()
				all, err := st.All(cmd.Context())
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(all))
				for id := range all {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, all[id])
				}
				return nil
			},
		},
	)
	return cmd
}
