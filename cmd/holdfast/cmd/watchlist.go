package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newWatchlistCmd(a *app) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"watch"},
		Short:   "Track symbols that are not held",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List watched symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.container.WatchlistService.List(a.context(cmd))
			if err != nil {
				return err
			}
			return a.render(cmd, entries, func(w io.Writer) {
				row(w, "SYMBOL", "TARGET", "ADDED")
				for _, e := range entries {
					row(w, e.Symbol, optMoney(e.TargetPrice), e.AddedAt.Format(time.DateOnly))
				}
			})
		},
	}

	var market, target string
	addCmd := &cobra.Command{
		Use:   "add <symbol>",
		Short: "Watch a symbol, optionally with a target price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTarget(target)
			if err != nil {
				return err
			}
			entry, err := a.container.WatchlistService.Add(a.context(cmd), args[0], market, t)
			if err != nil {
				return err
			}
			return a.render(cmd, entry, func(w io.Writer) {
				fmt.Fprintf(w, "watching %s (target %s)\n", entry.Symbol, optMoney(entry.TargetPrice))
			})
		},
	}
	addCmd.Flags().StringVar(&market, "market", "", "market code, decides the symbol suffix")
	addCmd.Flags().StringVar(&target, "target", "", "target price")

	targetCmd := &cobra.Command{
		Use:   "target <symbol> <price|none>",
		Short: "Set or clear the target of a watched symbol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTarget(args[1])
			if err != nil {
				return err
			}
			entry, err := a.container.WatchlistService.SetTarget(a.context(cmd), args[0], t)
			if err != nil {
				return err
			}
			return a.render(cmd, entry, func(w io.Writer) {
				fmt.Fprintf(w, "target of %s set to %s\n", entry.Symbol, optMoney(entry.TargetPrice))
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <symbol>",
		Short: "Stop watching a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.container.WatchlistService.Remove(a.context(cmd), args[0]); err != nil {
				return err
			}
			return a.render(cmd, map[string]string{"removed": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "removed %s\n", args[0])
			})
		},
	}

	watchCmd.AddCommand(listCmd, addCmd, targetCmd, removeCmd)
	return watchCmd
}
