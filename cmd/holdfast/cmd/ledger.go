package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/spf13/cobra"
)

func newRecordCmd(a *app) *cobra.Command {
	var (
		market, broker, category, date string
	)
	cmd := &cobra.Command{
		Use:   "record <BUY|SELL> <symbol> <quantity> <price>",
		Short: "Record a buy or sell and update the position",
		Example: `  holdfast record buy AAPL 10 100 --broker Eco --category Stocks
  holdfast record sell GGAL 5 300 --market AR --broker Cocos --date 2024-03-01`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseOperationKind(args[0])
			if err != nil {
				return err
			}
			quantity, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}
			price, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid price %q", args[3])
			}
			executedAt, err := parseDate(date)
			if err != nil {
				return err
			}

			res, err := a.container.LedgerService.RecordTransaction(a.context(cmd), ledger.RecordInput{
				ExecutedAt: executedAt,
				Symbol:     args[1],
				Market:     market,
				Kind:       kind,
				Broker:     broker,
				Category:   category,
				Quantity:   quantity,
				Price:      price,
			})
			if err != nil {
				return err
			}
			return a.render(cmd, res, func(w io.Writer) {
				t := res.Transaction
				fmt.Fprintf(w, "recorded #%d %s %s %s @ %s (%s)\n", t.ID, t.Kind, qty(t.Quantity), t.Symbol, money(t.Price), t.Broker)
				if res.Position == nil {
					fmt.Fprintf(w, "position %s/%s closed\n", t.Symbol, t.Broker)
					return
				}
				fmt.Fprintf(w, "position %s/%s: %s @ %s\n", t.Symbol, t.Broker, qty(res.Position.Quantity), money(res.Position.AvgPrice))
			})
		},
	}
	cmd.Flags().StringVar(&market, "market", "", "market code, decides the symbol suffix (default from the catalog)")
	cmd.Flags().StringVar(&broker, "broker", "", "broker holding the position")
	cmd.Flags().StringVar(&category, "category", "", "instrument category")
	cmd.Flags().StringVar(&date, "date", "", "execution date, RFC3339 or YYYY-MM-DD (default now)")
	_ = cmd.MarkFlagRequired("broker")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction and replay its position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			res, err := a.container.LedgerService.DeleteTransaction(a.context(cmd), id)
			if err != nil {
				return err
			}
			return a.render(cmd, res, func(w io.Writer) {
				t := res.Transaction
				fmt.Fprintf(w, "deleted #%d %s %s %s\n", t.ID, t.Kind, qty(t.Quantity), t.Symbol)
				if res.Position != nil {
					fmt.Fprintf(w, "position %s/%s: %s @ %s\n", t.Symbol, t.Broker, qty(res.Position.Quantity), money(res.Position.AvgPrice))
				}
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var filter ledger.TransactionFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := a.container.LedgerService.Transactions(a.context(cmd), filter)
			if err != nil {
				return err
			}
			return a.render(cmd, txs, func(w io.Writer) {
				row(w, "ID", "DATE", "KIND", "SYMBOL", "BROKER", "QTY", "PRICE", "TOTAL")
				for _, t := range txs {
					row(w, strconv.FormatInt(t.ID, 10), t.ExecutedAt.Format(time.DateOnly), string(t.Kind), t.Symbol,
						t.Broker, qty(t.Quantity), money(t.Price), money(t.Total()))
				}
			})
		},
	}
	cmd.Flags().StringVar(&filter.Symbol, "symbol", "", "only this symbol")
	cmd.Flags().StringVar(&filter.Broker, "broker", "", "only this broker")
	return cmd
}

func newPositionsCmd(a *app) *cobra.Command {
	var filter ledger.PositionFilter
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List open positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			positions, err := a.container.LedgerService.ListPositions(a.context(cmd), filter)
			if err != nil {
				return err
			}
			return a.render(cmd, positions, func(w io.Writer) {
				row(w, "SYMBOL", "BROKER", "CATEGORY", "QTY", "AVG", "INVESTED", "TARGET")
				for _, p := range positions {
					row(w, p.Symbol, p.Broker, p.Category, qty(p.Quantity), money(p.AvgPrice),
						money(p.InvestedCapital()), optMoney(p.TargetPrice))
				}
			})
		},
	}
	cmd.Flags().StringVar(&filter.Symbol, "symbol", "", "only this symbol")
	cmd.Flags().StringVar(&filter.Broker, "broker", "", "only this broker")
	cmd.Flags().StringVar(&filter.Category, "category", "", "only this category")
	return cmd
}

func newTargetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "target <symbol> <price|none>",
		Short: "Set or clear the target price of a held symbol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[1])
			if err != nil {
				return err
			}
			updated, err := a.container.LedgerService.SetTarget(a.context(cmd), args[0], target)
			if err != nil {
				return err
			}
			return a.render(cmd, map[string]any{"symbol": args[0], "target_price": target, "updated": updated}, func(w io.Writer) {
				fmt.Fprintf(w, "target of %s set to %s on %d positions\n", domain.NormalizeSymbol(args[0]), optMoney(target), updated)
			})
		},
	}
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <symbol>",
		Short: "Delete every position and transaction of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.container.LedgerService.RemoveInstrument(a.context(cmd), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "removed %s: %d positions, %d transactions\n", res.Symbol, res.Positions, res.Transactions)
			})
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Replay every position from its transactions and report differences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			diffs, err := a.container.LedgerService.Verify(a.context(cmd))
			if err != nil {
				return err
			}
			if diffs == nil {
				diffs = []ledger.Discrepancy{}
			}
			return a.render(cmd, diffs, func(w io.Writer) {
				if len(diffs) == 0 {
					fmt.Fprintln(w, "ledger consistent")
					return
				}
				row(w, "SYMBOL", "BROKER", "STORED", "REPLAYED", "ERROR")
				for _, d := range diffs {
					row(w, d.Key.Symbol, d.Key.Broker, describe(d.Stored), describe(d.Replayed), d.Error)
				}
			})
		},
	}
}

func newRebuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute every position from the transaction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.container.LedgerService.Rebuild(a.context(cmd))
			if err != nil {
				return err
			}
			return a.render(cmd, map[string]int{"rebuilt": n}, func(w io.Writer) {
				fmt.Fprintf(w, "rebuilt %d positions\n", n)
			})
		},
	}
}

func describe(p *domain.Position) string {
	if p == nil {
		return "closed"
	}
	return qty(p.Quantity) + " @ " + money(p.AvgPrice)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewValidationError("parse_date", "date must be RFC3339 or YYYY-MM-DD, got %q", s)
}
