package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/modules/alerts"
	"github.com/holdfast/holdfast/internal/modules/ledger"
	"github.com/spf13/cobra"
)

func newValuateCmd(a *app) *cobra.Command {
	var (
		filter  ledger.PositionFilter
		summary bool
	)
	cmd := &cobra.Command{
		Use:   "valuate",
		Short: "Value open positions at current prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.context(cmd)
			if summary {
				cats, err := a.container.ValuationService.SummaryByCategory(ctx)
				if err != nil {
					return err
				}
				return a.render(cmd, cats, func(w io.Writer) {
					row(w, "CATEGORY", "POSITIONS", "INVESTED", "SHARE%")
					for _, c := range cats {
						row(w, c.Category, fmt.Sprint(c.Positions), money(c.InvestedCapital), money(c.SharePct))
					}
				})
			}

			v, err := a.container.ValuationService.Valuate(ctx, filter)
			if err != nil {
				return err
			}
			return a.render(cmd, v, func(w io.Writer) {
				row(w, "SYMBOL", "BROKER", "QTY", "AVG", "PRICE", "VALUE", "INVESTED", "GAIN", "GAIN%", "STATUS")
				for _, p := range v.Positions {
					price := money(p.CurrentPrice)
					if p.PriceStatus != domain.QuoteOK {
						price = "-"
					}
					row(w, p.Symbol, p.Broker, qty(p.Quantity), money(p.AvgPrice), price, money(p.MarketValue),
						money(p.InvestedCapital), money(p.GainLossAbs), money(p.GainLossPct), string(p.PriceStatus))
				}
				t := v.Totals
				row(w, "TOTAL", "", "", "", "", money(t.MarketValue), money(t.InvestedCapital),
					money(t.GainLossAbs), money(t.GainLossPct), fmt.Sprintf("%d priced, %d unpriced", t.Priced, t.Unpriced))
			})
		},
	}
	cmd.Flags().StringVar(&filter.Symbol, "symbol", "", "only this symbol")
	cmd.Flags().StringVar(&filter.Broker, "broker", "", "only this broker")
	cmd.Flags().StringVar(&filter.Category, "category", "", "only this category")
	cmd.Flags().BoolVar(&summary, "summary", false, "invested capital per category instead of positions")
	return cmd
}

func newAlertsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Compare current prices with target prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.container.AlertService.EvaluateAlerts(a.context(cmd), alerts.Options{OnlyWithTarget: !all})
			if err != nil {
				return err
			}
			return a.render(cmd, list, func(w io.Writer) {
				row(w, "SYMBOL", "SOURCE", "TARGET", "PRICE", "DISTANCE%", "STATE")
				for _, al := range list {
					state := string(al.State)
					if al.Crossed {
						state += " (crossed)"
					}
					row(w, al.Symbol, al.Source, optMoney(al.TargetPrice), money(al.CurrentPrice), optMoney(al.DistancePct), state)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include symbols without a target")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Report 52 week range and moving average signals for held and watched symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.container.AnalysisService.Opportunities(a.context(cmd))
			if err != nil {
				return err
			}
			return a.render(cmd, list, func(w io.Writer) {
				row(w, "SYMBOL", "PRICE", "52W LOW", "52W HIGH", "MA50", "MA200", "SIGNALS", "STATUS")
				for _, an := range list {
					signals := make([]string, len(an.Signals))
					for i, s := range an.Signals {
						signals[i] = string(s)
					}
					row(w, an.Symbol, money(an.CurrentPrice), money(an.Low52W), money(an.High52W),
						optMoney(an.MA50), optMoney(an.MA200), strings.Join(signals, ","), an.Status)
				}
			})
		},
	}
}

func newBarsCmd(a *app) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "bars <symbol>",
		Short: "Print the price history of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return err
			}
			bars, err := a.container.AnalysisService.Bars(a.context(cmd), domain.NormalizeSymbol(args[0]), p)
			if err != nil {
				return err
			}
			if bars == nil {
				bars = []domain.Bar{}
			}
			return a.render(cmd, bars, func(w io.Writer) {
				row(w, "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
				for _, b := range bars {
					row(w, b.Time.Format(time.DateOnly), money(b.Open), money(b.High), money(b.Low), money(b.Close), fmt.Sprint(b.Volume))
				}
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "1y", "history range: 1mo, 3mo, 6mo, 1y, 2y, 5y or max")
	return cmd
}
