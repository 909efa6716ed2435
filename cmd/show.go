package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/smartcharge/config"
	"github.com/kilianp07/smartcharge/core/model"
	"github.com/kilianp07/smartcharge/core/pricing"
	"github.com/kilianp07/smartcharge/core/state"
	"github.com/kilianp07/smartcharge/infra/chart"
	"github.com/kilianp07/smartcharge/infra/logger"
	"github.com/kilianp07/smartcharge/infra/pricefeed"
	"github.com/kilianp07/smartcharge/infra/store"
)

var (
	outputFormat string
	chartOut     string
)

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored charge plan",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return withStore(cfg, func(st *state.Store) error {
			plan, ok := st.Plan(cmd.Context())
			if !ok {
				return errors.New("no plan stored")
			}
			return writePlan(cmd.OutOrStdout(), plan, outputFormat)
		})
	},
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Inspect spot prices",
}

var pricesChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render today's and tomorrow's prices with the stored plan as HTML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loc := cfg.Location.Load()
		catalog := pricing.NewCatalog(pricefeed.New(cfg.Pricing.Feed, loc), cfg.Pricing.Fallback(), logger.New("pricing"))
		now := time.Now().In(loc)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		prices := catalog.Prices(cmd.Context(), today, today.AddDate(0, 0, 1))

		return withStore(cfg, func(st *state.Store) error {
			plan, _ := st.Plan(cmd.Context())
			html, err := chart.PriceChartHTML(prices, plan, loc)
			if err != nil {
				return err
			}
			if chartOut == "" || chartOut == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), html)
				return err
			}
			return os.WriteFile(chartOut, []byte(html), 0o644)
		})
	},
}

func init() {
	planShowCmd.Flags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
	planCmd.AddCommand(planShowCmd)
	pricesChartCmd.Flags().StringVarP(&chartOut, "out", "o", "prices.html", "output file, - for stdout")
	pricesCmd.AddCommand(pricesChartCmd)
	rootCmd.AddCommand(pricesCmd)
}

func withStore(cfg *config.Config, fn func(*state.Store) error) error {
	backend, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer backend.Close()
	return fn(state.New(backend, logger.New("state")))
}

func writePlan(w io.Writer, plan model.ChargePlan, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
