package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"market-insights/pkg/basket"
	"market-insights/pkg/forecast"
	"market-insights/pkg/normalize"
	"market-insights/pkg/pipeline"
)

var (
	jsonOut     bool
	customerArg string
	productsArg string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Affiche les colonnes suggérées pour chaque rôle",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		raw, err := loadRaw(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, role := range []normalize.Role{normalize.RoleCustomer, normalize.RoleProduct, normalize.RoleQuantity, normalize.RoleDate, normalize.RolePrice} {
			col, ok := normalize.SuggestColumn(raw.Columns, role)
			if !ok {
				col = "-"
			}
			fmt.Fprintf(out, "%s ; %s\n", role, col)
		}
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Segmentation, règles d'association et prévision sur un jeu de transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if jsonOut {
			cfg.Progress = false
		}
		raw, err := loadRaw(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		tx, stats, err := pipeline.Prepare(raw, resolveColumns(cfg, raw), logger)
		if err != nil {
			return err
		}
		report, err := pipeline.Run(cmd.Context(), tx, cfg, logger)
		if err != nil {
			return fmt.Errorf("compute: %w", err)
		}
		report.Normalize = stats

		if jsonOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommandations pour un client (--customer) ou une liste de produits (--products)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (customerArg == "") == (productsArg == "") {
			return fmt.Errorf("exactement un de --customer ou --products")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		raw, err := loadRaw(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		tx, _, err := pipeline.Prepare(raw, resolveColumns(cfg, raw), logger)
		if err != nil {
			return err
		}
		model, err := basket.Build(tx, basket.Options{MinSupport: cfg.MinSupport, MinConfidence: cfg.MinConfidence})
		if err != nil {
			return err
		}
		logger.Debug("basket model", zap.Int("itemsets", len(model.Itemsets())), zap.Int("rules", len(model.Rules())))

		purchased := splitList(productsArg)
		rec := model.Recommend(purchased)
		if customerArg != "" {
			var ok bool
			purchased, rec, ok = model.RecommendFor(customerArg)
			if !ok {
				return fmt.Errorf("client inconnu: %s", customerArg)
			}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "purchased ; %s\n", strings.Join(purchased, ", "))
		if len(rec) == 0 {
			fmt.Fprintln(out, "recommended ; -")
			return nil
		}
		fmt.Fprintf(out, "recommended ; %s\n", strings.Join(rec, ", "))
		return nil
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.IntVarP(&flagCfg.Clusters, "clusters", "k", 0, "nombre de segments (2..8, défaut min(3, clients))")
	f.Float64Var(&flagCfg.MinSupport, "min-support", basket.DefaultMinSupport, "support minimal des itemsets")
	f.Float64Var(&flagCfg.MinConfidence, "min-confidence", basket.DefaultMinConfidence, "confiance minimale des règles")
	f.IntVar(&flagCfg.ForecastHorizon, "horizon", forecast.DefaultHorizon, "mois à prévoir")
	f.StringVar(&flagCfg.StartMonthInclusive, "start-month", "", "premier mois inclus (MMYYYY)")
	f.StringVar(&flagCfg.EndMonthInclusive, "end-month", "", "dernier mois inclus (MMYYYY)")
	f.BoolVar(&flagCfg.Progress, "progress", false, "barre de progression (stderr)")
	f.BoolVar(&jsonOut, "json", false, "sortie JSON")

	r := recommendCmd.Flags()
	r.StringVar(&customerArg, "customer", "", "identifiant client")
	r.StringVar(&productsArg, "products", "", "produits achetés, séparés par des virgules")
	r.Float64Var(&flagCfg.MinSupport, "min-support", basket.DefaultMinSupport, "support minimal des itemsets")
	r.Float64Var(&flagCfg.MinConfidence, "min-confidence", basket.DefaultMinConfidence, "confiance minimale des règles")
}

// Sortie texte : une ligne par élément, champs séparés par " ; ".
func printReport(w io.Writer, r *pipeline.Report) {
	ov := r.Overview
	fmt.Fprintf(w, "run ; %s\n", r.RunID)
	fmt.Fprintf(w, "overview ; transactions=%d ; customers=%d ; products=%d ; sales=%.2f ; dropped_rows=%d\n",
		ov.Transactions, ov.Customers, ov.Products, ov.TotalSales, r.Normalize.RowsDropped())

	if s := r.Segmentation; s != nil {
		for _, c := range s.Clusters {
			fmt.Fprintf(w, "segment ; %s ; members=%d ; mean_spend=%.2f\n", c.Label, c.Members, c.MeanTotalPrice)
		}
		for _, a := range s.Assignments {
			fmt.Fprintf(w, "customer ; %s ; %s ; qty=%.2f ; spend=%.2f\n", a.CustomerID, a.SegmentLabel, a.TotalQuantity, a.TotalPrice)
		}
	}

	if b := r.Basket; b != nil {
		if len(b.Rules) == 0 {
			fmt.Fprintln(w, "rules ; none")
		}
		for _, rule := range b.Rules {
			fmt.Fprintf(w, "rule ; {%s} -> {%s} ; support=%.4f ; confidence=%.4f ; lift=%.4f\n",
				strings.Join(rule.Antecedents, ", "), strings.Join(rule.Consequents, ", "),
				rule.Support, rule.Confidence, rule.Lift)
		}
	}

	if f := r.Forecast; f != nil {
		for _, m := range f.History {
			fmt.Fprintf(w, "sales ; %s ; %.2f\n", forecast.FormatMonth(m.MonthStart), m.Sales)
		}
		for _, p := range f.Points {
			fmt.Fprintf(w, "forecast ; %s ; %.2f\n", forecast.FormatMonth(p.MonthStart), p.PredictedSales)
		}
	}

	for _, e := range r.Errors {
		fmt.Fprintf(w, "error ; %s ; %s ; %s\n", e.Stage, e.Kind, e.Message)
	}
}
