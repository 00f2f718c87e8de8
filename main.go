package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"market-insights/pkg/config"
	"market-insights/pkg/database"
	"market-insights/pkg/ingest"
	"market-insights/pkg/logging"
	"market-insights/pkg/models"
	"market-insights/pkg/normalize"
)

var (
	logger *zap.Logger

	configPath string
	verbose    bool
	noPrice    bool
	table      string

	flagCfg models.Config
)

var rootCmd = &cobra.Command{
	Use:   "market-insights",
	Short: "Segmentation clients, recommandations panier et prévision des ventes à partir de transactions",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "fichier YAML (défaut: $MI_CONFIG ou config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "logs debug")
	pf.StringVarP(&flagCfg.Input, "input", "i", "", "fichier CSV ou XLSX de transactions")
	pf.StringVar(&flagCfg.Sheet, "sheet", "", "feuille XLSX (défaut: première)")
	pf.StringVar(&flagCfg.DSN, "dsn", "", "DSN mysql://, mariadb://, sqlite:// ou fichier .db")
	pf.StringVar(&flagCfg.Query, "query", "", "requête SQL renvoyant les transactions")
	pf.StringVar(&table, "table", "", "table SQL à lire entièrement (au lieu de --query)")
	pf.StringVar(&flagCfg.Columns.Customer, "customer-col", "", "colonne client")
	pf.StringVar(&flagCfg.Columns.Product, "product-col", "", "colonne produit")
	pf.StringVar(&flagCfg.Columns.Quantity, "quantity-col", "", "colonne quantité")
	pf.StringVar(&flagCfg.Columns.Date, "date-col", "", "colonne date")
	pf.StringVar(&flagCfg.Columns.Price, "price-col", "", "colonne prix unitaire")
	pf.BoolVar(&noPrice, "no-price", false, "ignorer toute colonne prix (prix = 1)")

	rootCmd.AddCommand(suggestCmd, analyzeCmd, recommendCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig : fichier + env, puis les flags explicitement passés.
func loadConfig(cmd *cobra.Command) (models.Config, error) {
	cfg, loaded, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if loaded != "" {
		logger.Info("config chargée", zap.String("path", loaded))
	}

	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("input", &cfg.Input, flagCfg.Input)
	set("sheet", &cfg.Sheet, flagCfg.Sheet)
	set("dsn", &cfg.DSN, flagCfg.DSN)
	set("query", &cfg.Query, flagCfg.Query)
	set("customer-col", &cfg.Columns.Customer, flagCfg.Columns.Customer)
	set("product-col", &cfg.Columns.Product, flagCfg.Columns.Product)
	set("quantity-col", &cfg.Columns.Quantity, flagCfg.Columns.Quantity)
	set("date-col", &cfg.Columns.Date, flagCfg.Columns.Date)
	set("price-col", &cfg.Columns.Price, flagCfg.Columns.Price)
	set("start-month", &cfg.StartMonthInclusive, flagCfg.StartMonthInclusive)
	set("end-month", &cfg.EndMonthInclusive, flagCfg.EndMonthInclusive)
	if flags.Changed("clusters") {
		cfg.Clusters = flagCfg.Clusters
	}
	if flags.Changed("min-support") {
		cfg.MinSupport = flagCfg.MinSupport
	}
	if flags.Changed("min-confidence") {
		cfg.MinConfidence = flagCfg.MinConfidence
	}
	if flags.Changed("horizon") {
		cfg.ForecastHorizon = flagCfg.ForecastHorizon
	}
	if flags.Changed("progress") {
		cfg.Progress = flagCfg.Progress
	}
	if verbose {
		cfg.Verbose = true
	}
	if noPrice {
		cfg.Columns.Price = ""
	}
	return cfg, nil
}

// loadRaw lit la table brute depuis le fichier ou la base configurés.
func loadRaw(ctx context.Context, cfg models.Config) (models.RawTable, error) {
	switch {
	case cfg.Input != "":
		logger.Debug("lecture fichier", zap.String("input", cfg.Input))
		return ingest.LoadFile(cfg.Input, cfg.Sheet)
	case cfg.DSN != "":
		db, driver, _, err := database.Open(cfg.DSN)
		if err != nil {
			return models.RawTable{}, fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		logger.Info("connected", zap.String("driver", driver))

		query := cfg.Query
		if query == "" {
			if table == "" {
				return models.RawTable{}, fmt.Errorf("--query ou --table requis avec --dsn")
			}
			if query, err = database.TableQuery(table); err != nil {
				return models.RawTable{}, err
			}
		}
		return database.LoadTable(ctx, db, query)
	default:
		return models.RawTable{}, fmt.Errorf("aucune source: --input ou --dsn requis")
	}
}

// resolveColumns complète les colonnes non choisies par les suggestions et journalise chaque suggestion retenue.
func resolveColumns(cfg models.Config, raw models.RawTable) models.ColumnMapping {
	mapping, filled := normalize.ResolveMapping(cfg.Columns, raw.Columns, !noPrice)
	for _, role := range filled {
		logger.Info("colonne suggérée", zap.String("role", string(role)), zap.String("column", columnFor(mapping, role)))
	}
	if mapping.Price == "" {
		logger.Info("pas de colonne prix: prix unitaire = 1")
	}
	return mapping
}

func columnFor(m models.ColumnMapping, role normalize.Role) string {
	switch role {
	case normalize.RoleCustomer:
		return m.Customer
	case normalize.RoleProduct:
		return m.Product
	case normalize.RoleQuantity:
		return m.Quantity
	case normalize.RoleDate:
		return m.Date
	case normalize.RolePrice:
		return m.Price
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
