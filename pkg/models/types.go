package models

import (
	"time"
)

/*
LOAD → table brute telle que lue depuis un CSV, un XLSX ou une requête SQL.
*/

// RawTable représente un jeu de données tabulaire avant normalisation : des noms de colonnes arbitraires et des cellules texte.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// ColumnMapping associe chaque rôle canonique à une colonne source. Price vide = pas de colonne prix (prix 1).
type ColumnMapping struct {
	Customer string `yaml:"customer" json:"customer"`
	Product  string `yaml:"product" json:"product"`
	Quantity string `yaml:"quantity" json:"quantity"`
	Date     string `yaml:"date" json:"date"`
	Price    string `yaml:"price" json:"price,omitempty"`
}

/*
NORMALIZE → schéma canonique {CustomerID, Product, Quantity, Date, Price}
*/

// Transaction est une ligne d'achat valide après normalisation.
type Transaction struct {
	CustomerID string    `json:"customer_id"`
	Product    string    `json:"product"`
	Quantity   float64   `json:"quantity"`
	Date       time.Time `json:"date"`
	Price      float64   `json:"price"`
}

// Sales = Quantity × Price.
func (t Transaction) Sales() float64 {
	return t.Quantity * t.Price
}

/*
COMPUTE → structures de résultat par composant
*/

// CustomerFeatures contient les totaux agrégés d'un client.
type CustomerFeatures struct {
	CustomerID    string  `json:"customer_id"`
	TotalQuantity float64 `json:"total_quantity"`
	TotalPrice    float64 `json:"total_price"`
}

// SegmentAssignment relie un client à son cluster et au libellé de valeur de ce cluster.
type SegmentAssignment struct {
	CustomerID    string  `json:"customer_id"`
	ClusterID     int     `json:"cluster_id"`
	SegmentLabel  string  `json:"segment"`
	TotalQuantity float64 `json:"total_quantity"`
	TotalPrice    float64 `json:"total_price"`
}

// FrequentItemset : ensemble de produits et part des clients dont le panier le contient.
type FrequentItemset struct {
	Items   []string `json:"items"`
	Support float64  `json:"support"`
}

// AssociationRule : antécédents → conséquents, avec les métriques habituelles.
type AssociationRule struct {
	Antecedents       []string `json:"antecedents"`
	Consequents       []string `json:"consequents"`
	AntecedentSupport float64  `json:"antecedent_support"`
	ConsequentSupport float64  `json:"consequent_support"`
	Support           float64  `json:"support"`
	Confidence        float64  `json:"confidence"`
	Lift              float64  `json:"lift"`
}

// MonthlySales : ventes totales d'un mois calendaire (MonthStart = 1er jour du mois, UTC).
type MonthlySales struct {
	MonthStart time.Time `json:"month"`
	Sales      float64   `json:"sales"`
}

// ForecastPoint : ventes prévues pour un mois futur.
type ForecastPoint struct {
	MonthStart     time.Time `json:"month"`
	PredictedSales float64   `json:"predicted_sales"`
}

/*
CONFIG → paramètres globaux
*/

// Config contient les paramètres d'une exécution du pipeline (fichier YAML, variables d'environnement, flags).
type Config struct {
	Input   string        `yaml:"input"`
	Sheet   string        `yaml:"sheet"`
	DSN     string        `yaml:"dsn"`
	Query   string        `yaml:"query"`
	Columns ColumnMapping `yaml:"columns"`

	Clusters         int     `yaml:"clusters"`           // 0 = min(3, max autorisé)
	MinSupport       float64 `yaml:"min_support"`        // 0.05
	MinConfidence    float64 `yaml:"min_confidence"`     // 0.60
	ForecastHorizon  int     `yaml:"forecast_horizon"`   // 3
	MinHistoryMonths int     `yaml:"min_history_months"` // 6
	Seed             int64   `yaml:"seed"`               // 42

	StartMonthInclusive string `yaml:"start_month"` // "MMYYYY", optionnel
	EndMonthInclusive   string `yaml:"end_month"`   // "MMYYYY", optionnel

	Verbose  bool `yaml:"verbose"`
	Progress bool `yaml:"progress"`
}
