package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"market-insights/pkg/models"
)

// Canonical column names, used by ToRawTable.
const (
	ColCustomerID = "CustomerID"
	ColProduct    = "Product"
	ColQuantity   = "Quantity"
	ColDate       = "Date"
	ColPrice      = "Price"
)

// DefaultPrice is used when no price column is mapped, or when a price cell can't be parsed.
const DefaultPrice = 1.0

var (
	ErrEmptyTable       = errors.New("table has no columns")
	ErrColumnUnresolved = errors.New("required column not mapped")
	ErrUnknownColumn    = errors.New("mapped column not in table")
	ErrNoValidRows      = errors.New("no valid rows after filtering")
)

// Cell values read as missing, compared lowercased.
var missingValues = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"#n/a": true,
	"nan":  true,
	"null": true,
	"none": true,
	"<na>": true,
	"nat":  true,
}

// Accepted date layouts, tried in order. Ambiguous numeric dates are read month first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01-02-2006",
	"02.01.2006",
	"20060102",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// Stats décrit ce que la normalisation a écarté ou complété.
type Stats struct {
	RowsRead       int
	RowsKept       int
	MissingFields  int // client, produit ou quantité manquant/illisible
	BadDates       int
	PriceDefaulted int // cellule prix vide ou illisible → DefaultPrice
}

// RowsDropped = RowsRead - RowsKept.
func (s Stats) RowsDropped() int {
	return s.RowsRead - s.RowsKept
}

// Normalize projette la table brute sur le schéma canonique selon le mapping explicite.
// Les lignes sans client, produit, quantité ou date valide sont écartées. Price est toujours renseigné.
func Normalize(raw models.RawTable, mapping models.ColumnMapping) ([]models.Transaction, Stats, error) {
	var stats Stats
	if len(raw.Columns) == 0 {
		return nil, stats, ErrEmptyTable
	}

	index := make(map[string]int, len(raw.Columns))
	for i, c := range raw.Columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	lookup := func(role Role, col string, required bool) (int, error) {
		if col == "" {
			if required {
				return -1, fmt.Errorf("%w: %s", ErrColumnUnresolved, role)
			}
			return -1, nil
		}
		i, ok := index[col]
		if !ok {
			return -1, fmt.Errorf("%w: %s=%q", ErrUnknownColumn, role, col)
		}
		return i, nil
	}

	custIdx, err := lookup(RoleCustomer, mapping.Customer, true)
	if err != nil {
		return nil, stats, err
	}
	prodIdx, err := lookup(RoleProduct, mapping.Product, true)
	if err != nil {
		return nil, stats, err
	}
	qtyIdx, err := lookup(RoleQuantity, mapping.Quantity, true)
	if err != nil {
		return nil, stats, err
	}
	dateIdx, err := lookup(RoleDate, mapping.Date, true)
	if err != nil {
		return nil, stats, err
	}
	priceIdx, err := lookup(RolePrice, mapping.Price, false)
	if err != nil {
		return nil, stats, err
	}

	out := make([]models.Transaction, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		stats.RowsRead++

		customer, okC := cell(row, custIdx)
		product, okP := cell(row, prodIdx)
		qtyText, okQ := cell(row, qtyIdx)
		if !okC || !okP || !okQ {
			stats.MissingFields++
			continue
		}
		qty, ok := ParseNumber(qtyText)
		if !ok {
			stats.MissingFields++
			continue
		}
		dateText, _ := cell(row, dateIdx)
		date, ok := ParseDate(dateText)
		if !ok {
			stats.BadDates++
			continue
		}

		price := DefaultPrice
		if priceIdx >= 0 {
			text, present := cell(row, priceIdx)
			p, parsed := ParseNumber(text)
			if present && parsed {
				price = p
			} else {
				stats.PriceDefaulted++
			}
		}

		out = append(out, models.Transaction{
			CustomerID: customer,
			Product:    product,
			Quantity:   qty,
			Date:       date,
			Price:      price,
		})
	}
	stats.RowsKept = len(out)

	if len(out) == 0 {
		return nil, stats, fmt.Errorf("%w: %d rows read", ErrNoValidRows, stats.RowsRead)
	}
	return out, stats, nil
}

// ToRawTable réécrit des transactions sous forme de table canonique.
// Normalize(ToRawTable(tx), CanonicalMapping()) redonne tx.
func ToRawTable(tx []models.Transaction) models.RawTable {
	t := models.RawTable{
		Columns: []string{ColCustomerID, ColProduct, ColQuantity, ColDate, ColPrice},
		Rows:    make([][]string, 0, len(tx)),
	}
	for _, r := range tx {
		t.Rows = append(t.Rows, []string{
			r.CustomerID,
			r.Product,
			strconv.FormatFloat(r.Quantity, 'g', -1, 64),
			r.Date.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(r.Price, 'g', -1, 64),
		})
	}
	return t
}

// CanonicalMapping est le mapping identité sur les colonnes canoniques.
func CanonicalMapping() models.ColumnMapping {
	return models.ColumnMapping{
		Customer: ColCustomerID,
		Product:  ColProduct,
		Quantity: ColQuantity,
		Date:     ColDate,
		Price:    ColPrice,
	}
}

// groupes de milliers à virgule : "1,234" ou "-12,345,678.9"
var thousandsRe = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// ParseNumber lit un nombre, en tolérant un symbole monétaire en tête et les séparateurs de milliers ",".
// Toute autre virgule ("1,5") rend la valeur illisible.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return 0, false
	}
	s = strings.TrimLeft(s, "$€£")
	if strings.Contains(s, ",") {
		if !thousandsRe.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseDate lit une date avec le premier layout qui convient. Résultat en UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func cell(row []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[idx])
	if isMissing(v) {
		return "", false
	}
	return v, true
}

func isMissing(s string) bool {
	return missingValues[strings.ToLower(s)]
}
