package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSalesCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("OrderDate,ClientID,Item,Qty,UnitPrice,City\n")
	for c := 0; c < 10; c++ {
		for m := 1; m <= 7; m++ {
			fmt.Fprintf(&b, "2024-%02d-%02d,%d,coffee,%d,%d.5,Paris\n", m, c+1, c, c%3+1, c+m)
			fmt.Fprintf(&b, "2024-%02d-%02d,%d,milk,1,1.2,Paris\n", m, c+1, c)
		}
	}
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// run exécute la commande racine avec des flags remis à zéro et renvoie la sortie standard.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, fs := range []*pflag.FlagSet{rootCmd.PersistentFlags(), analyzeCmd.Flags(), recommendCmd.Flags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil) })
	args = append(args, "--config", filepath.Join(t.TempDir(), "none.yaml"))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func lines(out string) []string {
	return strings.Split(strings.TrimSpace(out), "\n")
}

func withPrefix(out, prefix string) []string {
	var got []string
	for _, l := range lines(out) {
		if strings.HasPrefix(l, prefix) {
			got = append(got, l)
		}
	}
	return got
}

func TestAnalyzeCommand_Text(t *testing.T) {
	out, err := run(t, "analyze", "--input", writeSalesCSV(t))
	require.NoError(t, err)

	assert.Len(t, withPrefix(out, "run ; "), 1)
	require.Len(t, withPrefix(out, "overview ; "), 1)
	assert.True(t, strings.HasPrefix(withPrefix(out, "overview ; ")[0],
		"overview ; transactions=140 ; customers=10 ; products=2 ;"), out)

	assert.Len(t, withPrefix(out, "segment ; "), 3)
	assert.Len(t, withPrefix(out, "customer ; "), 10)
	assert.Contains(t, lines(out), "rule ; {coffee} -> {milk} ; support=1.0000 ; confidence=1.0000 ; lift=1.0000")

	sales := withPrefix(out, "sales ; ")
	require.Len(t, sales, 7)
	assert.True(t, strings.HasPrefix(sales[0], "sales ; 01/2024 ; "), sales[0])
	assert.True(t, strings.HasPrefix(sales[6], "sales ; 07/2024 ; "), sales[6])
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	out, err := run(t, "analyze", "--input", writeSalesCSV(t), "--json", "-k", "2")
	require.NoError(t, err)

	var report struct {
		RunID    string `json:"run_id"`
		Overview struct {
			Customers int `json:"customers"`
		} `json:"overview"`
		Segmentation struct {
			K int `json:"k"`
		} `json:"segmentation"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 10, report.Overview.Customers)
	assert.Equal(t, 2, report.Segmentation.K)
}

func TestRecommendCommand(t *testing.T) {
	path := writeSalesCSV(t)

	out, err := run(t, "recommend", "--input", path, "--products", "coffee")
	require.NoError(t, err)
	assert.Equal(t, []string{"purchased ; coffee", "recommended ; milk"}, lines(out))

	out, err = run(t, "recommend", "--input", path, "--customer", "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"purchased ; coffee, milk", "recommended ; -"}, lines(out))

	_, err = run(t, "recommend", "--input", path, "--customer", "42")
	assert.Error(t, err)
}

func TestRecommendCommand_NeedsExactlyOneTarget(t *testing.T) {
	path := writeSalesCSV(t)
	_, err := run(t, "recommend", "--input", path)
	assert.Error(t, err)
	_, err = run(t, "recommend", "--input", path, "--customer", "3", "--products", "milk")
	assert.Error(t, err)
}

func TestSuggestCommand(t *testing.T) {
	out, err := run(t, "suggest", "--input", writeSalesCSV(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"customer ; ClientID",
		"product ; Item",
		"quantity ; Qty",
		"date ; OrderDate",
		"price ; UnitPrice",
	}, lines(out))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitList(" a, ,b c,"))
	assert.Empty(t, splitList(""))
}
