package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffCustomerID, Product ,Quantity,Date\n" +
		"1,apple,2,2024-01-01\n" +
		"2,\"pear, green\",1,2024-01-02\n" +
		"3,plum\n"
	table, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"CustomerID", "Product", "Quantity", "Date"}, table.Columns)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "pear, green", table.Rows[1][1])
	assert.Equal(t, []string{"3", "plum"}, table.Rows[2])
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadFile_CSVAndUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tx.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	table, err := LoadFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Columns)
	assert.Len(t, table.Rows, 1)

	_, err = LoadFile(filepath.Join(dir, "tx.parquet"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Client", "Item", "Qty", "OrderDate", "Price"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"C1", "apple", 3, "2024-05-01", 2.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"C2", "pear", 1, "2024-05-02", 4}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := LoadFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Client", "Item", "Qty", "OrderDate", "Price"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"C1", "apple", "3", "2024-05-01", "2.5"}, table.Rows[0])

	_, err = ReadXLSX(path, "Missing")
	assert.Error(t, err)
}
