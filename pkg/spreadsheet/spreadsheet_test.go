package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "product_name", NormalizeHeader("  Product Name "))
	assert.Equal(t, "price_per_unit", NormalizeHeader("PRICE  per\tunit"))
	assert.Equal(t, "units", NormalizeHeader("units"))
}

func TestWriteThenParse(t *testing.T) {
	body, err := Write("Inventory",
		[]string{"Product Name", "Price Per Unit", "Description", "Units"},
		[][]interface{}{
			{"Widget", 9.99, "Blue widget", 3},
			{},
			{"Gadget", "4.50", "", 12},
		})
	require.NoError(t, err)

	sheet, err := Parse(bytes.NewReader(body))
	require.NoError(t, err)

	assert.Equal(t, []string{"product_name", "price_per_unit", "description", "units"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, Row{"product_name": "Widget", "price_per_unit": "9.99", "description": "Blue widget", "units": "3"}, sheet.Rows[0])
	assert.Equal(t, "", sheet.Rows[1]["description"])
	assert.Equal(t, "12", sheet.Rows[1]["units"])
	assert.Empty(t, sheet.Missing("product_name", "price_per_unit", "description", "units"))
}

func TestMissingColumns(t *testing.T) {
	body, err := Write("", []string{"product_name", "units"}, nil)
	require.NoError(t, err)

	sheet, err := Parse(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Empty(t, sheet.Rows)
	assert.Equal(t, []string{"price_per_unit", "description"},
		sheet.Missing("product_name", "price_per_unit", "description", "units"))
}

func TestRenameAliases(t *testing.T) {
	sheet := &Sheet{
		Headers: []string{"nombre", "units", "unidades"},
		Rows:    []Row{{"nombre": "Widget", "units": "3", "unidades": "7"}},
	}
	sheet.Rename(map[string]string{"nombre": "product_name", "unidades": "units"})

	assert.Equal(t, []string{"product_name", "units", "unidades"}, sheet.Headers)
	assert.Equal(t, Row{"product_name": "Widget", "units": "3", "unidades": "7"}, sheet.Rows[0])
	assert.Empty(t, sheet.Missing("product_name", "units"))
}

func TestParseRejectsNonWorkbook(t *testing.T) {
	_, err := Parse(strings.NewReader("product_name,units\nWidget,3\n"))
	assert.Error(t, err)
}
