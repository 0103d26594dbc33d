package tradesource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"posttrade/internal/config"
	"posttrade/internal/model"
)

func TestFromConfig(t *testing.T) {
	trades := FromConfig(config.DefaultTrades())

	require.Len(t, trades, 3)
	assert.Equal(t, model.Trade{Product: "LVMH", Broker: "BNP", Quantity: 5000, ExecutionPrice: 596.70, ArrivalPrice: 593.50}, trades[0])
	assert.Equal(t, "MS", trades[2].Broker)
}

func TestReadCSV(t *testing.T) {
	input := `Broker,Product,Quantity,Execution_Price,Arrival_Price
BNP,LVMH,5000,596.70,593.50
JPM,E-Mini S&P 500 Mar 26, 2000, 6949.50, 6945.00
`
	trades, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.Equal(t, model.Trade{Product: "LVMH", Broker: "BNP", Quantity: 5000, ExecutionPrice: 596.70, ArrivalPrice: 593.50}, trades[0])
	assert.Equal(t, "E-Mini S&P 500 Mar 26", trades[1].Product)
	assert.Equal(t, 6949.50, trades[1].ExecutionPrice)
}

func TestReadCSV_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader(""))
		assert.Error(t, err)
	})

	t.Run("missing columns are all reported", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("product,broker,quantity\nA,B,1\n"))
		assert.EqualError(t, err, `trades CSV is missing columns ["execution_price" "arrival_price"]`)
	})

	t.Run("single missing column", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("product,broker,quantity,execution_price\nA,B,1,2\n"))
		assert.EqualError(t, err, `trades CSV is missing columns ["arrival_price"]`)
	})

	t.Run("bad number names the line", func(t *testing.T) {
		input := "product,broker,quantity,execution_price,arrival_price\nA,B,1,2,3\nA,B,x,2,3\n"
		_, err := ReadCSV(strings.NewReader(input))
		assert.ErrorContains(t, err, "line 3")
		assert.ErrorContains(t, err, "quantity")
	})
}

func TestReadYAML(t *testing.T) {
	input := `
trades:
  - product: LVMH
    broker: BNP
    quantity: 5000
    execution_price: 596.70
    arrival_price: 593.50
`
	trades, err := ReadYAML(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []model.Trade{{Product: "LVMH", Broker: "BNP", Quantity: 5000, ExecutionPrice: 596.70, ArrivalPrice: 593.50}}, trades)

	_, err = ReadYAML(strings.NewReader("trades:\n  - product: A\n    price: 1\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "day.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("product,broker,quantity,execution_price,arrival_price\nA,B,1,2,3\n"), 0o644))
	trades, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	ymlPath := filepath.Join(dir, "day.yml")
	require.NoError(t, os.WriteFile(ymlPath, []byte("trades:\n  - {product: A, broker: B, quantity: 1, execution_price: 2, arrival_price: 3}\n"), 0o644))
	trades, err = LoadFile(ymlPath)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	txtPath := filepath.Join(dir, "day.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = LoadFile(txtPath)
	assert.ErrorContains(t, err, "unsupported")

	_, err = LoadFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
