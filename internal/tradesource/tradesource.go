package tradesource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"posttrade/internal/config"
	"posttrade/internal/model"
)

var csvColumns = []string{"product", "broker", "quantity", "execution_price", "arrival_price"}

// FromConfig converts the configured dataset into trades.
func FromConfig(cfg []config.TradeConfig) []model.Trade {
	trades := make([]model.Trade, 0, len(cfg))
	for _, c := range cfg {
		trades = append(trades, model.Trade{
			Product:        c.Product,
			Broker:         c.Broker,
			Quantity:       c.Quantity,
			ExecutionPrice: c.ExecutionPrice,
			ArrivalPrice:   c.ArrivalPrice,
		})
	}
	return trades
}

// LoadFile reads trades from a .csv, .yaml or .yml file.
func LoadFile(path string) ([]model.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trades file: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(f)
	case ".yaml", ".yml":
		return ReadYAML(f)
	default:
		return nil, fmt.Errorf("unsupported trades file extension: %q", ext)
	}
}

// ReadCSV parses trades from CSV with a header row naming the columns.
func ReadCSV(r io.Reader) ([]model.Trade, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("trades CSV is empty")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("trades CSV is missing columns %q", missing)
	}

	var trades []model.Trade
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)

		var nums [3]float64
		for i, col := range csvColumns[2:] {
			raw := strings.TrimSpace(record[index[col]])
			nums[i], err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, col, raw, err)
			}
		}

		trades = append(trades, model.Trade{
			Product:        strings.TrimSpace(record[index["product"]]),
			Broker:         strings.TrimSpace(record[index["broker"]]),
			Quantity:       nums[0],
			ExecutionPrice: nums[1],
			ArrivalPrice:   nums[2],
		})
	}
	return trades, nil
}

type yamlFile struct {
	Trades []model.Trade `yaml:"trades"`
}

// ReadYAML parses trades from a document holding a top-level trades list.
func ReadYAML(r io.Reader) ([]model.Trade, error) {
	var doc yamlFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("trades YAML is empty")
		}
		return nil, fmt.Errorf("failed to decode trades YAML: %w", err)
	}
	return doc.Trades, nil
}
