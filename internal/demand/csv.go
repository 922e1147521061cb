package demand

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/operato/eoq-planner/pkg/constants"
)

// Column headers expected in sales history exports. Matching is
// case-insensitive and ignores surrounding whitespace.
const (
	columnDate            = "date"
	columnStoreID         = "store id"
	columnPrice           = "price"
	columnPromotions      = "promotions"
	columnSeasonality     = "seasonality factors"
	columnExternalFactors = "external factors"
	columnCustomerSegment = "customer segments"
	columnSalesQuantity   = "sales quantity"
)

// LoadCSV reads a sales history CSV with a header row into Records. The
// date, price, and sales quantity columns are required; missing categorical
// columns degrade to empty factors rather than failing, so partial exports
// still estimate via the mean fallback.
func LoadCSV(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sales history: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV parses sales history records from an open reader.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{columnDate, columnPrice, columnSalesQuantity} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("sales history is missing required column %q", required)
		}
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		line++

		record, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("sales history contains no data rows")
	}
	return records, nil
}

func parseRow(row []string, index map[string]int) (Record, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := time.Parse(constants.DateTimeLayout, field(columnDate))
	if err != nil {
		return Record{}, fmt.Errorf("invalid date %q: %w", field(columnDate), err)
	}
	price, err := strconv.ParseFloat(field(columnPrice), 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid price %q: %w", field(columnPrice), err)
	}
	quantity, err := strconv.ParseFloat(field(columnSalesQuantity), 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid sales quantity %q: %w", field(columnSalesQuantity), err)
	}
	if quantity < 0 {
		return Record{}, fmt.Errorf("sales quantity cannot be negative, got %v", quantity)
	}

	return Record{
		Date:            date,
		StoreID:         field(columnStoreID),
		Price:           price,
		Promotions:      field(columnPromotions),
		Seasonality:     field(columnSeasonality),
		ExternalFactors: field(columnExternalFactors),
		CustomerSegment: field(columnCustomerSegment),
		SalesQuantity:   quantity,
	}, nil
}
