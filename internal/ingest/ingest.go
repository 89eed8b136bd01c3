// Package ingest parses inventory snapshots from CSV.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// Column headers recognized in inventory CSV files.
const (
	ColRisk        = "Risk"
	ColFluctuation = "Demand fluctuation"
	ColAvgStock    = "Average stock"
	ColDailyUsage  = "Daily usage"
	ColUnitCost    = "Unit cost"
	ColLeadTime    = "Lead time"
	ColConsignment = "Consignment stock"
	ColUnitSize    = "Unit size"
)

// requiredColumns lists every header an inventory file must carry.
var requiredColumns = []string{
	ColRisk, ColFluctuation, ColAvgStock, ColDailyUsage,
	ColUnitCost, ColLeadTime, ColConsignment, ColUnitSize,
}

// Result summarizes one parsed import.
type Result struct {
	Items []*domain.Item `json:"-"`

	// Total is the number of data rows read, Imported the number kept,
	// Skipped the number of all-empty rows dropped.
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Parse reads an inventory CSV and returns the items it contains.
// Items are numbered 1..n over the kept rows, in file order; rows whose
// mapped cells are all empty are dropped. Numeric cells that fail to
// parse read as zero, matching the mapping stage's treatment of unknown
// labels. Extra columns are ignored.
func Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	// Map of column name to index
	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := colMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv is missing columns: %s", strings.Join(missing, ", "))
	}

	result := &Result{}
	nextID := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", result.Total+2, err)
		}

		result.Total++

		if rowEmpty(record, colMap) {
			result.Skipped++
			continue
		}

		item := &domain.Item{
			ID:                nextID,
			Risk:              cell(record, colMap[ColRisk]),
			DemandFluctuation: cell(record, colMap[ColFluctuation]),
			AverageStock:      parseFloat(cell(record, colMap[ColAvgStock])),
			DailyUsage:        parseFloat(cell(record, colMap[ColDailyUsage])),
			UnitCost:          parseFloat(cell(record, colMap[ColUnitCost])),
			LeadTime:          parseInt(cell(record, colMap[ColLeadTime])),
			ConsignmentStock:  cell(record, colMap[ColConsignment]),
			UnitSize:          cell(record, colMap[ColUnitSize]),
		}

		result.Items = append(result.Items, item)
		result.Imported++
		nextID++
	}

	return result, nil
}

// rowEmpty reports whether every mapped cell of the row is blank.
func rowEmpty(record []string, colMap map[string]int) bool {
	for _, col := range requiredColumns {
		if cell(record, colMap[col]) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed value at idx, or "" when the row is too short.
func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Lead times sometimes arrive as decimals; truncate them.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return v
}
