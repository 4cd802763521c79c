package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Table is a raw grid as read from a sheet: header at index 0, data after.
type Table struct {
	Header []string
	Rows   [][]any
}

// NewTable splits a values grid into header and data rows.
func NewTable(values [][]any) *Table {
	if len(values) == 0 {
		return &Table{}
	}
	header := make([]string, len(values[0]))
	for i, cell := range values[0] {
		header[i] = cellString(cell)
	}
	return &Table{Header: header, Rows: values[1:]}
}

// Policy selects the filter predicate. Status empty means amounts alone
// decide; non-empty adds the status clause. The two historical versions of
// this report disagreed on the clause, so the caller must be explicit.
type Policy struct {
	Status string
}

// Row is one partial payment: the source cells plus the resolved numeric
// fields and the derived due amount.
type Row struct {
	Cells    []any
	Amount   float64
	Paid     float64
	Due      float64
	Status   string
	Currency string
}

// Filter keeps the rows where the amount paid is strictly less than the
// amount, subject to the policy's status clause. Rows whose amount fields do
// not parse as numbers are excluded. The result is a pure refinement of the
// input and applying the same filter again is a no-op.
func Filter(t *Table, cm *ColumnMap, policy Policy) []Row {
	var out []Row
	for _, cells := range t.Rows {
		amount, ok := numericCell(cells, cm.Amount)
		if !ok {
			continue
		}
		paid, ok := numericCell(cells, cm.Paid)
		if !ok {
			continue
		}
		if paid >= amount {
			continue
		}
		status := cellAt(cells, cm.Status)
		if policy.Status != "" && status != policy.Status {
			continue
		}
		out = append(out, Row{
			Cells:    cells,
			Amount:   amount,
			Paid:     paid,
			Due:      amount - paid,
			Status:   status,
			Currency: cellAt(cells, cm.Currency),
		})
	}

	log.Info().
		Int("input_rows", len(t.Rows)).
		Int("partial_payments", len(out)).
		Str("status_clause", policy.Status).
		Msg("Filtered partial payments")
	return out
}

// SortByDue orders rows by due amount, highest first. The sort is stable:
// equal dues keep their input order.
func SortByDue(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Due > rows[j].Due
	})
}

// exportRoles lists the report columns in output order. Roles absent from the
// source header are dropped from the export, mirroring the sync header subset.
var exportRoles = []struct {
	name  string
	index func(cm *ColumnMap) int
}{
	{"ID", func(cm *ColumnMap) int { return cm.ID }},
	{amountHeader, func(cm *ColumnMap) int { return cm.Amount }},
	{paidHeader, func(cm *ColumnMap) int { return cm.Paid }},
	{"Due Amount (₹)", func(cm *ColumnMap) int { return -2 }}, // derived
	{statusHeader, func(cm *ColumnMap) int { return cm.Status }},
	{"Short URL", func(cm *ColumnMap) int { return cm.ShortURL }},
	{"Reference ID", func(cm *ColumnMap) int { return cm.Reference }},
	{"Customer Email", func(cm *ColumnMap) int { return cm.Email }},
	{"Customer Contact", func(cm *ColumnMap) int { return cm.Contact }},
}

// BuildReport projects filtered rows onto the report column subset, with the
// derived due column in place.
func BuildReport(rows []Row, cm *ColumnMap) (header []string, data [][]any) {
	type col struct {
		name  string
		index int
	}
	var cols []col
	for _, role := range exportRoles {
		idx := role.index(cm)
		if idx == -1 {
			continue
		}
		cols = append(cols, col{name: role.name, index: idx})
		header = append(header, role.name)
	}

	data = make([][]any, 0, len(rows))
	for _, row := range rows {
		out := make([]any, 0, len(cols))
		for _, c := range cols {
			switch c.index {
			case -2:
				out = append(out, row.Due)
			default:
				out = append(out, cellAt(row.Cells, c.index))
			}
		}
		data = append(data, out)
	}
	return header, data
}

// TotalDue sums the due amounts of the filtered rows.
func TotalDue(rows []Row) float64 {
	var total float64
	for _, row := range rows {
		total += row.Due
	}
	return total
}

func cellAt(cells []any, index int) string {
	if index < 0 || index >= len(cells) {
		return ""
	}
	return cellString(cells[index])
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// numericCell coerces a sheet cell to a float. Sheets return either numbers
// or their string renderings depending on the value render option.
func numericCell(cells []any, index int) (float64, bool) {
	if index < 0 || index >= len(cells) {
		return 0, false
	}
	switch v := cells[index].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
