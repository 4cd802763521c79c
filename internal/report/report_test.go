package report

import (
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func sampleTable() *Table {
	return NewTable([][]any{
		{"ID", "Amount (₹)", "Amount Paid (₹)", "Status", "Currency", "Reference ID", "Short URL", "Customer Email", "Customer Contact"},
		{"plink_1", 1000.0, 400.0, "created", "INR", "July-001", "https://rzp.io/1", "a@example.com", "+911"},
		{"plink_2", 500.0, 500.0, "paid", "INR", "July-002", "https://rzp.io/2", "b@example.com", "+912"},
		{"plink_3", 800.0, 200.0, "created", "USD", "Aug-003", "https://rzp.io/3", "c@example.com", "+913"},
		{"plink_4", 900.0, 300.0, "expired", "INR", "July-004", "https://rzp.io/4", "d@example.com", "+914"},
		{"plink_5", "700", "100", "created", "INR", "Aug-005", "https://rzp.io/5", "e@example.com", "+915"},
		{"plink_6", "garbage", 0.0, "created", "INR", "July-006", "https://rzp.io/6", "f@example.com", "+916"},
	})
}

func TestResolveColumnsExactNames(t *testing.T) {
	cm, err := ResolveColumns(sampleTable().Header)
	if err != nil {
		t.Fatalf("ResolveColumns failed: %v", err)
	}
	if cm.Amount != 1 || cm.Paid != 2 || cm.Status != 3 || cm.Currency != 4 {
		t.Errorf("Unexpected column map: %+v", cm)
	}
}

func TestResolveColumnsFuzzyFallback(t *testing.T) {
	header := []string{"Link", "Total Amount", "Amount Paid So Far", "Link Status"}
	cm, err := ResolveColumns(header)
	if err != nil {
		t.Fatalf("ResolveColumns failed: %v", err)
	}
	if cm.Amount != 1 {
		t.Errorf("Expected fuzzy amount column 1, got %d", cm.Amount)
	}
	if cm.Paid != 2 {
		t.Errorf("Expected fuzzy paid column 2, got %d", cm.Paid)
	}
	if cm.Status != 3 {
		t.Errorf("Expected fuzzy status column 3, got %d", cm.Status)
	}
	if cm.Currency != -1 {
		t.Errorf("Expected missing currency column, got %d", cm.Currency)
	}
}

func TestResolveColumnsSchemaError(t *testing.T) {
	_, err := ResolveColumns([]string{"ID", "Amount (₹)", "Status"})
	if err == nil {
		t.Fatal("Expected SchemaError for missing paid column")
	}
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %T", err)
	}
	if schemaErr.Role != "amount paid" {
		t.Errorf("Expected role 'amount paid', got %q", schemaErr.Role)
	}
	if !strings.Contains(err.Error(), "Available columns") {
		t.Errorf("Expected error to list available columns, got %q", err.Error())
	}
}

func TestFilterPredicate(t *testing.T) {
	table := sampleTable()
	cm, _ := ResolveColumns(table.Header)

	rows := Filter(table, cm, Policy{Status: "created"})
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = cellAt(row.Cells, cm.ID)
	}
	// plink_2 is fully paid, plink_4 has the wrong status, plink_6 has an
	// unparsable amount.
	want := []string{"plink_1", "plink_3", "plink_5"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Expected %v, got %v", want, ids)
	}

	if rows[0].Due != 600.0 {
		t.Errorf("Expected due 600.0, got %v", rows[0].Due)
	}
}

func TestFilterWithoutStatusClause(t *testing.T) {
	table := sampleTable()
	cm, _ := ResolveColumns(table.Header)

	rows := Filter(table, cm, Policy{})
	// The expired partial payment is now included.
	if len(rows) != 4 {
		t.Errorf("Expected 4 rows without status clause, got %d", len(rows))
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	table := sampleTable()
	cm, _ := ResolveColumns(table.Header)
	policy := Policy{Status: "created"}

	first := Filter(table, cm, policy)

	refiltered := &Table{Header: table.Header}
	for _, row := range first {
		refiltered.Rows = append(refiltered.Rows, row.Cells)
	}
	second := Filter(refiltered, cm, policy)

	if len(first) != len(second) {
		t.Fatalf("Filter not idempotent: %d then %d rows", len(first), len(second))
	}
	for i := range first {
		if !reflect.DeepEqual(first[i].Cells, second[i].Cells) {
			t.Errorf("Row %d changed on refilter", i)
		}
	}
}

func TestSortByDueStable(t *testing.T) {
	rows := []Row{
		{Cells: []any{"a"}, Due: 100},
		{Cells: []any{"b"}, Due: 300},
		{Cells: []any{"c"}, Due: 100},
		{Cells: []any{"d"}, Due: 300},
	}
	SortByDue(rows)

	got := []string{}
	for _, row := range rows {
		got = append(got, row.Cells[0].(string))
	}
	// Descending by due; ties keep input order.
	want := []string{"b", "d", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestAggregateInvariants(t *testing.T) {
	table := sampleTable()
	cm, _ := ResolveColumns(table.Header)
	rows := Filter(table, cm, Policy{Status: "created"})

	s := Aggregate(rows, cm, "July")

	if len(s.ByCurrency) != 2 {
		t.Fatalf("Expected 2 currencies, got %d", len(s.ByCurrency))
	}

	var sumAmount float64
	var sumCount int
	for currency, cs := range s.ByCurrency {
		if cs.Total.Count != cs.Matched.Count+cs.Other.Count {
			t.Errorf("%s: total count %d != matched %d + other %d",
				currency, cs.Total.Count, cs.Matched.Count, cs.Other.Count)
		}
		if math.Abs(cs.Total.Amount-(cs.Matched.Amount+cs.Other.Amount)) > 1e-9 {
			t.Errorf("%s: total amount %v != matched + other", currency, cs.Total.Amount)
		}
		sumAmount += cs.Total.Amount
		sumCount += cs.Total.Count
	}
	if s.Grand.Total.Count != sumCount {
		t.Errorf("Grand total count %d != sum of currency totals %d", s.Grand.Total.Count, sumCount)
	}
	if math.Abs(s.Grand.Total.Amount-sumAmount) > 1e-9 {
		t.Errorf("Grand total amount %v != sum of currency totals %v", s.Grand.Total.Amount, sumAmount)
	}

	// July-001 is INR matched; Aug-005 is INR other; Aug-003 is USD other.
	inr := s.ByCurrency["INR"]
	if inr.Matched.Count != 1 || inr.Other.Count != 1 {
		t.Errorf("Unexpected INR buckets: %+v", inr)
	}
	usd := s.ByCurrency["USD"]
	if usd.Matched.Count != 0 || usd.Other.Count != 1 {
		t.Errorf("Unexpected USD buckets: %+v", usd)
	}
}

func TestAggregateImplicitCurrency(t *testing.T) {
	header := []string{"ID", "Amount (₹)", "Amount Paid (₹)", "Status"}
	table := NewTable([][]any{
		stringsToAny(header),
		{"plink_1", 1000.0, 0.0, "created"},
		{"plink_2", 2000.0, 500.0, "created"},
	})
	cm, err := ResolveColumns(table.Header)
	if err != nil {
		t.Fatalf("ResolveColumns failed: %v", err)
	}
	rows := Filter(table, cm, Policy{Status: "created"})

	s := Aggregate(rows, cm, "July")
	if len(s.ByCurrency) != 1 {
		t.Fatalf("Expected a single implicit currency bucket, got %d", len(s.ByCurrency))
	}
	if _, ok := s.ByCurrency[implicitCurrency]; !ok {
		t.Errorf("Expected implicit bucket %q, got %v", implicitCurrency, s.ByCurrency)
	}
}

func TestBuildReportAndExportCSV(t *testing.T) {
	table := sampleTable()
	cm, _ := ResolveColumns(table.Header)
	rows := Filter(table, cm, Policy{Status: "created"})
	SortByDue(rows)

	header, data := BuildReport(rows, cm)
	if header[0] != "ID" || header[3] != "Due Amount (₹)" {
		t.Errorf("Unexpected report header: %v", header)
	}
	if len(data) != 3 {
		t.Fatalf("Expected 3 report rows, got %d", len(data))
	}
	// Sorted by due descending: plink_1 (600), plink_3/plink_5 (600) ...
	if data[0][3] != 600.0 {
		t.Errorf("Expected top due 600.0, got %v", data[0][3])
	}

	path := filepath.Join(t.TempDir(), "partial_payments.csv")
	if err := ExportCSV(path, header, data); err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open CSV: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0], header) {
		t.Errorf("CSV header mismatch: %v", records[0])
	}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
