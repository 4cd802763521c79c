package report

import (
	"fmt"
	"strings"
)

// SchemaError reports a semantic column that could not be resolved against the
// table header, even fuzzily. Filtering never proceeds without the amount,
// paid and status roles.
type SchemaError struct {
	Role      string
	Available []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("could not find %s column in the sheet. Available columns: %s",
		e.Role, strings.Join(e.Available, ", "))
}

// ColumnMap fixes every semantic role to a header index before any filtering
// logic runs. Optional roles are -1 when absent.
type ColumnMap struct {
	Amount   int
	Paid     int
	Status   int
	Currency int

	ID        int
	Reference int
	ShortURL  int
	Email     int
	Contact   int
}

// Exact header names written by the sync command. Resolution falls back to a
// substring scan when a sheet has been reshaped by hand.
const (
	amountHeader = "Amount (₹)"
	paidHeader   = "Amount Paid (₹)"
	statusHeader = "Status"
)

// ResolveColumns maps the header to a ColumnMap. The amount, paid and status
// roles are required; a missing one is a SchemaError naming the role and
// listing what the sheet actually has.
func ResolveColumns(header []string) (*ColumnMap, error) {
	cm := &ColumnMap{
		Amount: findColumn(header, amountHeader, func(name string) bool {
			return strings.Contains(name, "amount") && !strings.Contains(name, "paid")
		}),
		Paid: findColumn(header, paidHeader, func(name string) bool {
			return strings.Contains(name, "amount") && strings.Contains(name, "paid")
		}),
		Status: findColumn(header, statusHeader, func(name string) bool {
			return strings.Contains(name, "status") && !strings.Contains(name, "reminder")
		}),
		Currency: findColumn(header, "Currency", func(name string) bool {
			return strings.Contains(name, "currency")
		}),
		ID: findColumn(header, "ID", func(name string) bool {
			return name == "id"
		}),
		Reference: findColumn(header, "Reference ID", func(name string) bool {
			return strings.Contains(name, "reference")
		}),
		ShortURL: findColumn(header, "Short URL", func(name string) bool {
			return strings.Contains(name, "url") && strings.Contains(name, "short")
		}),
		Email: findColumn(header, "Customer Email", func(name string) bool {
			return strings.Contains(name, "email")
		}),
		Contact: findColumn(header, "Customer Contact", func(name string) bool {
			return strings.Contains(name, "contact")
		}),
	}

	for _, req := range []struct {
		role  string
		index int
	}{
		{"amount", cm.Amount},
		{"amount paid", cm.Paid},
		{"status", cm.Status},
	} {
		if req.index < 0 {
			return nil, &SchemaError{Role: req.role, Available: header}
		}
	}
	return cm, nil
}

// findColumn returns the index of the exactly-named column, else the first
// column whose lowercased name satisfies the match, else -1.
func findColumn(header []string, exact string, match func(string) bool) int {
	for i, name := range header {
		if name == exact {
			return i
		}
	}
	for i, name := range header {
		if match(strings.ToLower(name)) {
			return i
		}
	}
	return -1
}
