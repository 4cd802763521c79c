package emailer

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"razorpay_sheets/internal/report"
)

const topRowCount = 5

// ComposeSummary renders the partial-payments report into the subject, plain
// and HTML bodies of the per-run summary email.
func ComposeSummary(rows []report.Row, cm *report.ColumnMap, summary *report.Summary, when time.Time) (subject, plainBody, htmlBody string) {
	totalDue := report.TotalDue(rows)
	subject = fmt.Sprintf("Partial payments report — %d outstanding, %.2f due (%s)",
		len(rows), totalDue, when.UTC().Format("2006-01-02"))

	plainBody = composePlain(rows, summary, totalDue)
	htmlBody = composeHTML(rows, cm, summary, totalDue)
	return subject, plainBody, htmlBody
}

func composePlain(rows []report.Row, summary *report.Summary, totalDue float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Partial Payments Summary\n\n")
	fmt.Fprintf(&b, "Total partial payments: %d\n", len(rows))
	fmt.Fprintf(&b, "Total due amount: %.2f\n\n", totalDue)
	for _, currency := range sortedCurrencies(summary) {
		cs := summary.ByCurrency[currency]
		fmt.Fprintf(&b, "%s: %q %d (%.2f), other %d (%.2f), total %d (%.2f)\n",
			currency, summary.Prefix,
			cs.Matched.Count, cs.Matched.Amount,
			cs.Other.Count, cs.Other.Amount,
			cs.Total.Count, cs.Total.Amount)
	}
	return b.String()
}

func composeHTML(rows []report.Row, cm *report.ColumnMap, summary *report.Summary, totalDue float64) string {
	var b strings.Builder
	b.WriteString(`<html><body style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	b.WriteString("<h2>Partial Payments Summary</h2>")
	fmt.Fprintf(&b, "<p>Total partial payments: <b>%d</b><br>Total due amount: <b>%.2f</b></p>", len(rows), totalDue)

	b.WriteString(`<h3>By currency</h3><table border="1" cellpadding="4" cellspacing="0">`)
	fmt.Fprintf(&b, "<tr><th>Currency</th><th>%s count</th><th>%s due</th><th>Other count</th><th>Other due</th><th>Total count</th><th>Total due</th></tr>",
		html.EscapeString(summary.Prefix), html.EscapeString(summary.Prefix))
	for _, currency := range sortedCurrencies(summary) {
		cs := summary.ByCurrency[currency]
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%.2f</td><td>%d</td><td>%.2f</td><td>%d</td><td>%.2f</td></tr>",
			html.EscapeString(currency),
			cs.Matched.Count, cs.Matched.Amount,
			cs.Other.Count, cs.Other.Amount,
			cs.Total.Count, cs.Total.Amount)
	}
	fmt.Fprintf(&b, "<tr><td><b>All</b></td><td>%d</td><td>%.2f</td><td>%d</td><td>%.2f</td><td>%d</td><td>%.2f</td></tr>",
		summary.Grand.Matched.Count, summary.Grand.Matched.Amount,
		summary.Grand.Other.Count, summary.Grand.Other.Amount,
		summary.Grand.Total.Count, summary.Grand.Total.Amount)
	b.WriteString("</table>")

	if len(rows) > 0 {
		b.WriteString("<h3>Top partial payments by due amount</h3>")
		b.WriteString(`<table border="1" cellpadding="4" cellspacing="0">`)
		b.WriteString("<tr><th>ID</th><th>Amount</th><th>Paid</th><th>Due</th><th>Status</th></tr>")
		for i, row := range rows {
			if i >= topRowCount {
				break
			}
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%s</td></tr>",
				html.EscapeString(rowID(row, cm)), row.Amount, row.Paid, row.Due, html.EscapeString(row.Status))
		}
		b.WriteString("</table>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

func rowID(row report.Row, cm *report.ColumnMap) string {
	if cm == nil || cm.ID < 0 || cm.ID >= len(row.Cells) {
		return ""
	}
	return fmt.Sprintf("%v", row.Cells[cm.ID])
}

func sortedCurrencies(summary *report.Summary) []string {
	currencies := make([]string, 0, len(summary.ByCurrency))
	for currency := range summary.ByCurrency {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	return currencies
}
