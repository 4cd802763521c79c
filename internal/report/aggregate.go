package report

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// implicitCurrency buckets every row when the source table has no currency
// column. The sheet headers are rupee-denominated, so the upstream's home
// currency is the sensible single bucket.
const implicitCurrency = "INR"

// Bucket is one cell of the summary tree.
type Bucket struct {
	Count  int
	Amount float64
}

func (b *Bucket) add(amount float64) {
	b.Count++
	b.Amount += amount
}

// CurrencySummary splits a currency's partial payments by whether the
// reference id matches the configured prefix. Total is always the sum of the
// other two.
type CurrencySummary struct {
	Matched Bucket
	Other   Bucket
	Total   Bucket
}

// Summary is the aggregate tree: per-currency summaries plus the
// currency-independent grand total.
type Summary struct {
	Prefix     string
	ByCurrency map[string]*CurrencySummary
	Grand      CurrencySummary
}

// Aggregate groups filtered rows by currency and by a case-sensitive prefix
// match of the reference id against the given literal. Due amounts feed the
// bucket sums.
func Aggregate(rows []Row, cm *ColumnMap, prefix string) *Summary {
	s := &Summary{
		Prefix:     prefix,
		ByCurrency: make(map[string]*CurrencySummary),
	}

	for _, row := range rows {
		currency := row.Currency
		if cm.Currency < 0 || currency == "" {
			currency = implicitCurrency
		}
		cs, ok := s.ByCurrency[currency]
		if !ok {
			cs = &CurrencySummary{}
			s.ByCurrency[currency] = cs
		}

		reference := cellAt(row.Cells, cm.Reference)
		if strings.HasPrefix(reference, prefix) {
			cs.Matched.add(row.Due)
			s.Grand.Matched.add(row.Due)
		} else {
			cs.Other.add(row.Due)
			s.Grand.Other.add(row.Due)
		}
		cs.Total.add(row.Due)
		s.Grand.Total.add(row.Due)
	}

	for currency, cs := range s.ByCurrency {
		log.Info().
			Str("currency", currency).
			Int("matched", cs.Matched.Count).
			Int("other", cs.Other.Count).
			Int("total", cs.Total.Count).
			Float64("due", cs.Total.Amount).
			Msg("Partial payment aggregate")
	}
	return s
}
