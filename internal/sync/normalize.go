package sync

import (
	"fmt"
	"strings"
	"time"

	"razorpay_sheets/internal/razorpay"

	"github.com/rs/zerolog/log"
)

// Header is the fixed column set of the main tab. Every normalized row has
// exactly this arity.
var Header = []string{
	"ID", "Created At (UTC)", "Updated At (UTC)", "Amount (₹)", "Amount Paid (₹)",
	"Status", "Currency", "Description", "Reference ID", "Short URL",
	"UPI Link", "WhatsApp Link", "Accept Partial", "First Min Partial Amount (₹)",
	"Customer Email", "Customer Contact", "Order ID", "User ID",
	"Cancelled At (UTC)", "Expire By (UTC)", "Expired At (UTC)",
	"Reminder Enable", "Reminder Status", "Payments Count",
	"Payments Details", "Notes",
}

// RecordError is a single malformed record. It is logged and skipped; the
// batch continues.
type RecordError struct {
	ID    string
	Field string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: field %s: %v", e.ID, e.Field, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Normalize flattens one raw payment link into a Header-shaped row. It is
// total over the declared optional-field space: absent fields map to empty
// strings, zero amounts, empty lists. It fails only when a declared field
// carries an impossible type.
func Normalize(rec razorpay.RawRecord) ([]any, error) {
	id := stringField(rec, "id")

	amount, err := moneyField(rec, "amount")
	if err != nil {
		return nil, &RecordError{ID: id, Field: "amount", Err: err}
	}
	amountPaid, err := moneyField(rec, "amount_paid")
	if err != nil {
		return nil, &RecordError{ID: id, Field: "amount_paid", Err: err}
	}
	firstMinPartial, err := moneyField(rec, "first_min_partial_amount")
	if err != nil {
		return nil, &RecordError{ID: id, Field: "first_min_partial_amount", Err: err}
	}

	createdAt := timestampField(rec, "created_at")
	updatedAt := timestampField(rec, "updated_at")
	cancelledAt := timestampField(rec, "cancelled_at")
	expireBy := timestampField(rec, "expire_by")
	expiredAt := timestampField(rec, "expired_at")

	customerEmail, customerContact := customerFields(rec)

	payments, err := paymentsField(rec)
	if err != nil {
		return nil, &RecordError{ID: id, Field: "payments", Err: err}
	}

	row := []any{
		id,
		createdAt,
		updatedAt,
		amount,
		amountPaid,
		stringField(rec, "status"),
		stringField(rec, "currency"),
		stringField(rec, "description"),
		stringField(rec, "reference_id"),
		stringField(rec, "short_url"),
		yesNo(rec["upi_link"]),
		yesNo(rec["whatsapp_link"]),
		yesNo(rec["accept_partial"]),
		firstMinPartial,
		customerEmail,
		customerContact,
		stringField(rec, "order_id"),
		stringField(rec, "user_id"),
		cancelledAt,
		expireBy,
		expiredAt,
		yesNo(rec["reminder_enable"]),
		renderVariant(classify(rec["reminders"]), reminderRenderer),
		len(payments),
		paymentSummary(payments),
		renderVariant(classify(rec["notes"]), noteRenderer),
	}
	return row, nil
}

// NormalizeAll flattens a batch. Malformed records are skipped with a logged
// RecordError; the rest of the batch continues. The returned StatusTally is
// observational only.
func NormalizeAll(records []razorpay.RawRecord) ([][]any, StatusTally) {
	log.Info().Int("records", len(records)).Msg("Normalizing payment links")

	rows := make([][]any, 0, len(records))
	tally := StatusTally{}
	for _, rec := range records {
		row, err := Normalize(rec)
		if err != nil {
			log.Error().Err(err).Msg("Skipping malformed payment link")
			tally.Skipped++
			continue
		}
		status := stringField(rec, "status")
		if status == "" {
			status = "unknown"
		}
		tally.Count(status)
		rows = append(rows, row)
	}

	tally.Log()
	log.Info().
		Int("rows", len(rows)).
		Int("columns", len(Header)).
		Msg("Finished normalizing payment links")
	return rows, tally
}

// StatusTally counts records per status across one batch.
type StatusTally struct {
	ByStatus map[string]int
	Skipped  int
}

func (t *StatusTally) Count(status string) {
	if t.ByStatus == nil {
		t.ByStatus = make(map[string]int)
	}
	t.ByStatus[status]++
}

func (t *StatusTally) Log() {
	for status, n := range t.ByStatus {
		log.Info().Str("status", status).Int("count", n).Msg("Payment link status summary")
	}
	if t.Skipped > 0 {
		log.Warn().Int("skipped", t.Skipped).Msg("Malformed payment links skipped")
	}
}

func stringField(rec razorpay.RawRecord, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// moneyField converts integer minor units to major units. JSON numbers arrive
// as float64; integers are also accepted for callers that build records by
// hand.
func moneyField(rec razorpay.RawRecord, key string) (float64, error) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n / 100.0, nil
	case int:
		return float64(n) / 100.0, nil
	case int64:
		return float64(n) / 100.0, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// timestampField converts unix seconds to an ISO-8601 UTC string. Absent,
// null or zero timestamps map to an empty string.
func timestampField(rec razorpay.RawRecord, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return ""
	}
	var secs int64
	switch n := v.(type) {
	case float64:
		secs = int64(n)
	case int:
		secs = int64(n)
	case int64:
		secs = n
	default:
		return ""
	}
	if secs == 0 {
		return ""
	}
	return time.Unix(secs, 0).UTC().Format("2006-01-02T15:04:05+00:00")
}

func customerFields(rec razorpay.RawRecord) (email, contact string) {
	customer, ok := rec["customer"].(map[string]any)
	if !ok {
		return "", ""
	}
	if v, ok := customer["email"].(string); ok {
		email = v
	}
	if v, ok := customer["contact"].(string); ok {
		contact = v
	}
	return email, contact
}

func yesNo(v any) string {
	if b, ok := v.(bool); ok && b {
		return "Yes"
	}
	return "No"
}

func paymentsField(rec razorpay.RawRecord) ([]map[string]any, error) {
	v, ok := rec["payments"]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	payments := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object entry, got %T", entry)
		}
		payments = append(payments, m)
	}
	return payments, nil
}

// paymentSummary renders every payment entry into one human-readable cell,
// entries joined with " | ".
func paymentSummary(payments []map[string]any) string {
	parts := make([]string, 0, len(payments))
	for _, p := range payments {
		amount, _ := moneyField(p, "amount")
		parts = append(parts, fmt.Sprintf("%s: %v₹ via %s (%s) on %s",
			stringField(p, "payment_id"),
			amount,
			stringField(p, "method"),
			stringField(p, "status"),
			timestampField(p, "created_at"),
		))
	}
	return strings.Join(parts, " | ")
}

// variant models the shapes the notes and reminders fields arrive in.
type variant struct {
	kind kind
	str  string
	list []any
	obj  map[string]any
}

type kind int

const (
	noneValue kind = iota
	stringValue
	listValue
	mapValue
)

func classify(v any) variant {
	switch t := v.(type) {
	case nil:
		return variant{kind: noneValue}
	case string:
		return variant{kind: stringValue, str: t}
	case []any:
		return variant{kind: listValue, list: t}
	case map[string]any:
		return variant{kind: mapValue, obj: t}
	default:
		return variant{kind: stringValue, str: fmt.Sprintf("%v", t)}
	}
}

type renderers struct {
	none   func() string
	str    func(string) string
	list   func([]any) string
	object func(map[string]any) string
}

func renderVariant(v variant, r renderers) string {
	switch v.kind {
	case stringValue:
		return r.str(v.str)
	case listValue:
		return r.list(v.list)
	case mapValue:
		return r.object(v.obj)
	default:
		return r.none()
	}
}

// noteRenderer collapses all note shapes into one display string: lists join
// with ", ", everything else string-casts.
var noteRenderer = renderers{
	none: func() string { return "" },
	str:  func(s string) string { return s },
	list: func(list []any) string {
		parts := make([]string, 0, len(list))
		for _, n := range list {
			parts = append(parts, fmt.Sprintf("%v", n))
		}
		return strings.Join(parts, ", ")
	},
	object: func(obj map[string]any) string {
		if len(obj) == 0 {
			return ""
		}
		return fmt.Sprintf("%v", obj)
	},
}

// reminderRenderer extracts the status of an object-shaped reminders field and
// string-casts the rest.
var reminderRenderer = renderers{
	none: func() string { return "" },
	str:  func(s string) string { return s },
	list: func(list []any) string {
		if len(list) == 0 {
			return ""
		}
		return fmt.Sprintf("%v", list)
	},
	object: func(obj map[string]any) string {
		if s, ok := obj["status"].(string); ok {
			return s
		}
		return ""
	},
}
