package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewID returns a time-ordered UUIDv7, falling back to v4 if the clock source fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// looseRecord is a JSON object decoded field by field. Records arrive from
// imports and other clients in mixed shapes, so a bad field degrades to its
// zero value instead of failing the whole batch. Only a record that is not an
// object at all is rejected.
type looseRecord map[string]json.RawMessage

var errNotObject = errors.New("record must be a JSON object")

// parseLoose decodes data as an object. null yields an empty record.
func parseLoose(data []byte) (looseRecord, error) {
	var r looseRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errNotObject
	}
	return r, nil
}

// text renders a field as a string: strings as-is, numbers and booleans in
// their JSON form, everything else empty.
func (r looseRecord) text(key string) string {
	raw := bytes.TrimSpace(r[key])
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	}
	return string(raw)
}

// amount parses a numeric or numeric-string field. Unparsable values count as zero.
func (r looseRecord) amount(key string) decimal.Decimal {
	s := strings.TrimSpace(r.text(key))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// UnmarshalJSON decodes a subscriber leniently, stringifying non-string fields.
func (s *Subscriber) UnmarshalJSON(data []byte) error {
	r, err := parseLoose(data)
	if err != nil {
		return err
	}
	*s = Subscriber{
		Username:  r.text("username"),
		Names:     r.text("names"),
		Phone:     r.text("phone"),
		Email:     r.text("email"),
		Type:      ServiceType(r.text("type")),
		Status:    r.text("status"),
		Package:   r.text("package"),
		Location:  r.text("location"),
		Router:    r.text("router"),
		RouterID:  r.text("routerId"),
		Site:      r.text("site"),
		Expiry:    r.text("expiry"),
		CreatedAt: r.text("createdAt"),
	}
	return nil
}

// UnmarshalJSON decodes a transaction leniently; a bad amount counts as zero.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	r, err := parseLoose(data)
	if err != nil {
		return err
	}
	*t = Transaction{
		Ref:        r.text("ref"),
		User:       r.text("user"),
		Amount:     r.amount("amount"),
		Type:       r.text("type"),
		Status:     TransactionStatus(r.text("status")),
		Date:       r.text("date"),
		CreatedAt:  r.text("createdAt"),
		ResolvedAt: r.text("resolvedAt"),
	}
	return nil
}

// UnmarshalJSON decodes an income entry leniently; a bad amount counts as zero.
func (e *IncomeEntry) UnmarshalJSON(data []byte) error {
	r, err := parseLoose(data)
	if err != nil {
		return err
	}
	*e = IncomeEntry{
		ID:             r.text("id"),
		TransactionRef: r.text("transactionRef"),
		Description:    r.text("description"),
		Amount:         r.amount("amount"),
		Date:           r.text("date"),
		Category:       r.text("category"),
		Source:         r.text("source"),
		User:           r.text("user"),
		Router:         r.text("router"),
		Site:           r.text("site"),
		UserType:       r.text("userType"),
		CreatedAt:      r.text("createdAt"),
	}
	return nil
}

// UnmarshalJSON decodes an expense entry leniently. A bad amount becomes
// zero, which Validate then rejects for new entries.
func (e *ExpenseEntry) UnmarshalJSON(data []byte) error {
	r, err := parseLoose(data)
	if err != nil {
		return err
	}
	*e = ExpenseEntry{
		ID:              r.text("id"),
		Description:     r.text("description"),
		Amount:          r.amount("amount"),
		Category:        r.text("category"),
		Subcategory:     r.text("subcategory"),
		Date:            r.text("date"),
		TransactionType: PaymentMethod(r.text("transactionType")),
		MpesaCode:       r.text("mpesaCode"),
		MpesaMessage:    r.text("mpesaMessage"),
		BankReference:   r.text("bankReference"),
		Notes:           r.text("notes"),
		CreatedAt:       r.text("createdAt"),
	}
	return nil
}
