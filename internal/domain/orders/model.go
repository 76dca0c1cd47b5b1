package orders

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Order is a free-text clinical instruction attached to one patient.
// UpdatedAt equal to CreatedAt means the order has never been edited.
type Order struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Edited reports whether the message was changed after creation.
func (o *Order) Edited() bool {
	return !o.UpdatedAt.Equal(o.CreatedAt)
}

type CreateOrderRequest struct {
	PatientID PatientRef `json:"patient_id"`
	Message   string     `json:"message"`
}

// UpdateOrderRequest requires the message key; an empty message is allowed.
type UpdateOrderRequest struct {
	Message *string `json:"message"`
}

// PatientRef accepts a patient id sent either as a JSON number or as a
// numeric string. Anything else leaves it unset.
type PatientRef struct {
	ID    int64
	Valid bool
}

func (r *PatientRef) UnmarshalJSON(b []byte) error {
	*r = PatientRef{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	*r = PatientRef{ID: id, Valid: true}
	return nil
}

func (r PatientRef) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(r.ID, 10)), nil
}

// ListFilter selects a page of one patient's orders whose message contains
// Search.
type ListFilter struct {
	PatientID int64
	Search    string
	Limit     int
	Offset    int
}

// ParseID parses a path id. ok is false for anything that is not a positive
// base-10 integer.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
