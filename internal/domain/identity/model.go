package identity

import (
	"strings"
	"time"
)

// Patient maps to the patients table. Patients are never updated or deleted.
type Patient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MRN       string    `json:"mrn"`
	Gender    string    `json:"gender"`
	BirthDate time.Time `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatePatientRequest struct {
	Name      string `json:"name" validate:"required"`
	MRN       string `json:"mrn" validate:"required"`
	Gender    string `json:"gender" validate:"required"`
	BirthDate string `json:"birth_date" validate:"required"`
}

func (r *CreatePatientRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.MRN = strings.TrimSpace(r.MRN)
	r.Gender = strings.TrimSpace(r.Gender)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
}

var birthDateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

// parseBirthDate accepts a calendar date or a full timestamp and returns the
// calendar date at UTC midnight.
func parseBirthDate(s string) (time.Time, bool) {
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ListFilter selects a page of patients whose name contains Search.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
