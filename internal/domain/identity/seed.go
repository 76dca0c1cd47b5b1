package identity

import (
	"context"
	"time"
)

// SeedPatients is the demo registry inserted into an empty store.
var SeedPatients = []Patient{
	{Name: "張志明", MRN: "P001", Gender: "Male", BirthDate: date(1980, time.January, 1)},
	{Name: "陳小美", MRN: "P002", Gender: "Female", BirthDate: date(1992, time.May, 20)},
	{Name: "林大山", MRN: "P003", Gender: "Male", BirthDate: date(1975, time.November, 15)},
	{Name: "黃雅婷", MRN: "P004", Gender: "Female", BirthDate: date(1988, time.March, 30)},
	{Name: "李建國", MRN: "P005", Gender: "Male", BirthDate: date(1960, time.August, 8)},
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Seed inserts SeedPatients when the store holds no patients and returns how
// many were inserted. The check and the inserts share one transaction.
func (s *Service) Seed(ctx context.Context) (int, error) {
	inserted := 0
	run := func(ctx context.Context) error {
		total, err := s.patients.Count(ctx, "")
		if err != nil {
			return err
		}
		if total > 0 {
			return nil
		}
		for i := range SeedPatients {
			p := SeedPatients[i]
			if err := s.patients.Create(ctx, &p); err != nil {
				return err
			}
			inserted++
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.Do(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
