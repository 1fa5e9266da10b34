package data

import (
	"fmt"
)

var (
	// table name -> count query
	stateQueries = map[string]string{
		"repo":       "SELECT COUNT(*) FROM repo",
		"probe":      "SELECT COUNT(*) FROM probe",
		"probe_pass": "SELECT COUNT(*) FROM probe WHERE passed = 1",
		"domain":     "SELECT COUNT(DISTINCT domain) FROM repo",
	}

	resetTables = []string{"probe", "repo"}
)

// GetState returns row counts of the store.
func GetState(s *Store) (map[string]int64, error) {
	if s == nil || s.DB == nil {
		return nil, errDBNotInitialized
	}

	state := make(map[string]int64, len(stateQueries))
	for k, q := range stateQueries {
		var count int64
		if err := s.QueryRow(q).Scan(&count); err != nil {
			return nil, fmt.Errorf("error getting %s count: %w", k, err)
		}
		state[k] = count
	}

	return state, nil
}

// Reset deletes all stored repos and probes. The schema is kept.
func Reset(s *Store) error {
	if s == nil || s.DB == nil {
		return errDBNotInitialized
	}

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, t := range resetTables {
		if _, err := tx.Exec("DELETE FROM " + t); err != nil { //nolint:gosec // fixed table list
			_ = tx.Rollback()
			return fmt.Errorf("failed to delete %s: %w", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
