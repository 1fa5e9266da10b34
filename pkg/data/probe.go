package data

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	upsertProbeSQL = `INSERT INTO probe (identifier, package, module, passed, latency, version, error, probed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identifier) DO UPDATE SET
			package = excluded.package,
			module = excluded.module,
			passed = excluded.passed,
			latency = excluded.latency,
			version = excluded.version,
			error = excluded.error,
			probed_at = excluded.probed_at
	`

	selectProbeSQL = `SELECT identifier, package, module, passed, latency, version, error, probed_at
		FROM probe
		WHERE identifier = COALESCE(?, identifier)
		ORDER BY identifier
	`
)

// Probe is a stored install/import outcome.
type Probe struct {
	Identifier string   `json:"identifier" yaml:"identifier"`
	Package    string   `json:"package" yaml:"package"`
	Module     string   `json:"module" yaml:"module"`
	Passed     bool     `json:"passed" yaml:"passed"`
	Latency    *float64 `json:"latency,omitempty" yaml:"latency,omitempty"`
	Version    string   `json:"version,omitempty" yaml:"version,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
	ProbedAt   string   `json:"probed_at,omitempty" yaml:"probedAt,omitempty"`
}

// SaveProbes upserts probe outcomes in a single transaction.
func SaveProbes(s *Store, list []*Probe) error {
	if s == nil || s.DB == nil {
		return errDBNotInitialized
	}

	if len(list) == 0 {
		return nil
	}

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(s.rebind(upsertProbeSQL))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare probe upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(timeFormat)
	for _, p := range list {
		if p == nil || p.Identifier == "" || p.Package == "" {
			_ = tx.Rollback()
			return errors.New("probe identifier and package are required")
		}

		probedAt := p.ProbedAt
		if probedAt == "" {
			probedAt = now
		}

		var latency sql.NullFloat64
		if p.Latency != nil {
			latency = sql.NullFloat64{Float64: *p.Latency, Valid: true}
		}

		if _, err := stmt.Exec(p.Identifier, p.Package, p.Module, boolToInt(p.Passed), latency,
			p.Version, p.Error, probedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to upsert probe %s: %w", p.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetProbes returns stored probe outcomes; nil identifier returns all.
func GetProbes(s *Store, identifier *string) ([]*Probe, error) {
	if s == nil || s.DB == nil {
		return nil, errDBNotInitialized
	}

	rows, err := s.Query(s.rebind(selectProbeSQL), identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to query probes: %w", err)
	}
	defer rows.Close()

	list := make([]*Probe, 0)
	for rows.Next() {
		p := &Probe{}
		var passed int
		var latency sql.NullFloat64
		if err := rows.Scan(&p.Identifier, &p.Package, &p.Module, &passed, &latency,
			&p.Version, &p.Error, &p.ProbedAt); err != nil {
			return nil, fmt.Errorf("failed to scan probe row: %w", err)
		}
		p.Passed = passed == 1
		if latency.Valid {
			v := latency.Float64
			p.Latency = &v
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate probe rows: %w", err)
	}
	return list, nil
}
