// Package store persists completed collection runs to sqlite. Persistence
// is optional; the engine itself only ever works against its in-memory
// dedup store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leadsweep/leadsweep/internal/collector"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	target_status TEXT NOT NULL,
	cutoff_date   TEXT NOT NULL,
	termination   TEXT NOT NULL,
	passes        INTEGER NOT NULL,
	total_leads   INTEGER NOT NULL,
	scraped_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS leads (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	identity     TEXT NOT NULL,
	position     INTEGER NOT NULL,
	contact_name TEXT NOT NULL,
	email        TEXT,
	phone        TEXT,
	mobile_phone TEXT,
	agent_name   TEXT,
	external_id  TEXT,
	address      TEXT,
	last_updated TEXT,
	updated_at   TEXT,
	collected_at TEXT NOT NULL,
	PRIMARY KEY (run_id, identity)
);
`

// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open run db: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite wants a single writer
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping run db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun writes a completed run and its leads in one transaction. Leads
// are upserted by identity, keeping already-present enrichment fields when
// the incoming duplicate carries none.
func (s *Store) SaveRun(ctx context.Context, runID string, req collector.Request, result collector.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (id, target_status, cutoff_date, termination, passes, total_leads, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
		runID,
		string(req.TargetStatus),
		req.CutoffDate.Format(time.RFC3339),
		string(result.Termination),
		result.Passes,
		result.TotalLeads,
		result.ScrapedAt.Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for position, lead := range result.Leads {
		updatedAt := ""
		if !lead.UpdatedAt.IsZero() {
			updatedAt = lead.UpdatedAt.Format(time.RFC3339)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO leads (run_id, identity, position, contact_name, email, phone, mobile_phone,
	agent_name, external_id, address, last_updated, updated_at, collected_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id, identity) DO UPDATE SET
	email        = COALESCE(NULLIF(leads.email, ''), excluded.email),
	phone        = COALESCE(NULLIF(leads.phone, ''), excluded.phone),
	mobile_phone = COALESCE(NULLIF(leads.mobile_phone, ''), excluded.mobile_phone),
	agent_name   = COALESCE(NULLIF(leads.agent_name, ''), excluded.agent_name),
	external_id  = COALESCE(NULLIF(leads.external_id, ''), excluded.external_id);`,
			runID,
			lead.Key(),
			position,
			lead.Contact.Name,
			lead.Contact.Email,
			lead.Contact.Phone,
			lead.Contact.MobilePhone,
			lead.Agent.Name,
			lead.Property.ExternalID,
			lead.Property.Address,
			lead.LastUpdated,
			updatedAt,
			lead.CollectedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert lead %q: %w", lead.Key(), err)
		}
	}

	return tx.Commit()
}

// RunLeads reads back the leads of one run in collection order.
func (s *Store) RunLeads(ctx context.Context, runID string) ([]collector.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT contact_name, email, phone, mobile_phone, agent_name, external_id,
	address, last_updated, updated_at, collected_at
FROM leads WHERE run_id = ? ORDER BY position;`, runID)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var leads []collector.Lead
	for rows.Next() {
		var l collector.Lead
		var email, phone, mobile, agent, externalID, address, lastUpdated, updatedAt sql.NullString
		var collectedAt string
		if err := rows.Scan(&l.Contact.Name, &email, &phone, &mobile, &agent,
			&externalID, &address, &lastUpdated, &updatedAt, &collectedAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.Contact.Email = email.String
		l.Contact.Phone = phone.String
		l.Contact.MobilePhone = mobile.String
		l.Agent.Name = agent.String
		l.Property.ExternalID = externalID.String
		l.Property.Address = address.String
		l.LastUpdated = lastUpdated.String
		if updatedAt.String != "" {
			if t, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
				l.UpdatedAt = t
			}
		}
		if t, err := time.Parse(time.RFC3339, collectedAt); err == nil {
			l.CollectedAt = t
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
