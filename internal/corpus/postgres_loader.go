package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/postgres"
	"github.com/lib/pq"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PostgresStore reads and writes documents in a PostgreSQL table:
//
//	CREATE TABLE documents (
//	    id         TEXT PRIMARY KEY,
//	    domain     TEXT NOT NULL,
//	    title      TEXT NOT NULL,
//	    body       TEXT NOT NULL DEFAULT '',
//	    fields     JSONB NOT NULL DEFAULT '{}',
//	    keywords   TEXT[] NOT NULL DEFAULT '{}',
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresStore struct {
	db    *postgres.Client
	table string
}

// NewPostgresStore checks the table name and returns a store for it.
func NewPostgresStore(db *postgres.Client, table string) (*PostgresStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid corpus table name %q", table)
	}
	return &PostgresStore{db: db, table: table}, nil
}

// Load returns all documents ordered by id.
func (s *PostgresStore) Load(ctx context.Context) ([]Document, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, domain, title, body, fields, keywords FROM %s ORDER BY id`, s.table))
	if err != nil {
		return nil, fmt.Errorf("querying corpus table %s: %w", s.table, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d      Document
			domain string
			fields []byte
		)
		if err := rows.Scan(&d.ID, &domain, &d.Title, &d.Text, &fields, pq.Array(&d.Keywords)); err != nil {
			return nil, fmt.Errorf("scanning corpus row: %w", err)
		}
		d.Domain = Domain(domain)
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &d.Fields); err != nil {
				return nil, fmt.Errorf("decoding fields of %s: %w", d.ID, err)
			}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w", err)
	}
	if err := Validate(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Upsert validates docs and writes them in one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, docs []Document) error {
	if err := Validate(docs); err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, domain, title, body, fields, keywords, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (id) DO UPDATE SET
    domain = EXCLUDED.domain,
    title = EXCLUDED.title,
    body = EXCLUDED.body,
    fields = EXCLUDED.fields,
    keywords = EXCLUDED.keywords,
    updated_at = NOW()`, s.table)

	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for i := range docs {
			d := &docs[i]
			fields, err := json.Marshal(d.Fields)
			if err != nil {
				return fmt.Errorf("encoding fields of %s: %w", d.ID, err)
			}
			if d.Fields == nil {
				fields = []byte("{}")
			}
			keywords := d.Keywords
			if keywords == nil {
				keywords = []string{}
			}
			if _, err := stmt.ExecContext(ctx, d.ID, string(d.Domain), d.Title, d.Text, fields, pq.Array(keywords)); err != nil {
				return fmt.Errorf("upserting %s: %w", d.ID, err)
			}
		}
		return nil
	})
}
