package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/steelproxy/licscraper/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	harvest_id TEXT NOT NULL,
	query TEXT NOT NULL,
	profile TEXT NOT NULL,
	email TEXT,
	websites TEXT NOT NULL,
	social_handles TEXT NOT NULL,
	phone_numbers TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, contact *storage.Contact) error {
	websites, err := json.Marshal(contact.Websites)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	handles, err := json.Marshal(contact.SocialHandles)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	phones, err := json.Marshal(contact.PhoneNumbers)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	query := `
	INSERT INTO contacts (
		id, harvest_id, query, profile, email, websites, social_handles, phone_numbers, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		contact.ID,
		contact.HarvestID,
		contact.Query,
		contact.Profile,
		contact.Email,
		string(websites),
		string(handles),
		string(phones),
		contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Contact, error) {
	query := `SELECT id, harvest_id, query, profile, email, websites, social_handles, phone_numbers, created_at FROM contacts WHERE 1=1`
	args := []any{}

	if filter.HarvestID != "" {
		query += ` AND harvest_id = ?`
		args = append(args, filter.HarvestID)
	}
	if filter.Profile != "" {
		query += ` AND profile = ?`
		args = append(args, filter.Profile)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	defer rows.Close()

	var contacts []*storage.Contact
	for rows.Next() {
		var c storage.Contact
		var websites, handles, phones string
		var createdAt time.Time

		err := rows.Scan(
			&c.ID, &c.HarvestID, &c.Query, &c.Profile, &c.Email,
			&websites, &handles, &phones, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}

		c.CreatedAt = createdAt
		if err := json.Unmarshal([]byte(websites), &c.Websites); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		if err := json.Unmarshal([]byte(handles), &c.SocialHandles); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		if err := json.Unmarshal([]byte(phones), &c.PhoneNumbers); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}

		contacts = append(contacts, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return contacts, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
