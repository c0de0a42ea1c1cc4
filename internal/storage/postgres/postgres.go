package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/steelproxy/licscraper/internal/storage"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	harvest_id TEXT NOT NULL,
	query TEXT NOT NULL,
	profile TEXT NOT NULL,
	email TEXT,
	websites JSONB NOT NULL,
	social_handles JSONB NOT NULL,
	phone_numbers JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, contact *storage.Contact) error {
	websites, err := json.Marshal(contact.Websites)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	handles, err := json.Marshal(contact.SocialHandles)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	phones, err := json.Marshal(contact.PhoneNumbers)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	query := `
	INSERT INTO contacts (
		id, harvest_id, query, profile, email, websites, social_handles, phone_numbers, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = b.pool.Exec(ctx, query,
		contact.ID,
		contact.HarvestID,
		contact.Query,
		contact.Profile,
		contact.Email,
		websites,
		handles,
		phones,
		contact.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Contact, error) {
	query := `SELECT id, harvest_id, query, profile, email, websites, social_handles, phone_numbers, created_at FROM contacts WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.HarvestID != "" {
		query += fmt.Sprintf(` AND harvest_id = $%d`, argPos)
		args = append(args, filter.HarvestID)
		argPos++
	}
	if filter.Profile != "" {
		query += fmt.Sprintf(` AND profile = $%d`, argPos)
		args = append(args, filter.Profile)
		argPos++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, argPos)
		args = append(args, *filter.Since)
		argPos++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argPos)
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argPos)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	defer rows.Close()

	var contacts []*storage.Contact
	for rows.Next() {
		var c storage.Contact
		var websites, handles, phones []byte

		err := rows.Scan(
			&c.ID, &c.HarvestID, &c.Query, &c.Profile, &c.Email,
			&websites, &handles, &phones, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}

		if err := json.Unmarshal(websites, &c.Websites); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := json.Unmarshal(handles, &c.SocialHandles); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := json.Unmarshal(phones, &c.PhoneNumbers); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}

		contacts = append(contacts, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return contacts, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
