// Package storage persists resolved contact records across harvests.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/steelproxy/licscraper/internal/profile"
)

// Contact is one persisted contact record. All rows of one pipeline
// invocation share a HarvestID.
type Contact struct {
	ID            string
	HarvestID     string
	Query         string
	Profile       string
	Email         string
	Websites      []string
	SocialHandles map[string]string
	PhoneNumbers  []string
	CreatedAt     time.Time
}

// NewContact builds a storable row from a resolved record.
func NewContact(harvestID, query string, rec profile.ContactRecord) *Contact {
	return &Contact{
		ID:            uuid.New().String(),
		HarvestID:     harvestID,
		Query:         query,
		Profile:       string(rec.Identifier),
		Email:         rec.Email,
		Websites:      rec.Websites,
		SocialHandles: rec.SocialHandles,
		PhoneNumbers:  rec.PhoneNumbers,
		CreatedAt:     time.Now().UTC(),
	}
}

// Filter allows querying for specific contacts.
type Filter struct {
	HarvestID string
	Profile   string
	Since     *time.Time
	Limit     int
	Offset    int
}

// Backend defines the interface for storing and querying contacts.
type Backend interface {
	Save(ctx context.Context, contact *Contact) error
	Query(ctx context.Context, filter Filter) ([]*Contact, error)
	Close() error
}

// SplitDSN separates a "scheme:rest" store flag into its backend name and
// backend-specific DSN. Postgres URLs pass through whole. Examples:
// "sqlite:contacts.db", "json:out.ndjson", "postgres://user@host/db".
func SplitDSN(dsn string) (backend, rest string, err error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", dsn, nil
	}
	backend, rest, ok := strings.Cut(dsn, ":")
	if !ok || backend == "" || rest == "" {
		return "", "", fmt.Errorf("storage: malformed dsn %q", dsn)
	}
	return backend, rest, nil
}
