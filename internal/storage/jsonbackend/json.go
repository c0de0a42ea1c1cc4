package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/steelproxy/licscraper/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// row is the NDJSON serialization of a Contact.
type row struct {
	ID            string            `json:"id"`
	HarvestID     string            `json:"harvest_id"`
	Query         string            `json:"query"`
	Profile       string            `json:"profile"`
	Email         string            `json:"email,omitempty"`
	Websites      []string          `json:"websites,omitempty"`
	SocialHandles map[string]string `json:"social_handles,omitempty"`
	PhoneNumbers  []string          `json:"phone_numbers,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// New creates a new NDJSON-backed storage.Backend appending to filePath.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}

	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, contact *storage.Contact) error {
	data, err := json.Marshal(row{
		ID:            contact.ID,
		HarvestID:     contact.HarvestID,
		Query:         contact.Query,
		Profile:       contact.Profile,
		Email:         contact.Email,
		Websites:      contact.Websites,
		SocialHandles: contact.SocialHandles,
		PhoneNumbers:  contact.PhoneNumbers,
		CreatedAt:     contact.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("jsonbackend: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonbackend: %w", err)
	}
	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)

	// NDJSON has no query engine; read everything and filter in memory.
	var matched []*storage.Contact

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r row
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("jsonbackend: %w", err)
		}

		c := &storage.Contact{
			ID:            r.ID,
			HarvestID:     r.HarvestID,
			Query:         r.Query,
			Profile:       r.Profile,
			Email:         r.Email,
			Websites:      r.Websites,
			SocialHandles: r.SocialHandles,
			PhoneNumbers:  r.PhoneNumbers,
			CreatedAt:     r.CreatedAt,
		}

		if filter.HarvestID != "" && c.HarvestID != filter.HarvestID {
			continue
		}
		if filter.Profile != "" && c.Profile != filter.Profile {
			continue
		}
		if filter.Since != nil && c.CreatedAt.Before(*filter.Since) {
			continue
		}

		matched = append(matched, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}

	// Order by created_at DESC (reverse the append order)
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*storage.Contact{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
