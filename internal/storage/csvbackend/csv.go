package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/steelproxy/licscraper/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"harvest_id",
	"query",
	"profile",
	"email",
	"websites",
	"social_handles_json",
	"phone_numbers",
	"created_at",
}

const listSep = ";"

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: %w", err)
	}

	// Write the header row only for a fresh file
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, contact *storage.Contact) error {
	handlesJSON, err := json.Marshal(contact.SocialHandles)
	if err != nil {
		return fmt.Errorf("csvbackend: %w", err)
	}

	record := []string{
		contact.ID,
		contact.HarvestID,
		contact.Query,
		contact.Profile,
		contact.Email,
		strings.Join(contact.Websites, listSep),
		string(handlesJSON),
		strings.Join(contact.PhoneNumbers, listSep),
		contact.CreatedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvbackend: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("csvbackend: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csvbackend: %w", err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Contact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Skip the header row
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.Contact{}, nil
		}
		return nil, fmt.Errorf("csvbackend: %w", err)
	}

	var matched []*storage.Contact

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: %w", err)
		}
		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		var handles map[string]string
		if err := json.Unmarshal([]byte(record[6]), &handles); err != nil {
			handles = map[string]string{}
		}
		createdAt, _ := time.Parse(time.RFC3339Nano, record[8])

		c := &storage.Contact{
			ID:            record[0],
			HarvestID:     record[1],
			Query:         record[2],
			Profile:       record[3],
			Email:         record[4],
			Websites:      splitList(record[5]),
			SocialHandles: handles,
			PhoneNumbers:  splitList(record[7]),
			CreatedAt:     createdAt,
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

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
