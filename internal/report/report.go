// Package report renders the resolved contact collection for display and
// export. The pipeline has no dependency on any of these formats.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/steelproxy/licscraper/internal/profile"
)

// Summary contains aggregated figures for one pipeline invocation.
type Summary struct {
	Query            string
	Runs             int
	ProfilesFound    int
	ContactsResolved int
	Duration         time.Duration
}

// GenerateSummary derives the aggregate figures from a finished run.
func GenerateSummary(query string, runs, profilesFound int, records []profile.ContactRecord, duration time.Duration) Summary {
	return Summary{
		Query:            query,
		Runs:             runs,
		ProfilesFound:    profilesFound,
		ContactsResolved: len(records),
		Duration:         duration,
	}
}

// WriteJSON writes the contact records to the provided writer in JSON format.
func WriteJSON(w io.Writer, records []profile.ContactRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

const textTmpl = `Contact Report
--------------
{{- range .}}
{{.Identifier}}
{{- if .Email}}
  email:    {{.Email}}
{{- end}}
{{- range .Websites}}
  website:  {{.}}
{{- end}}
{{- range $platform, $handle := .SocialHandles}}
  {{$platform}}:  {{$handle}}
{{- end}}
{{- range .PhoneNumbers}}
  phone:    {{.}}
{{- end}}
{{- else}}
No contacts resolved.
{{- end}}
`

// WriteText writes a human-readable contact listing to the provided writer.
func WriteText(w io.Writer, records []profile.ContactRecord) error {
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := t.Execute(w, records); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// WriteCSV writes one row per contact record. List fields are joined with
// semicolons; social handles flatten to "platform=handle" pairs.
func WriteCSV(w io.Writer, records []profile.ContactRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"profile", "email", "websites", "social_handles", "phone_numbers"}); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	for _, rec := range records {
		handles := make([]string, 0, len(rec.SocialHandles))
		for platform, handle := range rec.SocialHandles {
			handles = append(handles, platform+"="+handle)
		}

		row := []string{
			string(rec.Identifier),
			rec.Email,
			strings.Join(rec.Websites, ";"),
			strings.Join(handles, ";"),
			strings.Join(rec.PhoneNumbers, ";"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

const summaryTmpl = `Harvest Summary
---------------
Query:     {{.Query}}
Runs:      {{.Runs}}
Profiles:  {{.ProfilesFound}} discovered
Contacts:  {{.ContactsResolved}} resolved
Duration:  {{.Duration}}
`

// WriteSummary writes the aggregate figures to the provided writer.
func WriteSummary(w io.Writer, summary Summary) error {
	t, err := template.New("summary").Parse(summaryTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
