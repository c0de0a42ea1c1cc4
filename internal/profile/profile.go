// Package profile defines canonical LinkedIn profile identifiers and the
// contact data resolved for them.
package profile

import "regexp"

// ID is a canonical profile identifier: the slug from a linkedin.com/in/<slug>
// URL reduced to the characters [A-Za-z0-9_-]. Two URLs producing the same ID
// name the same profile.
type ID string

var (
	// Scheme and www. are optional; the slug runs up to the next path
	// separator, query string, fragment or whitespace.
	profilePath = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?linkedin\.com/in/([^\s/?#]+)`)
	slugStrip   = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// Normalize reduces a raw URL to its canonical profile identifier. The second
// return value is false when the URL is not a profile URL, or when stripping
// disallowed characters leaves nothing of the slug. Most organic search
// results are not profile pages, so a non-match is expected and not an error.
func Normalize(rawURL string) (ID, bool) {
	m := profilePath.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	slug := slugStrip.ReplaceAllString(m[1], "")
	if slug == "" {
		return "", false
	}
	return ID(slug), true
}

// ContactRecord is the contact information resolved for one profile. Fields
// the lookup did not return are left empty.
type ContactRecord struct {
	Identifier    ID                `json:"identifier"`
	Email         string            `json:"email,omitempty"`
	Websites      []string          `json:"websites,omitempty"`
	SocialHandles map[string]string `json:"social_handles,omitempty"`
	PhoneNumbers  []string          `json:"phone_numbers,omitempty"`
}

// Empty reports whether the record carries no contact data at all.
func (r ContactRecord) Empty() bool {
	return r.Email == "" &&
		len(r.Websites) == 0 &&
		len(r.SocialHandles) == 0 &&
		len(r.PhoneNumbers) == 0
}
