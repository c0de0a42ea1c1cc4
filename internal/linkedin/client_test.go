package linkedin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/steelproxy/licscraper/internal/fingerprint"
)

// fakeLinkedIn stands in for the auth and voyager endpoints.
func fakeLinkedIn(t *testing.T, loginResult string, contacts map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/uas/authenticate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// LinkedIn quotes the cookie value; the client must strip the quotes.
			w.Header().Add("Set-Cookie", `JSESSIONID="ajax:123456"; Path=/`)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		if r.FormValue("session_key") == "" || r.FormValue("session_password") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Csrf-Token") != "ajax:123456" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"login_result":"` + loginResult + `"}`))
	})

	mux.HandleFunc("/voyager/api/identity/profiles/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Csrf-Token") != "ajax:123456" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		for id, body := range contacts {
			if r.URL.Path == "/voyager/api/identity/profiles/"+id+"/profileContactInfo" {
				_, _ = w.Write([]byte(body))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:     baseURL,
		Fingerprint: fingerprint.ProfileGo,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestClient_LoginAndContactInfo(t *testing.T) {
	ts := fakeLinkedIn(t, "PASS", map[string]string{
		"jane-doe-123": `{
			"emailAddress": "j@x.com",
			"websites": [{"url": "https://janedoe.example.com"}],
			"twitterHandles": [{"name": "janedoe"}, {"name": "janedoe_work"}],
			"phoneNumbers": [{"number": "555-0100"}]
		}`,
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	ctx := context.Background()

	if err := c.Login(ctx, "user@example.com", "hunter2"); err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	rec, err := c.ContactInfo(ctx, "jane-doe-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected a contact record")
	}
	if rec.Email != "j@x.com" {
		t.Errorf("expected email j@x.com, got %q", rec.Email)
	}
	if len(rec.Websites) != 1 || rec.Websites[0] != "https://janedoe.example.com" {
		t.Errorf("unexpected websites %v", rec.Websites)
	}
	if rec.SocialHandles["twitter"] != "janedoe, janedoe_work" {
		t.Errorf("expected both twitter handles, got %v", rec.SocialHandles)
	}
	if len(rec.PhoneNumbers) != 1 || rec.PhoneNumbers[0] != "555-0100" {
		t.Errorf("unexpected phone numbers %v", rec.PhoneNumbers)
	}
}

func TestClient_LoginBadCredentials(t *testing.T) {
	ts := fakeLinkedIn(t, "BAD_PASSWORD", nil)
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	err := c.Login(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestClient_LoginChallenge(t *testing.T) {
	ts := fakeLinkedIn(t, "CHALLENGE", nil)
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	err := c.Login(context.Background(), "user@example.com", "hunter2")
	if !errors.Is(err, ErrChallenged) {
		t.Fatalf("expected ErrChallenged, got %v", err)
	}
}

func TestClient_ContactInfoRequiresLogin(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	if _, err := c.ContactInfo(context.Background(), "x"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestClient_ContactInfoNotFound(t *testing.T) {
	ts := fakeLinkedIn(t, "PASS", nil)
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	ctx := context.Background()
	if err := c.Login(ctx, "u", "p"); err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	_, err := c.ContactInfo(ctx, "nobody-here")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_ContactInfoEmptyPayload(t *testing.T) {
	ts := fakeLinkedIn(t, "PASS", map[string]string{
		"ghost": `{"emailAddress": "", "websites": [], "twitterHandles": [], "phoneNumbers": []}`,
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	ctx := context.Background()
	if err := c.Login(ctx, "u", "p"); err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	rec, err := c.ContactInfo(ctx, "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for empty payload, got %+v", rec)
	}
}

func TestDetectChallenge(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"challenge result", `{"login_result":"CHALLENGE"}`, true},
		{"checkpoint url", `{"challenge_url":"https://www.linkedin.com/checkpoint/challenge/abc"}`, true},
		{"captcha wall", `<html>please complete this CAPTCHA</html>`, true},
		{"pass", `{"login_result":"PASS"}`, false},
		{"bad password", `{"login_result":"BAD_PASSWORD"}`, false},
		{"empty", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectChallenge([]byte(tt.body)); got != tt.want {
				t.Errorf("detectChallenge(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}
