package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func TestDetectLocale(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		fallback string
		want     string
	}{
		{
			name: "x-locale overrides",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "id")
				r.Header.Set("Accept-Language", "en-US")
			},
			want: "id",
		},
		{
			name: "accept-language used",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US,en;q=0.9")
			},
			want: "en",
		},
		{
			name: "accept-language id preference",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "id-ID,en;q=0.8")
			},
			want: "id",
		},
		{
			name: "unsupported language matched to fallback",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "fr-FR")
			},
			want: "en",
		},
		{
			name: "garbage x-locale",
			setup: func(r *http.Request) {
				r.Header.Set("X-Locale", "!!!")
			},
			want: "en",
		},
		{
			name:     "configured fallback",
			fallback: "id",
			want:     "id",
		},
		{
			name: "default to en",
			want: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			got := detectLocale(req, tc.fallback)
			if got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *http.Request)
		lookup CountryLookup
		want   string
	}{
		{
			name: "edge header wins",
			setup: func(r *http.Request) {
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "ID",
		},
		{
			name: "accept-language region",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "id-ID")
			},
			want: "ID",
		},
		{
			name: "lookup fallback",
			lookup: func(ip string) (string, error) {
				if ip == "" {
					t.Fatal("lookup called with empty ip")
				}
				return "SG", nil
			},
			want: "SG",
		},
		{
			name: "lookup error ignored",
			lookup: func(ip string) (string, error) {
				return "", assertError("geoip down")
			},
			want: "",
		},
		{
			name: "no signal",
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.10:4455"
			if tc.setup != nil {
				tc.setup(req)
			}
			got := ResolveCountry(req, tc.lookup)
			if got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLocaleMiddlewareAnnotatesContext(t *testing.T) {
	var gotLocale, gotCountry string
	handler := Locale("en", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = LocaleFromContext(r.Context())
		gotCountry = CountryFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "id-ID,en;q=0.5")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotLocale != "id" {
		t.Fatalf("locale = %q, want %q", gotLocale, "id")
	}
	if gotCountry != "ID" {
		t.Fatalf("country = %q, want %q", gotCountry, "ID")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:9000"
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ClientIP() = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.9" {
		t.Fatalf("ClientIP() forwarded = %q", got)
	}
}
