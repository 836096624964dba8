package kit

import (
	"net/http"
	"net/netip"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("1.1.1.1") || !l.Allow("1.1.1.1") {
		t.Fatalf("first two hits should pass")
	}
	if l.Allow("1.1.1.1") {
		t.Fatalf("third hit should be limited")
	}
	if !l.Allow("2.2.2.2") {
		t.Fatalf("other ip should pass")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow("1.1.1.1") {
		t.Fatalf("window should have slid")
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/items", nil)
	req.RemoteAddr = "198.51.100.7:4000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("retry-after=%q", rec.Header().Get("Retry-After"))
	}
}

func TestIPRateLimiter_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i, xff := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		req := httptest.NewRequest(http.MethodPost, "/items", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", xff)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		want := http.StatusTooManyRequests
		if i == 0 {
			want = http.StatusNoContent
		}
		if rec.Code != want {
			t.Fatalf("request %d with xff %s: status=%d want %d", i, xff, rec.Code, want)
		}
	}
}

func TestIPRateLimiter_TrustedProxyForwardsClient(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute, netip.MustParsePrefix("10.0.0.0/8"))
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/items", nil)
		req.RemoteAddr = "10.1.2.3:4000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("203.0.113.9"); code != http.StatusNoContent {
		t.Fatalf("first client status=%d", code)
	}
	if code := send("203.0.113.10"); code != http.StatusNoContent {
		t.Fatalf("second client status=%d", code)
	}
	// A spoofed left-most entry does not change the hop the proxy appended.
	if code := send("192.0.2.55, 203.0.113.9"); code != http.StatusTooManyRequests {
		t.Fatalf("spoofed prefix status=%d", code)
	}
}

func TestClientIP(t *testing.T) {
	trusted := NewIPRateLimiter(1, time.Minute,
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.1/32"),
	)
	untrusted := NewIPRateLimiter(1, time.Minute)

	tests := []struct {
		name   string
		l      *IPRateLimiter
		remote string
		xff    []string
		want   string
	}{
		{name: "remote addr", l: untrusted, remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "untrusted peer ignores xff", l: untrusted, remote: "192.0.2.1:1234", xff: []string{"203.0.113.9"}, want: "192.0.2.1"},
		{name: "trusted peer uses xff", l: trusted, remote: "10.0.0.5:80", xff: []string{" 203.0.113.9 "}, want: "203.0.113.9"},
		{name: "rightmost untrusted hop", l: trusted, remote: "10.0.0.5:80", xff: []string{"1.1.1.1, 203.0.113.9, 192.168.1.1"}, want: "203.0.113.9"},
		{name: "repeated headers", l: trusted, remote: "10.0.0.5:80", xff: []string{"1.1.1.1", "203.0.113.9, 10.2.2.2"}, want: "203.0.113.9"},
		{name: "garbage stops at last good hop", l: trusted, remote: "10.0.0.5:80", xff: []string{"203.0.113.9, nope, 10.2.2.2"}, want: "10.2.2.2"},
		{name: "all trusted", l: trusted, remote: "10.0.0.5:80", xff: []string{"10.9.9.9"}, want: "10.9.9.9"},
		{name: "no xff", l: trusted, remote: "10.0.0.5:80", want: "10.0.0.5"},
		{name: "mapped peer", l: trusted, remote: "[::ffff:10.0.0.5]:80", xff: []string{"203.0.113.9"}, want: "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				r.Header.Add("X-Forwarded-For", v)
			}
			if got := tt.l.clientIP(r); got != tt.want {
				t.Fatalf("clientIP=%q want %q", got, tt.want)
			}
		})
	}
}
