package handlers

import (
	"net/http/httptest"
	"testing"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		allowed     []string
		origin      string
		host        string
		wantAllowed bool
		wantTrusted bool
	}{
		{allowed: []string{"*"}, origin: "https://evil.test", host: "app.test", wantAllowed: true, wantTrusted: false},
		{allowed: []string{"*"}, origin: "https://app.test", host: "app.test", wantAllowed: true, wantTrusted: true},
		{allowed: []string{"https://app.test"}, origin: "https://app.test", host: "internal:8080", wantAllowed: true, wantTrusted: true},
		{allowed: []string{"https://app.test/"}, origin: "https://app.test", host: "internal:8080", wantAllowed: true, wantTrusted: true},
		{allowed: nil, origin: "http://localhost:8080", host: "localhost:8080", wantAllowed: true, wantTrusted: true},
		{allowed: nil, origin: "", host: "localhost:8080", wantAllowed: true, wantTrusted: true},
		{allowed: []string{"https://app.test"}, origin: "https://evil.test", host: "app.test", wantAllowed: false, wantTrusted: false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/ws", nil)
		req.Host = tt.host
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		p := newOriginPolicy(tt.allowed)
		if got := p.allowed(req); got != tt.wantAllowed {
			t.Errorf("allowed=%v origin=%q host=%q: allowed got %v, want %v", tt.allowed, tt.origin, tt.host, got, tt.wantAllowed)
		}
		if got := p.trusted(req); got != tt.wantTrusted {
			t.Errorf("allowed=%v origin=%q host=%q: trusted got %v, want %v", tt.allowed, tt.origin, tt.host, got, tt.wantTrusted)
		}
	}
}
