package models

import "testing"

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"abc", "****"},
		{"abcd", "****"},
		{"3-abcdef-1234", "****1234"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := MaskSecret(tt.input); got != tt.expected {
				t.Errorf("MaskSecret(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestProfileToResponseDefaultsCurrency(t *testing.T) {
	p := &Profile{ID: "user-1", BricksetAPIKey: "3-xxxx-yyyy-zzzz"}
	resp := p.ToResponse()

	if resp.Currency != DefaultCurrency {
		t.Errorf("expected default currency %s, got %s", DefaultCurrency, resp.Currency)
	}
	if resp.BricksetAPIKey != "****zzzz" {
		t.Errorf("expected masked key, got %s", resp.BricksetAPIKey)
	}
}
