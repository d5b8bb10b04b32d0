package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12", 1200, false},
		{"0.01", 1, false},
		{".5", 50, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"", 0, true},
		{"0", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"12.3a", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDecimalToCents(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalToCents(%q) expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalToCents(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{5, "0.05"},
		{120000, "1200.00"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
