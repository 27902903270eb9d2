package money

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3.038,08", "3038.08"},
		{"R$ 3.038,08", "3038.08"},
		{"R$250,00", "250"},
		{"89,90", "89.9"},
		{"1.234.567,89", "1234567.89"},
		{"  R$ 10,50  ", "10.5"},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, got.String(), tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "R$"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error", in)
		}
	}
}

func TestMax(t *testing.T) {
	text := "Item A R$ 250,00\nItem B R$ 89,90\nTotal R$ 3.038,08"
	got, ok := Max(text)
	if !ok {
		t.Fatal("Max found no amounts")
	}
	if got.String() != "3038.08" {
		t.Errorf("Max = %s, want 3038.08", got.String())
	}
}

func TestMaxEmpty(t *testing.T) {
	if _, ok := Max("no amounts here"); ok {
		t.Error("Max on amount-free text should report false")
	}
}

func TestScanAll(t *testing.T) {
	text := "R$ 10,00 plus R$ 20,50 equals 30,50"
	values := ScanAll(text)
	if len(values) != 3 {
		t.Fatalf("ScanAll found %d values, want 3", len(values))
	}
}

func TestCounts(t *testing.T) {
	text := "R$ 10,00 and R$ 20,00 and 5,00"
	if got := CountCurrencyTokens(text); got != 2 {
		t.Errorf("CountCurrencyTokens = %d, want 2", got)
	}
	if got := CountValueTokens(text); got != 3 {
		t.Errorf("CountValueTokens = %d, want 3", got)
	}
}
