package institution

import (
	"testing"

	"github.com/finparse/financial-parser/constants"
)

func TestDetect(t *testing.T) {
	d := NewDetector(NewRegistry())

	tests := []struct {
		name    string
		text    string
		wantKey constants.Institution
	}{
		{"nubank by name", "Nubank\nOlá, esta é a sua fatura", constants.Nubank},
		{"inter by name", "Banco Inter S.A.\nFatura do cartão", constants.Inter},
		{"c6 by name", "C6 Bank fatura C6 Bank", constants.C6},
		{"picpay by name", "PicPay Serviços\nFatura do cartão PicPay", constants.PicPay},
		{"itau by name", "Itaú Unibanco extrato Itaú", constants.Itau},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Detect(tt.text)
			if !ok {
				t.Fatal("Detect found nothing")
			}
			if got.Key != string(tt.wantKey) {
				t.Errorf("Detect = %s, want %s", got.Key, tt.wantKey)
			}
		})
	}
}

func TestDetectNothing(t *testing.T) {
	d := NewDetector(NewRegistry())
	if _, ok := d.Detect("um documento qualquer sem banco nenhum"); ok {
		t.Error("Detect should find nothing in bankless text")
	}
}

func TestDetectConfidenceSaturates(t *testing.T) {
	d := NewDetector(NewRegistry())

	weak, ok := d.Detect("nubank")
	if !ok {
		t.Fatal("Detect found nothing")
	}
	if want := 1.0 / 3.0; weak.Confidence != want {
		t.Errorf("single hit confidence = %f, want %f", weak.Confidence, want)
	}

	strong, ok := d.Detect("nubank nubank nubank nu pagamentos roxinho")
	if !ok {
		t.Fatal("Detect found nothing")
	}
	if strong.Confidence != 1.0 {
		t.Errorf("saturated confidence = %f, want 1.0", strong.Confidence)
	}
}

// A tie in signature hits goes to the institution declared first.
func TestDetectTieBreak(t *testing.T) {
	d := NewDetector(NewRegistry())

	got, ok := d.Detect("nubank e bradesco no mesmo documento")
	if !ok {
		t.Fatal("Detect found nothing")
	}
	if got.Key != string(constants.Nubank) {
		t.Errorf("tie went to %s, want %s", got.Key, constants.Nubank)
	}
}

func TestTaxIDFor(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		key  string
		want string
	}{
		{"nubank", "18.236.120/0001-58"},
		{"inter", "00.416.968/0001-01"},
		{"c6 bank", "31.872.495/0001-72"},
		{"picpay", "14.176.050/0001-70"},
		{"itau unibanco", "60.701.190/0001-04"}, // alias
		{"bb", "00.000.000/0001-91"},            // alias
	}
	for _, tt := range tests {
		got, ok := r.TaxIDFor(tt.key)
		if !ok {
			t.Errorf("TaxIDFor(%q) found nothing", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("TaxIDFor(%q) = %s, want %s", tt.key, got, tt.want)
		}
	}

	if _, ok := r.TaxIDFor("banco inexistente xyz"); ok {
		t.Error("TaxIDFor on unknown name should report false")
	}
}

func TestIdentify(t *testing.T) {
	r := NewRegistry()
	name, taxID, ok := r.Identify("Olá, aqui é o Nubank falando")
	if !ok {
		t.Fatal("Identify found nothing")
	}
	if name != "Nubank" || taxID != "18.236.120/0001-58" {
		t.Errorf("Identify = %s / %s", name, taxID)
	}
}

func TestFormatTaxID(t *testing.T) {
	if got := FormatTaxID("18236120000158"); got != "18.236.120/0001-58" {
		t.Errorf("FormatTaxID = %s", got)
	}
	// wrong digit count passes through unchanged
	if got := FormatTaxID("123"); got != "123" {
		t.Errorf("FormatTaxID short input = %s", got)
	}
}
