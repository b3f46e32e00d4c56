package extract_test

import (
	"testing"

	"github.com/mohangy/azii/internal/extract"
)

func TestMpesaCode(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"leading code", "SH12AB34CD Confirmed. Ksh500.00 sent to FASTNET", "SH12AB34CD"},
		{"after label", "Confirmed. Code: qfh3k2l9mn received", "QFH3K2L9MN"},
		{"standard shape", "Paid ref no. SH12AB34CD on 1/2/24", "SH12AB34CD"},
		{"first pattern wins", "ABCDE12345 Confirmed. Code: ZZ11ZZ22ZZ", "ABCDE12345"},
		{"empty", "", ""},
		{"no code", "hello world", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extract.MpesaCode(tt.msg); got != tt.want {
				t.Errorf("MpesaCode(%q) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}

func TestBankReference(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"labelled", "Ref: TXN123456789", "TXN123456789"},
		{"hash separator", "txn#abc12345678", "ABC12345678"},
		{"FT number", "Transfer FT123456789 done", "FT123456789"},
		{"generic", "Paid via KCB12345678 today", "KCB12345678"},
		{"none", "cash paid at office", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extract.BankReference(tt.msg); got != tt.want {
				t.Errorf("BankReference(%q) = %q, want %q", tt.msg, got, tt.want)
			}
		})
	}
}

func TestReference_UnknownKind(t *testing.T) {
	if _, ok := extract.Reference("cheque", "anything"); ok {
		t.Error("expected unknown kind to be rejected")
	}
	if got, ok := extract.Reference(extract.KindBank, "Ref: TXN123456789"); !ok || got != "TXN123456789" {
		t.Errorf("unexpected result %q %v", got, ok)
	}
}
