// Package extract pulls payment references out of free-text payment messages.
//
// Each extractor tries its patterns in a fixed order and returns the first
// match, uppercased. Patterns are case-insensitive.
package extract

import (
	"regexp"
	"strings"
)

var mpesaPatterns = []*regexp.Regexp{
	// confirmation SMS starting with the code, e.g. "QFH3K2L9MN Confirmed. ..."
	regexp.MustCompile(`(?i)^([A-Z0-9]{10})\s`),
	regexp.MustCompile(`(?i)(?:code|ref|reference|transaction)[\s:]+([A-Z0-9]{10})`),
	regexp.MustCompile(`(?i)\b([A-Z]{2}\d{2}[A-Z]{2}\d{2}[A-Z]{2})\b`),
}

var bankPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:ref(?:erence)?|transaction|txn)[\s:#]+([A-Z0-9]{8,20})`),
	regexp.MustCompile(`(?i)\b(FT\d{9,})\b`),
	regexp.MustCompile(`(?i)\b([A-Z]{2,4}\d{8,})\b`),
}

// MpesaCode returns the M-Pesa transaction code in message, or "".
func MpesaCode(message string) string {
	return firstMatch(mpesaPatterns, strings.TrimSpace(message))
}

// BankReference returns the bank transfer reference in message, or "".
func BankReference(message string) string {
	return firstMatch(bankPatterns, strings.TrimSpace(message))
}

// Kind names an extractor.
type Kind string

const (
	KindMpesa Kind = "mpesa"
	KindBank  Kind = "bank"
)

// Reference runs the extractor for kind. Unknown kinds report false.
func Reference(kind Kind, message string) (string, bool) {
	switch kind {
	case KindMpesa:
		return MpesaCode(message), true
	case KindBank:
		return BankReference(message), true
	}
	return "", false
}

func firstMatch(patterns []*regexp.Regexp, s string) string {
	if s == "" {
		return ""
	}
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}
