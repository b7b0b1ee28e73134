package crm

import (
	"encoding/base64"
	"unicode"
	"unicode/utf8"
)

// NormalizePassword returns the decoded form of a base64-encoded secret, or s itself.
//
// Some deployments store the CRM password pre-encoded and others in clear text. s is kept
// as-is when it does not decode (padded or unpadded standard alphabet), when it decodes
// to itself, or when the decoded text is not printable (invalid UTF-8 or control characters).
func NormalizePassword(s string) string {
	if s == "" {
		return s
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return s
		}
	}

	text := string(decoded)
	if text == s || !printable(text) {
		return s
	}
	return text
}

func printable(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
