// Package org handles organization registration and the invite codes
// guards use to enroll. Registration creates the organization and its
// first admin account in one transaction.
package org

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Slugify lowercases the name and collapses every non-alphanumeric run
// into a single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NewInviteCode builds a human-readable enrollment code: up to four
// leading letters of the slug, uppercased, plus four random hex chars.
func NewInviteCode(slug string) (string, error) {
	prefix := strings.ToUpper(strings.ReplaceAll(slug, "-", ""))
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	if prefix == "" {
		prefix = "ORG"
	}
	suffix := make([]byte, 2)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("invite code entropy: %w", err)
	}
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(suffix)), nil
}
