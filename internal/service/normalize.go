package service

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var mobilePhoneRe = regexp.MustCompile(`^01[016789][0-9]{7,8}$`)

// NormalizePhone reduces a phone number to domestic digits. The +82 country
// prefix becomes a leading zero, so "+82 10-1234-5678" and "010.1234.5678"
// both yield "01012345678". ok is false when the result is not a mobile
// number.
func NormalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(raw, "+82") || (strings.HasPrefix(digits, "82") && len(digits) >= 11 && !strings.HasPrefix(digits, "0")) {
		digits = "0" + strings.TrimPrefix(strings.TrimPrefix(digits, "82"), "0")
	}
	if !mobilePhoneRe.MatchString(digits) {
		return "", false
	}
	return digits, true
}

func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}

// MaskEmail keeps the first two characters of the local part:
// "kimvet@example.com" becomes "ki****@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return maskTail(email, 2)
	}
	return maskTail(email[:at], 2) + email[at:]
}

// MaskUsername keeps the first two characters.
func MaskUsername(username string) string {
	return maskTail(username, 2)
}

// MaskPhone keeps the carrier prefix and the last four digits.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return strings.Repeat("*", len(phone))
	}
	return phone[:3] + strings.Repeat("*", len(phone)-7) + phone[len(phone)-4:]
}

func maskTail(s string, keep int) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}
	if n <= keep {
		keep = 1
	}
	runes := []rune(s)
	return string(runes[:keep]) + strings.Repeat("*", n-keep)
}
