// Package validation holds the field rules and the payment validation
// dispatcher used by the reservation flow.  Every function is pure and
// reports problems through return values; nothing here panics on bad
// input.
package validation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// HomeCountry is the operator's ISO country code.  Bank accounts with
// this prefix must also pass the national IBAN format.
const HomeCountry = "PK"

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern     = regexp.MustCompile(`^03\d{9}$`)
	digitsPattern     = regexp.MustCompile(`^\d+$`)
	holderPattern     = regexp.MustCompile(`^[A-Za-z '-]+$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
	ibanPattern       = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{11,30}$`)
	homeIBANPattern   = regexp.MustCompile(`^PK\d{2}[A-Z]{4}\d{16}$`)
	separatorReplacer = strings.NewReplacer(" ", "", "\t", "", "-", "")
)

// stripSeparators removes whitespace and hyphens.
func stripSeparators(s string) string {
	return separatorReplacer.Replace(strings.TrimSpace(s))
}

// IsEmail reports whether s looks like an e-mail address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeMobile strips separators and rewrites an international
// prefix (+92, 0092 or 92) to the local leading zero.
func NormalizeMobile(s string) string {
	n := stripSeparators(s)
	switch {
	case strings.HasPrefix(n, "+92"):
		n = "0" + n[3:]
	case strings.HasPrefix(n, "0092"):
		n = "0" + n[4:]
	case strings.HasPrefix(n, "92") && len(n) == 12:
		n = "0" + n[2:]
	}
	return n
}

// IsMobile reports whether s is a national mobile number once
// normalized.
func IsMobile(s string) bool {
	return mobilePattern.MatchString(NormalizeMobile(s))
}

// Luhn reports whether the digit string passes the Luhn checksum.
// Every second digit from the right is doubled, 9 is subtracted from
// results above 9, and the sum must be divisible by 10.
func Luhn(digits string) bool {
	if digits == "" || !digitsPattern.MatchString(digits) {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// IsCardNumber checks length (13–19 digits) and the Luhn checksum after
// stripping separators.
func IsCardNumber(s string) bool {
	n := stripSeparators(s)
	if len(n) < 13 || len(n) > 19 {
		return false
	}
	return Luhn(n)
}

// IsCardHolder accepts 2–60 letters, spaces, hyphens and apostrophes.
func IsCardHolder(s string) bool {
	n := strings.TrimSpace(s)
	l := utf8.RuneCountInString(n)
	return l >= 2 && l <= 60 && holderPattern.MatchString(n)
}

// ParseExpiry parses MM/YY into the first instant of the named month in
// loc.  ok is false when the format is wrong.
func ParseExpiry(s string, loc *time.Location) (time.Time, bool) {
	m := expiryPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	return time.Date(2000+year, time.Month(month), 1, 0, 0, 0, 0, loc), true
}

// ExpiryInFuture reports whether the first day of the card's named
// month is strictly after now.
func ExpiryInFuture(s string, now time.Time) bool {
	start, ok := ParseExpiry(s, now.Location())
	return ok && start.After(now)
}

// IsCVV accepts three or four digits.
func IsCVV(s string) bool {
	return cvvPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeIBAN upper-cases and strips separators.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(stripSeparators(s))
}

// IsIBAN checks the general country+check-digit pattern and, for the
// home country, the stricter national format.
func IsIBAN(s string) bool {
	n := NormalizeIBAN(s)
	if !ibanPattern.MatchString(n) {
		return false
	}
	if strings.HasPrefix(n, HomeCountry) {
		return homeIBANPattern.MatchString(n)
	}
	return true
}

// LengthBetween reports whether the trimmed rune length of s lies in
// [lo, hi].
func LengthBetween(s string, lo, hi int) bool {
	l := utf8.RuneCountInString(strings.TrimSpace(s))
	return l >= lo && l <= hi
}
