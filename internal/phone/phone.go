package phone

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// French mobile numbers only: +33 followed by 6 or 7 and 8 digits.
var (
	validRe      = regexp.MustCompile(`^\+33[67]\d{8}$`)
	localRe      = regexp.MustCompile(`^0[67]\d{8}$`)
	barePrefixRe = regexp.MustCompile(`^33[67]\d{8}$`)
)

var ErrInvalid = errors.New("invalid french mobile number")

// Number is a validated phone number in E.164 format.
// The only way to obtain one is Parse.
type Number struct {
	e164 string
}

func (n Number) E164() string { return n.e164 }

func (n Number) String() string { return n.e164 }

// Hash returns a hex SHA-256 of the number salted with secret.
// The ledger stores this instead of the raw phone.
func (n Number) Hash(secret string) string {
	return HashString(n.e164, secret)
}

// HashString hashes an arbitrary phone string the same way. Used for audit
// rows of sends that never produced a valid Number.
func HashString(s, secret string) string {
	sum := sha256.Sum256([]byte(s + secret))
	return hex.EncodeToString(sum[:])
}

// Normalize strips separators and rewrites national / bare-country-code
// forms into E.164 (+33...).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for _, sep := range []string{" ", "-", "."} {
		s = strings.ReplaceAll(s, sep, "")
	}
	if localRe.MatchString(s) {
		s = "+33" + s[1:]
	}
	if barePrefixRe.MatchString(s) {
		s = "+" + s
	}
	return s
}

func IsValid(s string) bool {
	return validRe.MatchString(s)
}

// Parse normalizes then validates. No side effects.
func Parse(raw string) (Number, error) {
	s := Normalize(raw)
	if !IsValid(s) {
		return Number{}, ErrInvalid
	}
	return Number{e164: s}, nil
}
