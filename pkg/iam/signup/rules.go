package signup

import (
	"bufio"
	_ "embed"
	"regexp"
	"strings"
)

const (
	LoginMaxLength    = 128
	NicknameMaxLength = 128
	PasswordMinLength = 12
	PasswordMaxLength = 128
)

var emailPattern = regexp.MustCompile(`^[\w\-\.]+@([\w-]+\.)+[\w-]{2,}$`)

//go:embed common_passwords.txt
var commonPasswordList string

var commonPasswords = loadSet(commonPasswordList)

// DefaultRestrictedNicknames are reserved for the service itself.
var DefaultRestrictedNicknames = []string{
	"root", "system", "support", "keygate", "anonymous", "null", "undefined",
}

func loadSet(list string) map[string]struct{} {
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(list))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			set[strings.ToLower(line)] = struct{}{}
		}
	}
	return set
}

// isIdentifierChar is the allow-list shared by logins and nicknames.
func isIdentifierChar(c rune) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_'
}

// isPasswordChar accepts printable ASCII, space included.
func isPasswordChar(c rune) bool {
	return c >= 0x20 && c <= 0x7E
}

func allChars(s string, ok func(rune) bool) bool {
	for _, c := range s {
		if !ok(c) {
			return false
		}
	}
	return true
}

// IsCommonPassword reports whether password is on the embedded list.
// The comparison ignores case.
func IsCommonPassword(password string) bool {
	_, found := commonPasswords[strings.ToLower(password)]
	return found
}

// ValidEmail reports whether email matches the accepted address shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
