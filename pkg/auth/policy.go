package auth

import (
	"unicode"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

const minMasterPasswordLength = 12

// ValidateMasterPassword enforces the master-password policy: at least 12
// characters and at least 3 of the 4 classes lower/upper/digit/symbol.
func ValidateMasterPassword(candidate string) error {
	runes := []rune(candidate)
	if len(runes) < minMasterPasswordLength {
		return errdefs.Config("weak master password: use at least 12 characters")
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range runes {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case !isASCIIAlphanumeric(r) && !unicode.IsSpace(r):
			hasSymbol = true
		}
	}

	classes := 0
	for _, present := range []bool{hasLower, hasUpper, hasDigit, hasSymbol} {
		if present {
			classes++
		}
	}
	if classes < 3 {
		return errdefs.Config("weak master password: use at least 3 of upper/lower/digit/symbol")
	}
	return nil
}

func isASCIIAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
