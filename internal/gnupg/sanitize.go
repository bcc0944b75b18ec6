package gnupg

import "strings"

// unsafeChars are the characters that could alter argument-list parsing if a
// token ever undergoes shell interpretation. Arguments are passed to gpg as a
// discrete list, so rejection here is defense in depth, not the only barrier.
const unsafeChars = "`$&|;<>(){}[]!?*~#'\"\\ \t\n\r"

// sanitize validates an externally supplied token (key id, fingerprint,
// keyserver name, algorithm name) before it is inserted into an argument
// list. It returns the token unchanged, or an *UnsafeInputError if the token
// contains shell metacharacters or control characters.
func sanitize(token string) (string, error) {
	for _, r := range token {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(unsafeChars, r) {
			return "", &UnsafeInputError{Token: token}
		}
	}
	return token, nil
}

// sanitizeAll validates each token in turn, returning the first error.
func sanitizeAll(tokens []string) ([]string, error) {
	for _, token := range tokens {
		if _, err := sanitize(token); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}
