package templates

import (
	"strings"
	"unicode"
)

// exported turns a manifest name such as "user_id", "SET-USER" or "title"
// into an exported Go identifier.
func exported(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if sb.Len() == 0 && unicode.IsDigit(r) {
			sb.WriteByte('X')
		}
		if upper {
			sb.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// constName lowercases all-caps words before exporting them, so LOGIN_USER
// becomes LoginUser.
func constName(name string) string {
	if strings.ToUpper(name) == name {
		name = strings.ToLower(name)
	}
	return exported(name)
}
