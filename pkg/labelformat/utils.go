package labelformat

// isNameStartChar checks if a character can start a field name.
func isNameStartChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// isNameChar checks if a character can be part of a field name.
func isNameChar(c byte) bool {
	return isNameStartChar(c) || (c >= '0' && c <= '9')
}

// isValidName reports whether s is a usable field name.
func isValidName(s string) bool {
	if s == "" || !isNameStartChar(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameChar(s[i]) {
			return false
		}
	}
	return true
}
