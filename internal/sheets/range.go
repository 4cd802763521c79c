package sheets

// ColumnLetter converts a 1-based column number to its spreadsheet letter
// using bijective base-26 numbering: 1→A, 26→Z, 27→AA.
func ColumnLetter(n int) string {
	result := ""
	for n > 0 {
		n--
		result = string(rune('A'+n%26)) + result
		n /= 26
	}
	return result
}
