package live

import (
	"fmt"
	"strings"
)

// semesterCodes maps a semester name to the class-search term code.
var semesterCodes = map[string]string{
	"spring 2026": "4262",
	"fall 2025":   "4258",
	"summer 2025": "4254",
	"spring 2025": "4252",
}

// NormalizeSemester canonicalizes "SPRING  2026" to "spring 2026".
func NormalizeSemester(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// SemesterCode returns the term code for a semester name.
func SemesterCode(name string) (string, error) {
	code, ok := semesterCodes[NormalizeSemester(name)]
	if !ok {
		return "", fmt.Errorf("unknown semester %q", name)
	}
	return code, nil
}

// keySemester is the semester as it appears in cache keys.
func keySemester(name string) string {
	return strings.ReplaceAll(NormalizeSemester(name), " ", "-")
}
