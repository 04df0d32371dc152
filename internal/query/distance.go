package query

import (
	"unicode/utf8"

	edlib "github.com/hbollon/go-edlib"
)

// withinDistance reports the optimal string alignment distance between a and
// b when it is at most limit. Pairs whose lengths alone differ by more than
// limit are rejected without running the alignment.
func withinDistance(a, b string, limit int) (int, bool) {
	if abs(utf8.RuneCountInString(a)-utf8.RuneCountInString(b)) > limit {
		return 0, false
	}
	d := edlib.OSADamerauLevenshteinDistance(a, b)
	return d, d <= limit
}

// maxCorrectionDistance bounds spelling correction by token length.
func maxCorrectionDistance(n int) int {
	switch {
	case n < 4:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}
