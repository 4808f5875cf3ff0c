package intake

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// ReconcileHeaders returns the existing headers followed by every expected
// header which is not present yet. Existing columns are never reordered or
// removed. The second return value reports whether the header row changed.
func ReconcileHeaders(expected, existing []string) ([]string, bool) {
	present := mapset.NewThreadUnsafeSet[string](existing...)

	reconciled := make([]string, 0, len(existing)+len(expected))
	reconciled = append(reconciled, existing...)
	for _, key := range expected {
		if present.Contains(key) {
			continue
		}
		present.Add(key)
		reconciled = append(reconciled, key)
	}

	return reconciled, len(reconciled) != len(existing)
}

// NeedsLabelRow reports whether a sheet has no header row at all
func NeedsLabelRow(existing []string) bool {
	return len(TrimHeaders(existing)) == 0
}

// TrimHeaders removes the blank trailing cells of a header row
func TrimHeaders(headers []string) []string {
	end := len(headers)
	for end > 0 && strings.TrimSpace(headers[end-1]) == "" {
		end--
	}
	return headers[:end]
}
