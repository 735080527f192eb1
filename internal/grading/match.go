package grading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-omr/internal/extract"
)

// ErrKeyMismatch means the answers and the key come from different
// template versions.
var ErrKeyMismatch = errors.New("answer key does not match template")

// Key holds the correct option label of each question, in template order.
type Key []string

// NewKey trims entries and maps them case-insensitively onto the template's
// option labels.
func NewKey(entries, options []string) (Key, error) {
	key := make(Key, len(entries))
	for i, e := range entries {
		e = strings.TrimSpace(e)
		found := false
		for _, o := range options {
			if strings.EqualFold(e, o) {
				key[i], found = o, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: entry %d %q is not one of %v", ErrKeyMismatch, i, e, options)
		}
	}
	return key, nil
}

// Match counts the answers equal to the key at the same position. Ambiguous
// and unmarked answers never count.
func Match(answers []extract.Answer, key Key) (aciertos, total int, err error) {
	if len(answers) != len(key) {
		return 0, 0, fmt.Errorf("%w: %d answers, %d key entries", ErrKeyMismatch, len(answers), len(key))
	}
	for i, a := range answers {
		if a.Status == extract.Marked && a.Option == key[i] {
			aciertos++
		}
	}
	return aciertos, len(key), nil
}
