package classifier

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinTextLength is the minimum grievance length in characters after trimming.
const MinTextLength = 10

var ErrInvalidText = errors.New("invalid grievance text")

// Normalize trims the grievance text and rejects empty or too-short input.
func Normalize(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidText)
	}
	if utf8.RuneCountInString(text) < MinTextLength {
		return "", fmt.Errorf("%w: text must be at least %d characters", ErrInvalidText, MinTextLength)
	}
	return text, nil
}
