package form

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Field names a bound input of the compose form.
type Field string

const (
	FieldPostType    Field = "post-type"
	FieldDisplayName Field = "display-name"
	FieldHandle      Field = "handle"
	FieldAvatar      Field = "avatar"
	FieldContent     Field = "post-content"
	FieldPostImage   Field = "post-image"
	FieldReposts     Field = "reposts"
	FieldLikes       Field = "likes"
	FieldReplies     Field = "replies"
	FieldDate        Field = "post-date"
	FieldTime        Field = "post-time"
)

// Fields lists every bound input in form order.
var Fields = []Field{
	FieldPostType, FieldDisplayName, FieldHandle, FieldAvatar, FieldContent,
	FieldPostImage, FieldReposts, FieldLikes, FieldReplies, FieldDate, FieldTime,
}

var ErrUnknownField = errors.New("unknown form field")

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// MaxCharacters is the post length budget shown under the content box.
const MaxCharacters = 300

// CountState is the visual state of the character counter.
type CountState string

const (
	CountNormal  CountState = "normal"
	CountWarning CountState = "warning"
	CountOver    CountState = "over"
)

// CharacterCount is the counter feedback for one content value.
type CharacterCount struct {
	Count int        `json:"count"`
	Max   int        `json:"max"`
	State CountState `json:"state"`
}

// CountCharacters measures text against MaxCharacters. It never truncates.
func CountCharacters(text string) CharacterCount {
	n := utf8.RuneCountInString(text)
	state := CountNormal
	switch {
	case n > MaxCharacters:
		state = CountOver
	case n*10 >= MaxCharacters*9:
		state = CountWarning
	}
	return CharacterCount{Count: n, Max: MaxCharacters, State: state}
}

// parseCount reads the leading integer of s the way a number input is
// read: surrounding text is ignored, blanks and garbage are 0 and counts
// never go negative.
func parseCount(s string) int64 {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" {
		return 0
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 || neg {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return math.MaxInt64
	}
	return n
}
