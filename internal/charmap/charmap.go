// Package charmap maps characters to integer codes using a table file.
//
// The table file holds one "<character> <integer>" pair per line, e.g. the
// Vietnamese alphabet numbered for model training. Blank lines are ignored.
package charmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrUnknownCharacter is returned when a character has no code.
	ErrUnknownCharacter = errors.New("unknown character")

	// ErrUnknownCode is returned when no character has the code.
	ErrUnknownCode = errors.New("unknown code")

	// ErrMalformedLine is returned for a table line that is not a character
	// followed by an integer.
	ErrMalformedLine = errors.New("malformed table line")
)

// Table is a character to code mapping.
// A character listed twice keeps the later code. A code shared by several
// characters decodes to the one listed first.
type Table struct {
	codes map[string]int
	chars map[int]string
	order []string
}

// Load reads a table file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("open character table: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads a table from r.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{codes: make(map[string]int), chars: make(map[int]string)}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w %d: %q", ErrMalformedLine, line, sc.Text())
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformedLine, line, err)
		}
		char := norm.NFC.String(fields[0])
		if _, ok := t.codes[char]; !ok {
			t.order = append(t.order, char)
		}
		t.codes[char] = code
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, char := range t.order {
		code := t.codes[char]
		if _, ok := t.chars[code]; !ok {
			t.chars[code] = char
		}
	}
	return t, nil
}

// Len returns the number of distinct characters.
func (t *Table) Len() int {
	return len(t.order)
}

// Encode returns the code of char.
func (t *Table) Encode(char string) (int, error) {
	code, ok := t.codes[norm.NFC.String(char)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCharacter, char)
	}
	return code, nil
}

// Decode returns the character with the given code.
func (t *Table) Decode(code int) (string, error) {
	char, ok := t.chars[code]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	return char, nil
}

// EncodeWord encodes each character of word.
func (t *Table) EncodeWord(word string) ([]int, error) {
	word = norm.NFC.String(word)
	codes := make([]int, 0, len(word))
	for _, r := range word {
		code, err := t.Encode(string(r))
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// DecodeWord joins the characters of codes.
func (t *Table) DecodeWord(codes []int) (string, error) {
	var sb strings.Builder
	for _, code := range codes {
		char, err := t.Decode(code)
		if err != nil {
			return "", err
		}
		sb.WriteString(char)
	}
	return sb.String(), nil
}
