// Package wordlist maintains a file of unique words gathered from crawled text.
//
// The file holds one lowercase word per line. Words are collected by
// Tokenize, added with Merge, and written back with Save.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultFile is the word list file name used when none is given.
const DefaultFile = "unique_words.txt"

// noise is removed from text before splitting; it is the site watermark.
const noise = "vn"

var lower = cases.Lower(language.Vietnamese)

// List is an ordered set of words backed by a file.
type List struct {
	path  string
	words []string
	seen  map[string]struct{}
}

// Load reads the word list at path, creating an empty file if it does not
// exist. Duplicate words keep their first position.
func Load(path string) (*List, error) {
	l := &List{path: path, seen: make(map[string]struct{})}

	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("create word list: %w", err)
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		l.add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return l, nil
}

// Path returns the file the list was loaded from.
func (l *List) Path() string {
	return l.path
}

// Len returns the number of words.
func (l *List) Len() int {
	return len(l.words)
}

// Words returns a copy of the words in list order.
func (l *List) Words() []string {
	return append([]string(nil), l.words...)
}

// Contains reports whether word is in the list.
func (l *List) Contains(word string) bool {
	_, ok := l.seen[word]
	return ok
}

// Merge adds words to the list and returns the ones that were new, in the
// order they first appeared.
func (l *List) Merge(words []string) []string {
	added := make([]string, 0)
	for _, w := range words {
		if l.add(w) {
			added = append(added, w)
		}
	}
	return added
}

// Save rewrites the file with every word, one per line.
func (l *List) Save() error {
	var sb strings.Builder
	for _, w := range l.words {
		sb.WriteString(w)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(l.path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write word list: %w", err)
	}
	return nil
}

func (l *List) add(w string) bool {
	if w == "" {
		return false
	}
	if _, ok := l.seen[w]; ok {
		return false
	}
	l.seen[w] = struct{}{}
	l.words = append(l.words, w)
	return true
}

// Tokenize splits text into lowercase words.
// Text is normalized to NFC, every non-letter becomes a separator, and the
// "vn" watermark is dropped before lowercasing.
func Tokenize(text string) []string {
	text = norm.NFC.String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return ' '
	}, text)
	text = strings.ReplaceAll(text, noise, " ")

	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		words = append(words, lower.String(f))
	}
	return words
}
