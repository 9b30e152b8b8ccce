// Package script loads the reference script the live captions are scored
// against, and can watch the script file for changes so a corrected script
// can be swapped in without restarting the monitor.
package script

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrEmpty is returned by Load when the script file contains no text.
var ErrEmpty = errors.New("script file is empty")

// Load reads the UTF-8 script file at path and returns its text with all
// whitespace runs (including line breaks) collapsed to single spaces, which
// is the form the alignment engine tokenizes.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("script: read %q: %w", path, err)
	}
	text, err := Parse(data)
	if err != nil {
		return "", fmt.Errorf("script: %q: %w", path, err)
	}
	return text, nil
}

// Parse converts raw script file bytes into the single-line reference text.
func Parse(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("script file is not valid UTF-8")
	}
	text := strings.Join(strings.Fields(string(data)), " ")
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}
