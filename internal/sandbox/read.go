package sandbox

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

const maxReadChars = 100_000

// ReadFile returns the file's contents, UTF-8 decoded with replacement
// for invalid bytes and truncated to 100,000 characters with a suffix
// noting the original size, per spec.md §4.4.
func (s *Sandbox) ReadFile(path string) string {
	resolved := s.resolvePath(path)

	info, err := os.Stat(resolved)
	if err != nil || info.IsDir() {
		return errResult("File not found: %s", path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return errResult("reading %s: %s", path, err)
	}

	content := toValidUTF8(data)
	if utf8.RuneCountInString(content) <= maxReadChars {
		return content
	}

	runes := []rune(content)
	truncated := string(runes[:maxReadChars])
	return fmt.Sprintf("%s\n\n... (truncated, file is %d chars)", truncated, len(runes))
}

func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
