// Package segment splits a scenario's long-form script into ordered
// chunks at question boundaries, so long scene text can be revealed to
// the player incrementally.
package segment

import "strings"

// Split breaks content at each question mark. The delimiter and any
// whitespace that follows it stay attached to the preceding chunk, so
// joining the result reproduces the trimmed input exactly. Content
// without a question mark yields a single trimmed segment; empty or
// whitespace-only content yields nil.
func Split(content string) []string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	var segments []string
	rest := trimmed
	for {
		i := strings.IndexByte(rest, '?')
		if i < 0 {
			break
		}
		end := i + 1
		for end < len(rest) && isSpace(rest[end]) {
			end++
		}
		chunk := rest[:end]
		if strings.TrimSpace(chunk) != "" {
			segments = append(segments, chunk)
		}
		rest = rest[end:]
	}

	if strings.TrimSpace(rest) != "" {
		segments = append(segments, rest)
	}
	return segments
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
