package analyze

import "strings"

const fence = "```"

// Normalize strips markdown code fences that models commonly wrap JSON in.
//
// A leading language-tagged fence ("```json") yields the fenced interior.
// A leading bare fence whose closing fence sits alone on the last line yields
// everything between the first and last line, provided there are more than
// two lines. Anything else is returned trimmed. The unwrap is repeated until
// nothing changes, so Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	out := strings.TrimSpace(raw)
	for {
		next := unwrapOnce(out)
		if next == out {
			return out
		}
		out = next
	}
}

func unwrapOnce(s string) string {
	if !strings.HasPrefix(s, fence) {
		return s
	}

	firstLine, rest, hasNewline := strings.Cut(s, "\n")
	tag := strings.TrimSpace(strings.TrimPrefix(firstLine, fence))

	if tag != "" && !strings.HasPrefix(tag, "`") {
		if !hasNewline {
			return s
		}
		// Interior runs to the next fence, or to the end when it is unterminated
		if idx := strings.Index(rest, fence); idx >= 0 {
			rest = rest[:idx]
		}
		return strings.TrimSpace(rest)
	}

	if tag != "" {
		return s
	}

	lines := strings.Split(s, "\n")
	if len(lines) <= 2 {
		return s
	}
	if strings.TrimSpace(lines[len(lines)-1]) != fence {
		return s
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
