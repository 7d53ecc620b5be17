package signal

import (
	"regexp"
	"strings"
)

// Result is the parsed form of one model response.
type Result struct {
	// NaturalLanguage is the prose with all recognised markup removed and
	// runs of blank lines collapsed to a single blank line.
	NaturalLanguage string

	// Signals are the protocol units in output order.
	Signals []Signal

	// Actions are the extracted action blocks, present only when action
	// parsing was enabled.
	Actions []Action
}

// Options controls a parse.
type Options struct {
	// ParseActions enables extraction of [ACTION: ...] blocks. When false,
	// action markup is treated as plain prose.
	ParseActions bool
}

// Parse splits raw model output into prose, signals, and actions. It never
// fails: anything that does not match the grammar exactly stays in the prose.
func Parse(raw string, opts Options) Result {
	var result Result

	text := raw
	if opts.ParseActions {
		text, result.Actions = extractActions(text)
	}

	lines := strings.Split(text, "\n")
	var prose []string

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if kind, header, ok := matchBlockOpen(trimmed); ok {
			closer := "[/" + MarkerName(kind) + "]"
			end := findBlockClose(lines, i+1, closer)
			if end < 0 {
				// Unclosed block: the opener stays in the prose.
				prose = append(prose, lines[i])
				continue
			}
			body := strings.Join(lines[i+1:end], "\n")
			result.Signals = append(result.Signals, Signal{
				Kind:  kind,
				Value: header,
				Body:  strings.TrimSpace(body),
			})
			i = end
			continue
		}

		if sig, ok := matchLineSignal(trimmed); ok {
			result.Signals = append(result.Signals, sig)
			continue
		}

		prose = append(prose, lines[i])
	}

	result.NaturalLanguage = collapseBlank(strings.Join(prose, "\n"))
	return result
}

// matchLineSignal recognises [NAME: value] and the bare [SESSION_END] when
// they occupy an entire line.
func matchLineSignal(line string) (Signal, bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return Signal{}, false
	}
	inner := line[1 : len(line)-1]

	if inner == "SESSION_END" {
		return Signal{Kind: KindSessionEnd}, true
	}

	name, value, found := strings.Cut(inner, ":")
	if !found {
		return Signal{}, false
	}
	kind, ok := lineMarkers[strings.TrimSpace(name)]
	if !ok {
		return Signal{}, false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		// Required value missing: malformed, stays in prose.
		return Signal{}, false
	}
	return Signal{Kind: kind, Value: value}, true
}

// matchBlockOpen recognises [NAME] and [NAME: header] block openers on their
// own line. Only document drafts accept a header.
func matchBlockOpen(line string) (Kind, string, bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", "", false
	}
	inner := line[1 : len(line)-1]

	name, header, hasHeader := strings.Cut(inner, ":")
	kind, ok := blockMarkers[strings.TrimSpace(name)]
	if !ok {
		return "", "", false
	}
	if hasHeader && kind != KindDocumentDraft {
		return "", "", false
	}
	return kind, strings.TrimSpace(header), true
}

func findBlockClose(lines []string, from int, closer string) int {
	for i := from; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == closer {
			return i
		}
	}
	return -1
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// collapseBlank trims the text and collapses runs of blank lines down to a
// single blank line.
func collapseBlank(s string) string {
	return strings.TrimSpace(blankRuns.ReplaceAllString(s, "\n\n"))
}
