package signal

import (
	"regexp"
	"strings"
)

// ActionType names a structured action the model asked the host application
// to perform. The grammar accepts any UPPER_SNAKE type so the executor owns
// the authoritative set; the constants below are the types this engine's
// prompts instruct the model to emit.
type ActionType string

const (
	ActionCompleteTask ActionType = "COMPLETE_TASK"
	ActionCreateTask   ActionType = "CREATE_TASK"
	ActionUpdateTask   ActionType = "UPDATE_TASK"
	ActionDeferTask    ActionType = "DEFER_TASK"
	ActionAddNote      ActionType = "ADD_NOTE"
)

// Action is one parsed [ACTION: TYPE] block. Params hold the key: value
// pairs from the block body.
type Action struct {
	Type   ActionType
	Params map[string]string
}

// actionBlock matches a complete [ACTION: TYPE]...[/ACTION] block, inline or
// spanning lines.
var actionBlock = regexp.MustCompile(`(?s)\[ACTION:\s*([A-Z][A-Z0-9_]*)\s*\](.*?)\[/ACTION\]`)

// actionKey matches a parameter key at the start of a pair.
var actionKey = regexp.MustCompile(`([A-Za-z][A-Za-z0-9_]*)\s*:`)

// extractActions removes every well-formed action block from the text and
// returns the remaining text plus the parsed actions. Text without a closing
// [/ACTION] is untouched.
func extractActions(text string) (string, []Action) {
	matches := actionBlock.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var actions []Action
	var out strings.Builder
	last := 0
	for _, m := range matches {
		out.WriteString(text[last:m[0]])
		last = m[1]

		actionType := text[m[2]:m[3]]
		body := text[m[4]:m[5]]
		actions = append(actions, Action{
			Type:   ActionType(actionType),
			Params: parseParams(body),
		})
	}
	out.WriteString(text[last:])
	return out.String(), actions
}

// parseParams splits an action body into key/value pairs. A value runs from
// its key's colon to the next key or the end of the body, so values may
// contain spaces and newlines.
func parseParams(body string) map[string]string {
	params := make(map[string]string)
	keys := actionKey.FindAllStringSubmatchIndex(body, -1)
	for i, k := range keys {
		name := body[k[2]:k[3]]
		valueStart := k[1]
		valueEnd := len(body)
		if i+1 < len(keys) {
			valueEnd = keys[i+1][0]
		}
		params[name] = strings.TrimSpace(body[valueStart:valueEnd])
	}
	return params
}
