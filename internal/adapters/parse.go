package adapters

import (
	"regexp"
	"strings"
)

var reAfterThink = regexp.MustCompile(`(?s)</think>(.*)`)

// StripThinkTags extracts the text after a reasoning model's closing
// </think> tag. Responses without think tags pass through trimmed.
func StripThinkTags(response string) string {
	if m := reAfterThink.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}
