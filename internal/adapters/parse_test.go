package adapters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"recap/internal/adapters"
)

func TestStripThinkTags(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "plain response passes through",
			response: "The meeting covered three topics.",
			want:     "The meeting covered three topics.",
		},
		{
			name:     "reasoning block removed",
			response: "<think>\nLet me work through this transcript...\n</think>\n\n## Budget Review\n- approved",
			want:     "## Budget Review\n- approved",
		},
		{
			name:     "whitespace trimmed",
			response: "   \n summary text \n ",
			want:     "summary text",
		},
		{
			name:     "everything after the first think close kept",
			response: "<think>a</think>draft<think>b</think>final",
			want:     "draft<think>b</think>final",
		},
		{
			name:     "empty response",
			response: "",
			want:     "",
		},
		{
			name:     "think tags with empty remainder",
			response: "<think>all reasoning, no answer</think>",
			want:     "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, adapters.StripThinkTags(tc.response))
		})
	}
}
