package adapters_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"recap/internal/adapters"
)

func TestSummaryMarkdownLayout(t *testing.T) {
	md := adapters.SummaryMarkdown(adapters.Summary{
		Exec:   "The team agreed on the rollout plan.",
		Bullet: "## Rollout\n- **Decision:** ship Friday",
	}, []string{"Alice", "Bob"})

	execIdx := strings.Index(md, "# Executive Summary")
	partIdx := strings.Index(md, "## Meeting Participants")
	topicIdx := strings.Index(md, "# Key Discussion Topics and Decisions")

	assert.GreaterOrEqual(t, execIdx, 0)
	assert.Greater(t, partIdx, execIdx)
	assert.Greater(t, topicIdx, partIdx)
	assert.Contains(t, md, "The team agreed on the rollout plan.")
	assert.Contains(t, md, "- **Decision:** ship Friday")
	assert.Contains(t, md, "| Alice |")
	assert.Contains(t, md, "Bob")
}

func TestSummaryMarkdownWithoutParticipants(t *testing.T) {
	md := adapters.SummaryMarkdown(adapters.Summary{Exec: "Short.", Bullet: "## A\n- b"}, nil)

	assert.NotContains(t, md, "Meeting Participants")
}

func TestSummaryMarkdownFlattensExecSummary(t *testing.T) {
	// Models sometimes ignore the one-paragraph instruction.
	md := adapters.SummaryMarkdown(adapters.Summary{
		Exec:   "# Summary\nFirst part.\n\nSecond part.",
		Bullet: "## A\n- b",
	}, nil)

	assert.NotContains(t, md, "# Summary")
	assert.Contains(t, md, "First part. Second part.")
}

func TestSummaryMarkdownCleansBulletHTML(t *testing.T) {
	md := adapters.SummaryMarkdown(adapters.Summary{
		Exec:   "ok",
		Bullet: "<ul><li><strong>Action:</strong> follow up</li></ul>",
	}, nil)

	assert.NotContains(t, md, "<ul>")
	assert.NotContains(t, md, "<li>")
	assert.Contains(t, md, "**Action:**")
	assert.Contains(t, md, "- ")
}

func TestSummaryMarkdownRewritesNumberedSections(t *testing.T) {
	md := adapters.SummaryMarkdown(adapters.Summary{
		Exec:   "ok",
		Bullet: "1.2 Outage Review\n- root cause found\n### Deep Subsection",
	}, nil)

	assert.Contains(t, md, "## Outage Review")
	assert.Contains(t, md, "## Deep Subsection")
	assert.NotContains(t, md, "###")
	assert.NotContains(t, md, "1.2")
}
