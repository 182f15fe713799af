package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	log "github.com/sirupsen/logrus"

	"recap/internal/stageerr"
	"recap/pkg/executor"
)

var (
	reMarkdownHeading = regexp.MustCompile(`(?m)^#+\s*.*$`)
	reNumberedSection = regexp.MustCompile(`(?m)^\d+\.[\d\.]*\s*(.*)$`)
	reBlankRun        = regexp.MustCompile(`\n\s*\n`)

	reHeading  = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet   = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reNumbered = regexp.MustCompile(`^\d+\.\s+(.+)$`)
)

// PandocRenderer writes the markdown summary and converts it to the
// requested format. PDF and HTML go through pandoc; docx is written
// directly so the renderer works without a LaTeX toolchain for the
// common case.
type PandocRenderer struct {
	exec   executor.Executor
	pandoc string
}

func NewPandocRenderer(exec executor.Executor, pandocBinary string) *PandocRenderer {
	if pandocBinary == "" {
		pandocBinary = "pandoc"
	}
	return &PandocRenderer{exec: exec, pandoc: pandocBinary}
}

func (r *PandocRenderer) Render(ctx context.Context, req RenderRequest) ([]string, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := "summary--" + strings.ReplaceAll(req.Model, ":", "-")
	mdPath := filepath.Join(req.OutputDir, base+".md")

	markdown := SummaryMarkdown(req.Summary, req.Participants)
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("write markdown summary: %w", err)
	}
	log.Infof("Markdown summary saved to %s", mdPath)

	outputs := []string{mdPath}

	title := req.Title
	if title == "" {
		title = "Meeting Summary"
	}
	date := req.Date.Format("January 2, 2006")

	switch req.Format {
	case "", "md":
	case "pdf":
		pdfPath := filepath.Join(req.OutputDir, base+".pdf")
		args := []string{
			mdPath,
			"--pdf-engine=xelatex",
			"--variable=title:" + title,
			"--variable=date:" + date,
			"-o", pdfPath,
		}
		if _, err := r.exec.Execute(ctx, r.pandoc, args...); err != nil {
			if isMissingBinary(err) {
				return nil, stageerr.Permanent(fmt.Errorf("pandoc not installed: %w", err))
			}
			return nil, fmt.Errorf("render pdf: %w", err)
		}
		outputs = append(outputs, pdfPath)
	case "html":
		htmlPath := filepath.Join(req.OutputDir, base+".html")
		args := []string{
			mdPath,
			"-s",
			"--metadata", "title=" + title,
			"--metadata", "date=" + date,
			"-o", htmlPath,
		}
		if _, err := r.exec.Execute(ctx, r.pandoc, args...); err != nil {
			if isMissingBinary(err) {
				return nil, stageerr.Permanent(fmt.Errorf("pandoc not installed: %w", err))
			}
			return nil, fmt.Errorf("render html: %w", err)
		}
		outputs = append(outputs, htmlPath)
	case "docx":
		docxPath := filepath.Join(req.OutputDir, base+".docx")
		if err := markdownToDocx(title, markdown, docxPath); err != nil {
			return nil, fmt.Errorf("render docx: %w", err)
		}
		outputs = append(outputs, docxPath)
	default:
		return nil, stageerr.Permanentf("unsupported output format %q", req.Format)
	}

	return outputs, nil
}

var _ DocumentRenderer = (*PandocRenderer)(nil)

// SummaryMarkdown assembles the final summary document from the two
// summarization passes. Model output is cleaned up first since local
// models occasionally ignore the formatting instructions and emit HTML
// or numbered sections.
func SummaryMarkdown(summary Summary, participants []string) string {
	var sb strings.Builder

	sb.WriteString("# Executive Summary\n\n")
	sb.WriteString(cleanExecSummary(summary.Exec))
	sb.WriteString("\n\n")

	if len(participants) > 0 {
		sb.WriteString("## Meeting Participants\n\n")
		sb.WriteString(participantTable(participants))
		sb.WriteString("\n")
	}

	sb.WriteString("# Key Discussion Topics and Decisions\n\n")
	sb.WriteString(cleanBulletSummary(summary.Bullet))
	sb.WriteString("\n")

	return sb.String()
}

// The executive summary must be a single paragraph; stray headings and
// numbered lines are dropped, blank-line runs collapsed.
func cleanExecSummary(exec string) string {
	cleaned := strings.TrimSpace(exec)
	cleaned = reMarkdownHeading.ReplaceAllString(cleaned, "")
	cleaned = reNumberedSection.ReplaceAllString(cleaned, "")
	cleaned = reBlankRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

func cleanBulletSummary(bullet string) string {
	replacer := strings.NewReplacer(
		"<strong>", "**", "</strong>", "**",
		"<ul>", "", "</ul>", "",
		"<li>", "- ", "</li>", "",
		"<p>", "", "</p>", "\n\n",
	)
	cleaned := replacer.Replace(bullet)
	cleaned = reNumberedSection.ReplaceAllString(cleaned, "## $1")
	cleaned = strings.ReplaceAll(cleaned, "### ", "## ")
	return strings.TrimSpace(cleaned)
}

// participantTable lays names out in a four-column table filled top to
// bottom, left to right.
func participantTable(participants []string) string {
	const cols = 4
	rows := (len(participants) + cols - 1) / cols

	var sb strings.Builder
	sb.WriteString("| | | | |\n")
	sb.WriteString("| --- | --- | --- | --- |\n")
	for i := 0; i < rows; i++ {
		sb.WriteString("|")
		for j := 0; j < cols; j++ {
			idx := i + j*rows
			if idx < len(participants) {
				sb.WriteString(" " + participants[idx] + " |")
			} else {
				sb.WriteString(" |")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

const (
	docxFontName = "Calibri"
	docxFontSize = 11
)

// markdownToDocx renders the markdown summary as a styled docx.
func markdownToDocx(title, markdown, outputPath string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(doc.AddParagraph(""), title, true, 16)

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}
		if strings.HasPrefix(trimmed, "|") {
			// table rows carry the participant list; flatten to text
			if isTableSeparator(trimmed) {
				continue
			}
			if names := tableRowCells(trimmed); len(names) > 0 {
				p := doc.AddParagraph("")
				addRichText(p, strings.Join(names, ", "))
			}
			continue
		}
		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			addStyledRun(doc.AddParagraph(""), m[2], true, headingSize(len(m[1])))
			continue
		}
		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			p := doc.AddParagraph("")
			addRichText(p, "• "+m[1])
			continue
		}
		if reNumbered.MatchString(trimmed) {
			p := doc.AddParagraph("")
			addRichText(p, trimmed)
			continue
		}
		p := doc.AddParagraph("")
		addRichText(p, trimmed)
	}

	return doc.SaveTo(outputPath)
}

func isTableSeparator(row string) bool {
	stripped := strings.Trim(row, "| -")
	return stripped == ""
}

func tableRowCells(row string) []string {
	var cells []string
	for _, cell := range strings.Split(strings.Trim(row, "|"), "|") {
		if c := strings.TrimSpace(cell); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 14
	case 3:
		return 12
	default:
		return docxFontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = cleanMarkdownInline(text)
	run := p.AddText(text).Font(docxFontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			p.AddText(cleanMarkdownInline(part)).Font(docxFontName).Size(docxFontSize).Color("000000")
		}
		if i < len(matches) {
			p.AddText(cleanMarkdownInline(matches[i][1])).Font(docxFontName).Size(docxFontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
