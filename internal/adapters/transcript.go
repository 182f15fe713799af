package adapters

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"recap/internal/stageerr"
)

// Transcript formats accepted by the transcript-summary pipeline.
var AllowedTranscriptExtensions = map[string]bool{
	".txt":  true,
	".docx": true,
}

var (
	reTrailingNumber = regexp.MustCompile(`\s+\d+\s*$`)
	reMonthName      = regexp.MustCompile(`^(January|February|March|April|May|June|July|August|September|October|November|December)`)
)

// LoadTranscript reads an uploaded transcript. Plain text passes through;
// MS Teams .docx exports are flattened to "Speaker: text" lines and the
// participant list extracted from the speaker labels.
func LoadTranscript(path string) (string, []string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("read transcript: %w", err)
		}
		return string(data), nil, nil
	case ".docx":
		log.Infof("Loading MS Teams transcript from %s", path)
		raw, err := extractDocxText(path)
		if err != nil {
			return "", nil, stageerr.Permanent(fmt.Errorf("read docx transcript: %w", err))
		}
		text, participants := ParseTeamsTranscript(raw)
		return text, participants, nil
	default:
		return "", nil, stageerr.Permanentf("unsupported transcript format %q", ext)
	}
}

// ParseTeamsTranscript normalizes a Teams export into speaker-attributed
// lines and collects the set of participants. A line is a speaker line when
// it contains ':' with a short prefix; continuation lines inherit the
// current speaker.
func ParseTeamsTranscript(raw string) (string, []string) {
	var (
		out            []string
		currentSpeaker string
	)
	participants := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}

		if idx := strings.Index(text, ":"); idx > 0 && idx < 50 {
			speaker := strings.TrimSpace(text[:idx])
			content := strings.TrimSpace(text[idx+1:])

			currentSpeaker = speaker
			if name := cleanSpeakerName(speaker); name != "" {
				participants[name] = true
			}
			if content != "" {
				out = append(out, currentSpeaker+": "+content)
			}
			continue
		}

		if currentSpeaker != "" {
			out = append(out, currentSpeaker+": "+text)
		} else {
			out = append(out, text)
		}
	}

	names := make([]string, 0, len(participants))
	for name := range participants {
		names = append(names, name)
	}
	sort.Strings(names)

	return strings.Join(out, "\n"), names
}

// cleanSpeakerName strips Teams timestamp decorations from a speaker label
// and rejects date headings masquerading as speakers.
func cleanSpeakerName(speaker string) string {
	name := speaker
	if i := strings.Index(name, "("); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = reTrailingNumber.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name == "" || reMonthName.MatchString(name) {
		return ""
	}
	return name
}

// docx files are zip archives; the paragraph text lives in
// word/document.xml as w:t runs.
func extractDocxText(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return flattenDocumentXML(rc)
	}
	return "", fmt.Errorf("no word/document.xml in %s", path)
}

func flattenDocumentXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		sb     strings.Builder
		inText bool
	)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
