package chunking

import (
	"regexp"
	"strings"

	"github.com/kirillkom/filing-research/internal/core/domain"
)

// itemHeadingRE matches 10-K style section headings at line start, e.g.
// "Item 1A. Risk Factors" or "ITEM 7 Management's Discussion".
var itemHeadingRE = regexp.MustCompile(`^\s*(?i:item)\s+(\d{1,2}[A-Ca-c]?)\s*[.:]?(?:\s|$)`)

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split cuts filing text into passage drafts. Text is first divided at item
// headings so every draft carries its section label; chunk windows never
// straddle a section boundary.
func (s *Splitter) Split(text string) []domain.PassageDraft {
	out := make([]domain.PassageDraft, 0, 16)
	for _, sec := range splitSections(text) {
		body := strings.TrimSpace(strings.Join(sec.lines, "\n"))
		if body == "" {
			continue
		}
		for _, chunk := range s.window(body) {
			out = append(out, domain.PassageDraft{
				Content: chunk,
				Section: sec.label,
			})
		}
	}
	return out
}

type section struct {
	label string
	lines []string
}

func splitSections(text string) []section {
	lines := strings.Split(text, "\n")
	sections := []section{{}}
	for _, line := range lines {
		if m := itemHeadingRE.FindStringSubmatch(line); m != nil {
			sections = append(sections, section{label: "Item " + strings.ToUpper(m[1])})
		}
		current := &sections[len(sections)-1]
		current.lines = append(current.lines, line)
	}
	return sections
}

func (s *Splitter) window(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
