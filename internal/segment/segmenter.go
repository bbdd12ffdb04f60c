// Package segment turns a plain-text transcript into an ordered sequence of
// bounded, topic-aware segments. Segmentation is pure and deterministic:
// identical input and settings always yield identical boundaries and indices,
// which resumable tasks depend on.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"transcript-digest/internal/domain/model"
)

// DefaultMarkers is the fixed vocabulary of discourse cues that signal a
// probable topic boundary. Matching is case-insensitive on word boundaries.
var DefaultMarkers = []string{
	"next",
	"moreover",
	"furthermore",
	"in addition",
	"moving on",
	"speaking of",
	"let's talk about",
	"another topic",
	"now",
	"finally",
	"lastly",
	"in summary",
	"to summarize",
	"in conclusion",
	"overall",
	"to wrap up",
}

var (
	timestampRe = regexp.MustCompile(`\[(\d{1,2}):(\d{2}):(\d{2})\]`)

	// Question/answer turns also count as topic boundaries.
	qaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(q|a|question|answer|host|guest)\s*[:：]`),
		regexp.MustCompile(`(?i)so the question is`),
		regexp.MustCompile(`(?i)what do you think.*\?`),
		regexp.MustCompile(`(?i)how do you see.*\?`),
	}
)

type Segmenter struct {
	MinLength    int
	MaxLength    int
	OverlapRatio float64
	Markers      []string
}

func New(minLength, maxLength int, overlapRatio float64) *Segmenter {
	return &Segmenter{
		MinLength:    minLength,
		MaxLength:    maxLength,
		OverlapRatio: overlapRatio,
		Markers:      DefaultMarkers,
	}
}

// Segment scans paragraphs (newline-delimited, blank lines dropped) in order,
// accumulating into a running buffer. The buffer is closed when appending the
// next paragraph would exceed MaxLength, or when the paragraph signals a topic
// shift and the buffer already reached MinLength; the closing paragraph then
// opens the next segment, preceded by the trailing OverlapRatio fraction of the
// closed one so the summarizer keeps cross-boundary context.
//
// A single paragraph longer than MaxLength is emitted unsplit; forcing a
// mid-paragraph cut would move every boundary after it and break resumption of
// tasks created before the cut existed.
func (s *Segmenter) Segment(text string) []model.Segment {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	markerRe := s.compileMarkers()

	var segments []model.Segment
	var current string
	var startTime string

	flush := func() {
		content := strings.TrimSpace(current)
		if content == "" {
			return
		}
		segments = append(segments, model.Segment{
			Index:     len(segments) + 1,
			Content:   content,
			StartTime: startTime,
			Length:    len(content),
		})
	}

	for _, p := range paragraphs {
		overflow := current != "" && len(current)+len(p) > s.MaxLength
		topicShift := current != "" && len(current) >= s.MinLength && s.isTopicShift(markerRe, p)

		if overflow || topicShift {
			closed := current
			flush()

			// The boundary paragraph opens the new segment.
			if tail := overlapTail(closed, s.OverlapRatio); tail != "" {
				current = tail + "\n" + p
			} else {
				current = p
			}
			startTime = firstTimestamp(p)
			continue
		}

		if current == "" {
			current = p
		} else {
			current += "\n" + p
		}
		if startTime == "" {
			startTime = firstTimestamp(p)
		}
	}
	flush()

	return segments
}

func (s *Segmenter) isTopicShift(markerRe *regexp.Regexp, paragraph string) bool {
	if markerRe != nil && markerRe.MatchString(paragraph) {
		return true
	}
	for _, re := range qaPatterns {
		if re.MatchString(paragraph) {
			return true
		}
	}
	return false
}

func (s *Segmenter) compileMarkers() *regexp.Regexp {
	markers := s.Markers
	if markers == nil {
		markers = DefaultMarkers
	}
	if len(markers) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(m)))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(fmt.Sprintf(`(?i)\b(?:%s)\b`, strings.Join(quoted, "|")))
}

func splitParagraphs(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// overlapTail returns the last ratio fraction of content by rune count.
func overlapTail(content string, ratio float64) string {
	if ratio <= 0 {
		return ""
	}
	runes := []rune(content)
	n := int(float64(len(runes)) * ratio)
	if n <= 0 {
		return ""
	}
	if n >= len(runes) {
		return content
	}
	return string(runes[len(runes)-n:])
}

// firstTimestamp extracts an inline "[H:MM:SS]" timestamp if present.
func firstTimestamp(paragraph string) string {
	m := timestampRe.FindStringSubmatch(paragraph)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s", m[1], m[2], m[3])
}
