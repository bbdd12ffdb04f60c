package segment

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestSegmentSplitsBeforeTopicMarkers(t *testing.T) {
	s := New(1, 1000, 0)
	s.Markers = []string{"Next", "Finally"}

	text := "Intro text.\nNext, topic B starts here.\nFinally, topic C wraps up."
	segs := s.Segment(text)

	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	want := []string{
		"Intro text.",
		"Next, topic B starts here.",
		"Finally, topic C wraps up.",
	}
	for i, seg := range segs {
		if seg.Index != i+1 {
			t.Errorf("segment %d: index = %d, want %d", i, seg.Index, i+1)
		}
		if seg.Content != want[i] {
			t.Errorf("segment %d: content = %q, want %q", i, seg.Content, want[i])
		}
	}
}

func TestSegmentDeterminism(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "[0:%02d:00] Paragraph number %d with some filler words about a topic.\n", i, i)
		if i%7 == 0 {
			b.WriteString("Next, we move to something different entirely.\n")
		}
	}
	text := b.String()

	s := New(300, 1500, 0.1)
	first := s.Segment(text)
	second := s.Segment(text)

	if len(first) == 0 {
		t.Fatal("expected at least one segment")
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("segmentation of identical input is not deterministic")
	}
}

func TestSegmentCoverageWithoutOverlap(t *testing.T) {
	text := "alpha paragraph here\n\nbeta paragraph here\nNext, gamma paragraph here\n  \ndelta paragraph here"
	s := New(1, 45, 0)

	segs := s.Segment(text)
	if len(segs) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segs))
	}

	var parts []string
	for _, seg := range segs {
		parts = append(parts, seg.Content)
	}
	got := strings.Join(parts, "\n")
	want := "alpha paragraph here\nbeta paragraph here\nNext, gamma paragraph here\ndelta paragraph here"
	if got != want {
		t.Errorf("concatenated segments = %q, want original paragraph sequence %q", got, want)
	}
}

func TestSegmentMaxLengthSplit(t *testing.T) {
	s := New(1, 100, 0)
	s.Markers = []string{} // isolate the length rule

	p := strings.Repeat("a", 40)
	text := strings.Join([]string{p, p, p, p, p}, "\n")

	segs := s.Segment(text)
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	for _, seg := range segs[:2] {
		if seg.Length > 100 {
			t.Errorf("segment %d length %d exceeds max", seg.Index, seg.Length)
		}
	}
}

func TestSegmentOversizedParagraphIsNotSplit(t *testing.T) {
	s := New(1, 100, 0)
	p := strings.Repeat("word ", 100) // far beyond max

	segs := s.Segment(p)
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Content != strings.TrimSpace(p) {
		t.Error("oversized paragraph was altered")
	}
}

func TestSegmentOverlapTail(t *testing.T) {
	s := New(1, 1000, 0.5)
	s.Markers = []string{"Next"}

	segs := s.Segment("Intro text.\nNext, topic B starts here.")
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	// Last half of "Intro text." (11 runes -> 5) carries over.
	if !strings.HasPrefix(segs[1].Content, "text.\nNext,") {
		t.Errorf("second segment %q does not start with the overlap tail", segs[1].Content)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	s := New(1, 1000, 0)
	if segs := s.Segment(""); segs != nil {
		t.Errorf("empty input: got %d segments, want none", len(segs))
	}
	if segs := s.Segment("\n \n\t\n"); segs != nil {
		t.Errorf("blank input: got %d segments, want none", len(segs))
	}
}

func TestSegmentStartTime(t *testing.T) {
	s := New(1, 1000, 0)
	s.Markers = []string{"Next"}

	segs := s.Segment("[0:01:23] Hello and welcome.\nNext, the second part begins.")
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].StartTime != "0:01:23" {
		t.Errorf("first segment start time = %q, want 0:01:23", segs[0].StartTime)
	}
	if segs[1].StartTime != "" {
		t.Errorf("second segment start time = %q, want empty", segs[1].StartTime)
	}
}

func TestSegmentStartTimeFromLaterParagraph(t *testing.T) {
	s := New(1, 1000, 0)
	s.Markers = []string{}

	segs := s.Segment("Intro without a stamp.\n[1:02:03] Later paragraph of the same segment.")
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].StartTime != "1:02:03" {
		t.Errorf("start time = %q, want 1:02:03", segs[0].StartTime)
	}
}

func TestSegmentQuestionAnswerBoundary(t *testing.T) {
	s := New(1, 1000, 0)
	s.Markers = []string{}

	segs := s.Segment("Host: welcome to the show everyone\nGuest: glad to be here today")
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2 (Q/A turns are boundaries)", len(segs))
	}
}

func TestSegmentMarkerRequiresMinLength(t *testing.T) {
	s := New(500, 1000, 0)
	s.Markers = []string{"Next"}

	// Buffer below min length: the marker must not trigger a split.
	segs := s.Segment("Short intro.\nNext, more content in the same segment.")
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
}

func TestSegmentMarkerMatchesWholeWordsOnly(t *testing.T) {
	s := New(1, 1000, 0)
	s.Markers = []string{"next"}

	// "context" contains "next" but must not split.
	segs := s.Segment("First paragraph here.\nThe context matters a lot here.")
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1 (no whole-word marker match)", len(segs))
	}
}
