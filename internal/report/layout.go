// Package report turns finished triage records into one-page PDF reports
// and ships them to a file directory or a doctor's Telegram chat, along
// with short alerts for high-risk sessions.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"medtriage/internal/triage"
)

const (
	Title           = "MedTriage AI"
	Footer          = "© MedTriage AI • AI Health Report"
	TruncatedNotice = "... [Analysis truncated for brevity]"
	ReportNotice    = "This report is generated by an AI system for educational and demonstration purposes only. It is not a medical diagnosis. Always consult a qualified healthcare professional."

	// Line caps that keep every section inside one page.
	MaxExplanationLines = 15
	maxSymptomLines     = 4
	maxReasonLines      = 3

	// Font sizes, in points, that each section is drawn at.
	bodySize       = 10
	specialistSize = 12
	disclaimerSize = 8

	boxPadding = 14
	boxTextW   = contentW - 2*boxPadding
	// Room for the name before the Age column.
	nameW = 220
)

// Measure reports the drawn width in points of s set in the report font at
// size. Layout wraps every section against it.
type Measure func(s string, size int) float64

var Tagline = []string{"Where Artificial Intelligence Meets", "Intelligent Healthcare Triage!"}

type RGB struct {
	R, G, B uint8
}

var (
	ColorLow     = RGB{16, 185, 129}
	ColorMedium  = RGB{245, 158, 11}
	ColorHigh    = RGB{225, 29, 72}
	ColorPrimary = RGB{13, 148, 136}
	ColorDark    = RGB{15, 23, 42}
	ColorMuted   = RGB{100, 116, 139}
)

// BadgeColor maps a risk level to its badge fill. Unknown levels get the
// medium color.
func BadgeColor(level triage.RiskLevel) RGB {
	switch level {
	case triage.RiskLow:
		return ColorLow
	case triage.RiskHigh:
		return ColorHigh
	default:
		return ColorMedium
	}
}

type PatientSummary struct {
	Name     string
	Age      string
	Gender   string
	Duration string
}

type Badge struct {
	Label string
	Color RGB
}

type Specialist struct {
	Specialization string
	ReasonLines    []string
}

// Document is the fully laid out content of a report, in drawing order.
type Document struct {
	Title            string
	Tagline          []string
	Generated        string
	Patient          PatientSummary
	SymptomLines     []string
	Risk             Badge
	ExplanationLines []string
	Truncated        bool
	Specialist       Specialist
	DisclaimerLines  []string
	Footer           string
}

// Layout computes the report content for rec, wrapping text to the content
// width as measured by m. It is pure: the same record and measure always
// yield the same document.
func Layout(rec triage.HistoryRecord, m Measure) Document {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		name = triage.AnonymousName
	}

	explanation, truncated := capLines(m.wrap(rec.Result.Explanation, bodySize, contentW), MaxExplanationLines)
	if truncated {
		explanation = append(explanation, TruncatedNotice)
	}

	return Document{
		Title:     Title,
		Tagline:   Tagline,
		Generated: "Generated: " + rec.CreatedAt.Format("January 2, 2006"),
		Patient: PatientSummary{
			Name:     m.fit(name, bodySize, nameW-m("Name: ", bodySize)),
			Age:      strconv.Itoa(rec.Age),
			Gender:   string(rec.Gender),
			Duration: m.fit(rec.Duration, bodySize, contentW-m("Duration: ", bodySize)),
		},
		SymptomLines: m.ellipsize(m.wrap(strings.Join(rec.Symptoms, ", "), bodySize, contentW), maxSymptomLines, bodySize, contentW),
		Risk: Badge{
			Label: rec.Result.RiskLevel.Label(),
			Color: BadgeColor(rec.Result.RiskLevel),
		},
		ExplanationLines: explanation,
		Truncated:        truncated,
		Specialist: Specialist{
			Specialization: m.fit(rec.Result.Recommendation.Specialization, specialistSize, boxTextW),
			ReasonLines:    m.ellipsize(m.wrap(rec.Result.Recommendation.Reason, bodySize, boxTextW), maxReasonLines, bodySize, boxTextW),
		},
		DisclaimerLines: m.wrap(ReportNotice, disclaimerSize, contentW),
		Footer:          Footer,
	}
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName is the download name for rec, e.g. MedTriage_Report_Asha_Rao_2025-03-01.pdf.
func FileName(rec triage.HistoryRecord) string {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		name = triage.AnonymousName
	}
	return fmt.Sprintf("MedTriage_Report_%s_%s.pdf",
		whitespace.ReplaceAllString(name, "_"),
		rec.CreatedAt.Format("2006-01-02"))
}

// wrap breaks s into lines no wider than width. Words wider than a whole
// line are split between runes.
func (m Measure) wrap(s string, size int, width float64) []string {
	var lines []string
	var cur string
	for _, w := range strings.Fields(s) {
		for m(w, size) > width {
			head := m.prefix(w, size, width)
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			lines = append(lines, head)
			w = w[len(head):]
		}
		if w == "" {
			continue
		}
		if cur == "" {
			cur = w
			continue
		}
		if joined := cur + " " + w; m(joined, size) <= width {
			cur = joined
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// prefix returns the longest leading run of s that fits in width, and at
// least one rune.
func (m Measure) prefix(s string, size int, width float64) string {
	end := 0
	for i, r := range s {
		next := i + utf8.RuneLen(r)
		if end > 0 && m(s[:next], size) > width {
			break
		}
		end = next
	}
	return s[:end]
}

// fit shortens s with a trailing ellipsis until it fits in width.
func (m Measure) fit(s string, size int, width float64) string {
	if m(s, size) <= width {
		return s
	}
	for s != "" {
		_, n := utf8.DecodeLastRuneInString(s)
		s = strings.TrimRight(s[:len(s)-n], " ")
		if m(s+"...", size) <= width {
			break
		}
	}
	return s + "..."
}

func (m Measure) ellipsize(lines []string, max, size int, width float64) []string {
	lines, cut := capLines(lines, max)
	if cut {
		lines[max-1] = m.fit(lines[max-1]+"...", size, width)
	}
	return lines
}

func capLines(lines []string, max int) ([]string, bool) {
	if len(lines) > max {
		return lines[:max], true
	}
	return lines, false
}
