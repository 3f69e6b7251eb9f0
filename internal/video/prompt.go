package video

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/worksim-assessor/internal/rubric"
)

//go:embed prompt.md
var promptTemplate string

func buildPrompt(r *rubric.Rubric, vc VideoContext) string {
	return strings.NewReplacer(
		"{{ROLE_FAMILY}}", r.RoleFamily,
		"{{RUBRIC_VERSION}}", r.Version,
		"{{DIMENSIONS}}", renderDimensions(r.Dimensions),
		"{{VIDEO_CONTEXT}}", renderContext(vc),
		"{{DIMENSION_SLUGS}}", strings.Join(r.Slugs(), ", "),
	).Replace(promptTemplate)
}

func renderDimensions(dims []rubric.Dimension) string {
	var b strings.Builder
	for i, d := range dims {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s (%s)\n", d.Name, d.Slug)
		if d.Description != "" {
			b.WriteString(d.Description + "\n")
		}
		writeList(&b, "Green flags", d.GreenFlags)
		writeList(&b, "Red flags", d.RedFlags)
		if len(d.ScoringGuide) > 0 {
			b.WriteString("Scoring guide:\n")
			levels := make([]string, 0, len(d.ScoringGuide))
			for level := range d.ScoringGuide {
				levels = append(levels, level)
			}
			sort.Strings(levels)
			for _, level := range levels {
				fmt.Fprintf(&b, "- %s: %s\n", level, d.ScoringGuide[level])
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderContext(vc VideoContext) string {
	var lines []string
	if vc.DurationSeconds > 0 {
		lines = append(lines, fmt.Sprintf("Recording length: %d minutes %d seconds", vc.DurationSeconds/60, vc.DurationSeconds%60))
	}
	if task := strings.TrimSpace(vc.TaskDescription); task != "" {
		lines = append(lines, "Task: "+task)
	}
	if len(vc.ExpectedOutcomes) > 0 {
		lines = append(lines, "Expected outcomes:")
		for _, o := range vc.ExpectedOutcomes {
			lines = append(lines, "- "+o)
		}
	}
	if len(lines) == 0 {
		return "No additional context."
	}
	return strings.Join(lines, "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
}
