package actions

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/interaktiv/kyra-assist/internal/content"
)

// Preview is the human-readable rendition of a plan.
type Preview struct {
	Summary    string   `json:"summary"`
	Diff       string   `json:"diff"`
	HumanSteps []string `json:"human_steps"`
}

// fieldDiff renders a unified-style diff of one scalar field change.
// When the current value is non-empty a character diff highlights the
// edit.
func fieldDiff(field, current, next string) string {
	if strings.TrimSpace(current) == "" {
		return fmt.Sprintf("- %s: (current)\n+ %s: %s", field, field, next)
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(current, next, false)
	dmp.DiffCleanupSemantic(diffs)
	var marked strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			marked.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			marked.WriteString("{+" + d.Text + "+}")
		default:
			marked.WriteString(d.Text)
		}
	}
	return fmt.Sprintf("- %s: %s\n+ %s: %s\n  %s", field, current, field, next, marked.String())
}

// BuildPreview summarizes actions against the current target state.
func BuildPreview(actions []Action, target *content.Object) Preview {
	summaries := []string{}
	var diffs []string

	currentTitle, currentDescription, currentLanguage := "", "", ""
	if target != nil {
		currentTitle = target.Title
		currentDescription = target.Description
		currentLanguage = target.Language
	}

	for _, action := range actions {
		switch a := action.(type) {
		case UpdateTitle:
			summaries = append(summaries, "Update title")
			diffs = append(diffs, fieldDiff("title", currentTitle, a.Title))
		case UpdateDescription:
			summaries = append(summaries, "Update description")
			diffs = append(diffs, fieldDiff("description", currentDescription, a.Description))
		case UpdateLanguage:
			summaries = append(summaries, "Update language")
			diffs = append(diffs, fieldDiff("language", currentLanguage, a.Language))
		case InsertText:
			summaries = append(summaries, "Insert text block")
			diffs = append(diffs, "+ block: "+a.Text)
		case InsertHeading:
			summaries = append(summaries, "Insert heading block")
			diffs = append(diffs, fmt.Sprintf("+ heading (h%d): %s", a.Level, a.Text))
		case InsertList:
			summaries = append(summaries, "Insert list block")
			label := "list"
			if a.Ordered {
				label = "ordered list"
			}
			diffs = append(diffs, fmt.Sprintf("+ %s: %s", label, strings.Join(a.Items, ", ")))
		case InsertQuote:
			summaries = append(summaries, "Insert quote block")
			diffs = append(diffs, "+ quote: "+a.Text)
		case InsertImage:
			summaries = append(summaries, "Insert image block")
			scaleText := ""
			if a.Scale != "" {
				scaleText = fmt.Sprintf(" (%s)", a.Scale)
			}
			diffs = append(diffs, fmt.Sprintf("+ image: %s%s", a.URL, scaleText))
		}
	}

	summary := "No changes proposed"
	if len(summaries) > 0 {
		summary = strings.Join(summaries, ", ")
	}
	return Preview{
		Summary:    summary,
		Diff:       strings.Join(diffs, "\n"),
		HumanSteps: summaries,
	}
}
