package assembler

import (
	"fmt"

	"github.com/bowerhall/chorus/pkg/journalmem"
)

// entrySummary picks the best textual form of an entry. Returns "" when the
// entry has nothing renderable, which excludes it from its tier.
func entrySummary(e journalmem.Entry) string {
	if e.DecisionArc != "" {
		return e.DecisionArc
	}
	switch {
	case e.UserIntent != "" && e.PersonaResponse != "":
		return e.UserIntent + " | " + e.PersonaResponse
	case e.UserIntent != "":
		return e.UserIntent
	default:
		return e.PersonaResponse
	}
}

func renderStarred(e journalmem.Entry) string {
	return entrySummary(e)
}

func renderInstruction(e journalmem.Entry) string {
	return entrySummary(e)
}

func renderRecent(e journalmem.Entry) string {
	summary := entrySummary(e)
	if summary == "" {
		return ""
	}
	return fmt.Sprintf("[%s] %s", e.CreatedAt.Format("2006-01-02"), summary)
}

func renderArc(e journalmem.Entry) string {
	if e.DecisionArc == "" {
		return ""
	}
	return fmt.Sprintf("(salience %d) %s", e.Salience, e.DecisionArc)
}

func renderFile(e journalmem.Entry) string {
	summary := entrySummary(e)
	if summary == "" || e.FileName == "" {
		return ""
	}
	if e.FileType == "" {
		return fmt.Sprintf("%s: %s", e.FileName, summary)
	}
	return fmt.Sprintf("%s (%s): %s", e.FileName, e.FileType, summary)
}
