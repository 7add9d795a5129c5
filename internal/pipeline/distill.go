package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bowerhall/chorus/pkg/journalmem"
)

const distillPrompt = `You are a journal distiller. Compress the exchange below into a compact memory record.

Return a JSON object with exactly these fields:
- "user_intent_summary": one sentence on what the user wanted
- "persona_response_summary": one sentence on how the persona responded
- "decision_arc_summary": one paragraph capturing any decision, commitment, or open thread, written so it is useful months later
- "salience_score": integer 1-10, how much future conversations will need this exchange (10 = a major life decision, 1 = small talk)

Do not invent details that are not in the exchange.

Exchange:
user: %s
assistant: %s

JSON only, no explanation:`

// Distillation is the strict output contract of the distillation call.
type Distillation struct {
	UserIntentSummary      string `json:"user_intent_summary"`
	PersonaResponseSummary string `json:"persona_response_summary"`
	DecisionArcSummary     string `json:"decision_arc_summary"`
	SalienceScore          int    `json:"salience_score"`
}

// parseDistillation extracts and validates the JSON object from the model's
// output. Any deviation from the contract is a parse failure; the distillation
// stage does not retry.
func parseDistillation(response string) (*Distillation, error) {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")

	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found")
	}

	var d Distillation
	if err := json.Unmarshal([]byte(response[start:end+1]), &d); err != nil {
		return nil, err
	}

	if d.SalienceScore < journalmem.MinSalience || d.SalienceScore > journalmem.MaxSalience {
		return nil, fmt.Errorf("salience_score %d out of range [%d,%d]", d.SalienceScore, journalmem.MinSalience, journalmem.MaxSalience)
	}

	if d.DecisionArcSummary == "" && d.UserIntentSummary == "" && d.PersonaResponseSummary == "" {
		return nil, fmt.Errorf("distillation is empty")
	}

	return &d, nil
}
