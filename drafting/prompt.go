package drafting

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ariebrainware/telemed-review/model"
)

const systemPrompt = `You are a clinical documentation assistant drafting SOAP reports for a doctor to review.
Answer with a single JSON object and nothing else, shaped as:
{"subjective":{"chief_complaint":"","history_of_present_illness":"","symptoms":[],"duration":"","medications":[],"allergies":[],"red_flags":[]},
 "objective":{"observations":"","vital_signs":{},"findings":[]},
 "assessment":{"primary_diagnosis":"","differential_diagnoses":[],"severity":"low|moderate|high|critical","department":"","reasoning":""},
 "plan":{"recommendations":[],"follow_up":"","tests":[],"medications":[],"referral":""}}
All four sections are required. chief_complaint, history_of_present_illness, symptoms, observations,
primary_diagnosis, severity, recommendations and follow_up must be filled in.`

func buildPrompt(req Request) (string, error) {
	var b strings.Builder
	b.WriteString("Interview transcript:\n")
	b.WriteString(req.Transcript)
	b.WriteString("\n")

	if req.PriorSections != nil {
		prior, err := json.Marshal(req.PriorSections)
		if err != nil {
			return "", fmt.Errorf("encode prior sections: %w", err)
		}
		b.WriteString("\nThe previous draft was returned by the reviewing doctor:\n")
		b.Write(prior)
		b.WriteString("\n")
	}
	if req.RejectionReason != "" {
		fmt.Fprintf(&b, "\nRejection reason: %s\n", req.RejectionReason)
	}
	if req.Feedback != "" {
		fmt.Fprintf(&b, "\nDoctor feedback: %s\n", req.Feedback)
	}
	if req.StarRating > 0 {
		fmt.Fprintf(&b, "\nDoctor rated the previous draft %d out of 5.\n", req.StarRating)
	}
	if req.PriorSections != nil {
		b.WriteString("\nRewrite all four sections, addressing every point of the feedback.")
	} else {
		b.WriteString("\nDraft all four sections from the transcript.")
	}
	return b.String(), nil
}

// ParseSections decodes a model answer into sections, tolerating a surrounding
// markdown code fence.
func ParseSections(raw string) (model.Sections, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}

	var sections model.Sections
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return model.Sections{}, fmt.Errorf("decode drafted sections: %w", err)
	}
	return sections, nil
}
