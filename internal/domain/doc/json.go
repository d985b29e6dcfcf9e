package doc

import (
	"encoding/json"
	"fmt"
)

// envelope is the flat wire form shared by all known document kinds.
type envelope struct {
	DocID       string   `json:"docId"`
	Type        string   `json:"type"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Category    string   `json:"category,omitempty"`
	Platform    string   `json:"platform,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Term        string   `json:"term,omitempty"`
	Definition  string   `json:"definition,omitempty"`
	Question    string   `json:"question,omitempty"`
	Answer      string   `json:"answer,omitempty"`
}

// MarshalJSON flattens the active payload variant into a single object.
func (d Document) MarshalJSON() ([]byte, error) {
	switch p := d.Payload.(type) {
	case Report:
		return json.Marshal(envelope{
			DocID: d.ID, Type: string(KindReport),
			Title: p.Title, Description: p.Description, URL: p.URL,
			Category: p.Category, Platform: p.Platform, Tags: p.Tags,
		})
	case TrainingVideo:
		return json.Marshal(envelope{
			DocID: d.ID, Type: string(KindTrainingVideo),
			Title: p.Title, Description: p.Description, Category: p.Category,
		})
	case GlossaryTerm:
		return json.Marshal(envelope{
			DocID: d.ID, Type: string(KindGlossary),
			Term: p.Term, Definition: p.Definition,
		})
	case FAQ:
		return json.Marshal(envelope{
			DocID: d.ID, Type: string(KindFAQ),
			Question: p.Question, Answer: p.Answer, URL: p.URL,
			Category: p.Category, Tags: p.Tags,
		})
	case Other:
		fields := make(map[string]any, len(p.Fields)+2)
		for k, v := range p.Fields {
			fields[k] = v
		}
		fields["docId"] = d.ID
		fields["type"] = p.Type
		return json.Marshal(fields)
	default:
		return nil, fmt.Errorf("marshal document %q: unknown payload %T", d.ID, d.Payload)
	}
}

// UnmarshalJSON decodes a flat object into the payload variant named by its
// type tag. Unknown types land in Other with their fields preserved.
func (d *Document) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	d.ID = env.DocID

	switch Kind(env.Type) {
	case KindReport:
		d.Payload = Report{
			Title: env.Title, Description: env.Description, URL: env.URL,
			Category: env.Category, Platform: env.Platform, Tags: env.Tags,
		}
	case KindTrainingVideo:
		d.Payload = TrainingVideo{
			Title: env.Title, Description: env.Description, Category: env.Category,
		}
	case KindGlossary:
		d.Payload = GlossaryTerm{Term: env.Term, Definition: env.Definition}
	case KindFAQ:
		d.Payload = FAQ{
			Question: env.Question, Answer: env.Answer, URL: env.URL,
			Category: env.Category, Tags: env.Tags,
		}
	default:
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("decode document fields: %w", err)
		}
		delete(fields, "docId")
		delete(fields, "type")
		d.Payload = Other{Type: env.Type, Fields: fields}
	}

	return nil
}
