package model

import (
	"github.com/goccy/go-json"

	"github.com/mbolis/survey-wolf/question"
)

type templateJSON struct {
	templateAlias
	Questions []question.Row `json:"questions"`
}

type templateAlias Template

// MarshalJSON encodes questions as their stored rows, so a template read back
// with UnmarshalJSON has the same typed questions.
func (t *Template) MarshalJSON() ([]byte, error) {
	rows := make([]question.Row, len(t.Questions))
	for i, q := range t.Questions {
		row, err := question.ToRow(q)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return json.Marshal(templateJSON{templateAlias: templateAlias(*t), Questions: rows})
}

func (t *Template) UnmarshalJSON(data []byte) error {
	var v templateJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Template(v.templateAlias)
	t.Questions = make([]question.Question, len(v.Questions))
	for i, row := range v.Questions {
		q, err := question.FromRow(row)
		if err != nil {
			return err
		}
		t.Questions[i] = q
	}
	return nil
}
