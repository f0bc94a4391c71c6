package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gokatarajesh/exam-session/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
	"github.com/gokatarajesh/exam-session/internal/session"
)

// toQuestion decodes a question row. Options may be stored as objects with
// IDs or as bare strings; bare or ID-less options get a new ID, and a
// correct answer given as option text is rewritten to that ID. changed
// reports whether IDs were assigned.
func toQuestion(row sqlcgen.Question) (session.Question, bool, error) {
	q := session.Question{
		ID:              repository.UUIDString(row.QuestionID),
		Type:            row.Type,
		Prompt:          row.Prompt,
		ImageURL:        row.ImageUrl.String,
		Points:          row.Points,
		CorrectOptionID: row.CorrectOptionID.String,
	}
	if q.Type == "" {
		q.Type = session.TypeMCQ
	}

	options, changed, err := decodeOptions(row.Options)
	if err != nil {
		return session.Question{}, false, err
	}
	q.Options = options

	if q.CorrectOptionID != "" && !q.HasOption(q.CorrectOptionID) {
		for _, opt := range options {
			if opt.Text == q.CorrectOptionID {
				q.CorrectOptionID = opt.ID
				changed = true
				break
			}
		}
	}
	return q, changed, nil
}

func decodeOptions(raw []byte) ([]session.Option, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, fmt.Errorf("options: %w", err)
	}

	changed := false
	out := make([]session.Option, 0, len(items))
	for _, item := range items {
		var opt session.Option
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			opt.Text = text
		} else if err := json.Unmarshal(item, &opt); err != nil {
			return nil, false, fmt.Errorf("option: %w", err)
		}
		if opt.ID == "" {
			opt.ID = uuid.NewString()
			changed = true
		}
		out = append(out, opt)
	}
	return out, changed, nil
}
