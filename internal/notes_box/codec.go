package notes_box

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

const noteRecordSchema = `{
	"type": "object",
	"required": ["id", "createdAt"],
	"properties": {
		"id":        {"type": "string", "minLength": 1},
		"title":     {"type": "string"},
		"content":   {"type": "string"},
		"createdAt": {"type": "string", "format": "date-time"},
		"updatedAt": {"type": "string", "format": "date-time"}
	}
}`

var noteSchema = mustCompileSchema(noteRecordSchema)

var ErrEntryNotArray = errors.New("notes entry is not a json array")

func mustCompileSchema(schemaJSON string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("compile note schema: %s", err))
	}
	return schema
}

// noteRecord is the persisted shape, with optional fields as pointers so
// missing ones can be told apart from empty ones.
type noteRecord struct {
	ID        string     `json:"id"`
	Title     *string    `json:"title"`
	Content   *string    `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

func encodeNotes(notes []Note) ([]byte, error) {
	if notes == nil {
		notes = []Note{}
	}
	return json.Marshal(notes)
}

// decodeNotes parses the persisted entry. The entry itself must be a JSON
// array, otherwise an error is returned. Records not matching the note schema
// are dropped, duplicate ids keep the first occurrence.
func decodeNotes(data []byte) ([]Note, error) {
	var rawRecords []json.RawMessage
	if err := json.Unmarshal(data, &rawRecords); err != nil {
		return nil, fmt.Errorf("unmarshal notes entry: %w", err)
	}
	// null unmarshals into a nil slice without an error
	if rawRecords == nil {
		return nil, ErrEntryNotArray
	}

	notes := make([]Note, 0, len(rawRecords))
	seen := make(map[string]bool, len(rawRecords))
	for i, raw := range rawRecords {
		note, err := decodeNote(raw)
		if err != nil {
			log.Warnf("skipping persisted note #%d: %s", i, err)
			continue
		}
		if seen[note.ID] {
			log.Warnf("skipping persisted note #%d: duplicate id [%s]", i, note.ID)
			continue
		}
		seen[note.ID] = true
		notes = append(notes, note)
	}

	return notes, nil
}

func decodeNote(raw json.RawMessage) (Note, error) {
	result, err := noteSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return Note{}, fmt.Errorf("validate: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return Note{}, fmt.Errorf("schema: %s", strings.Join(errs, "; "))
	}

	var rec noteRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Note{}, fmt.Errorf("unmarshal: %w", err)
	}

	note := Note{
		ID:        rec.ID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.CreatedAt,
	}
	if rec.Title != nil {
		note.Title = *rec.Title
	}
	if rec.Content != nil {
		note.Content = *rec.Content
	}
	if rec.UpdatedAt != nil && !rec.UpdatedAt.Before(rec.CreatedAt) {
		note.UpdatedAt = *rec.UpdatedAt
	}

	return note, nil
}
