package notes_box

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultStorageKey = "notes-app-data"
	DefaultTitle      = "Новая заметка"

	// MaxTitleRunes and MaxContentBytes must match the tags on UpdateData.
	MaxTitleRunes   = 512
	MaxContentBytes = 64 << 10

	// MaxEncodedNoteBytes bounds one note inside the persisted entry. JSON
	// escaping can turn any content byte or title rune into six bytes.
	MaxEncodedNoteBytes = 6*MaxContentBytes + 6*MaxTitleRunes + 512
)

type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateData is a partial update: nil fields are left untouched.
type UpdateData struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,max=512"`
	Content *string `json:"content,omitempty" validate:"omitempty,maxbytes=65536"`
}

func (d UpdateData) apply(note *Note) {
	if d.Title != nil {
		note.Title = *d.Title
	}
	if d.Content != nil {
		note.Content = *d.Content
	}
}

type NotesListResponse struct {
	Notes []Note `json:"notes"`
	Total int    `json:"total"`
}

// newValidator returns a validator knowing the maxbytes tag, which limits the
// UTF-8 length of a string where max counts runes.
func newValidator() *validator.Validate {
	validate := validator.New()
	if err := validate.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return validate
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}
