package store

import (
	"database/sql"
	"fmt"
	"time"

	"careerboost/internal/errors"
	"careerboost/internal/types"
)

type resumeRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	Title            string         `db:"title"`
	FileName         string         `db:"file_name"`
	FileType         string         `db:"file_type"`
	FileKey          string         `db:"file_key"`
	FileURL          string         `db:"file_url"`
	OriginalText     string         `db:"original_text"`
	OptimizedText    string         `db:"optimized_text"`
	LastSavedText    sql.NullString `db:"last_saved_text"`
	LastSavedScore   sql.NullInt64  `db:"last_saved_score"`
	ATSScore         int            `db:"ats_score"`
	Language         string         `db:"language"`
	Suggestions      string         `db:"suggestions"`
	Keywords         string         `db:"keywords"`
	SelectedTemplate string         `db:"selected_template"`
	CreatedAt        dbTime         `db:"created_at"`
	UpdatedAt        dbTime         `db:"updated_at"`
}

func (row resumeRow) toResume() (*types.Resume, error) {
	r := &types.Resume{
		ID:               row.ID,
		UserID:           row.UserID,
		Title:            row.Title,
		FileName:         row.FileName,
		FileType:         row.FileType,
		FileKey:          row.FileKey,
		FileURL:          row.FileURL,
		OriginalText:     row.OriginalText,
		OptimizedText:    row.OptimizedText,
		ATSScore:         row.ATSScore,
		Language:         row.Language,
		SelectedTemplate: row.SelectedTemplate,
		CreatedAt:        row.CreatedAt.Time,
		UpdatedAt:        row.UpdatedAt.Time,
	}
	if row.LastSavedText.Valid {
		text := row.LastSavedText.String
		r.LastSavedText = &text
	}
	if row.LastSavedScore.Valid {
		score := int(row.LastSavedScore.Int64)
		r.LastSavedScore = &score
	}
	if err := decodeList(row.Suggestions, &r.Suggestions); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "corrupt suggestions column", err).
			WithContext("resume_id", row.ID)
	}
	if err := decodeList(row.Keywords, &r.Keywords); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "corrupt keywords column", err).
			WithContext("resume_id", row.ID)
	}
	return r, nil
}

func decodeList(raw string, v any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.UnmarshalFromString(raw, v)
}

// dbTime scans timestamps from drivers that return time.Time as well as
// from SQLite, which may hand back text.
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func (t *dbTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case int64:
		t.Time = time.Unix(v, 0).UTC()
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into timestamp", value)
	}
	return nil
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
