package note

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoteNotFound = errors.New("note not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Note struct {
	ID          int64     `json:"id"`
	ClassLevels []string  `json:"classLevels"`
	SubjectName string    `json:"subjectName"`
	ChapterName string    `json:"chapterName,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Input struct {
	ClassLevels []string
	SubjectName string
	ChapterName string
	Content     string
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.SubjectName) == "" {
		return fmt.Errorf("%w: subjectName is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(in.ClassLevels) == 0 {
		return fmt.Errorf("%w: at least one class level is required", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Note, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	levelsJSON, err := json.Marshal(in.ClassLevels)
	if err != nil {
		return nil, fmt.Errorf("encode class levels: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (class_levels, subject_name, chapter_name, content, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, now(), now())
		RETURNING id, class_levels, subject_name, chapter_name, content, created_at, updated_at
	`, levelsJSON, strings.TrimSpace(in.SubjectName), strings.TrimSpace(in.ChapterName), in.Content)

	n, err := scanNote(row)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*Note, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	levelsJSON, err := json.Marshal(in.ClassLevels)
	if err != nil {
		return nil, fmt.Errorf("encode class levels: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE notes
		SET class_levels = $2,
		    subject_name = $3,
		    chapter_name = NULLIF($4, ''),
		    content = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, class_levels, subject_name, chapter_name, content, created_at, updated_at
	`, id, levelsJSON, strings.TrimSpace(in.SubjectName), strings.TrimSpace(in.ChapterName), in.Content)

	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note rows: %w", err)
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, class_levels, subject_name, chapter_name, content, created_at, updated_at
		FROM notes
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

// ListForStudent returns the notes visible to a class level, matching subject
// and optional chapter case-insensitively.
func (s *Service) ListForStudent(ctx context.Context, classLevel, subjectName, chapterName string) ([]Note, error) {
	subjectName = strings.TrimSpace(subjectName)
	if subjectName == "" {
		return nil, fmt.Errorf("%w: subjectName is required", ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, class_levels, subject_name, chapter_name, content, created_at, updated_at
		FROM notes
		WHERE class_levels ? $1
		  AND lower(subject_name) = lower($2)
		  AND ($3 = '' OR lower(COALESCE(chapter_name, '')) = lower($3))
		ORDER BY id
	`, strings.TrimSpace(classLevel), subjectName, strings.TrimSpace(chapterName))
	if err != nil {
		return nil, fmt.Errorf("query student notes: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*Note, error) {
	var n Note
	var rawLevels []byte
	var chapter sql.NullString
	if err := row.Scan(&n.ID, &rawLevels, &n.SubjectName, &chapter, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if chapter.Valid {
		n.ChapterName = chapter.String
	}
	if err := json.Unmarshal(rawLevels, &n.ClassLevels); err != nil {
		return nil, fmt.Errorf("decode class levels: %w", err)
	}
	return &n, nil
}

func collectNotes(rows *sql.Rows) ([]Note, error) {
	out := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return out, nil
}
