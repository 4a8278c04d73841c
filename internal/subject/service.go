package subject

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
	ErrSubjectNotFound = errors.New("subject not found")
	ErrInvalidInput    = errors.New("invalid input")
)

type Subject struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ClassLevels []string  `json:"classLevels"`
	Chapters    []string  `json:"chapters"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, class_levels, chapters, created_at, updated_at
		FROM subjects
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()
	return scanSubjects(rows)
}

func (s *Service) Create(ctx context.Context, name string, classLevels, chapters []string) (*Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(classLevels) == 0 {
		return nil, fmt.Errorf("%w: at least one class level is required", ErrInvalidInput)
	}

	levelsJSON, chaptersJSON, err := encodeLists(classLevels, chapters)
	if err != nil {
		return nil, err
	}

	var sub Subject
	var rawLevels, rawChapters []byte
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO subjects (name, class_levels, chapters, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, class_levels, chapters, created_at, updated_at
	`, name, levelsJSON, chaptersJSON).Scan(&sub.ID, &sub.Name, &rawLevels, &rawChapters, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	if err := decodeLists(rawLevels, rawChapters, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Service) Update(ctx context.Context, id int64, name string, classLevels, chapters []string) (*Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	levelsJSON, chaptersJSON, err := encodeLists(classLevels, chapters)
	if err != nil {
		return nil, err
	}

	var sub Subject
	var rawLevels, rawChapters []byte
	err = s.db.QueryRowContext(ctx, `
		UPDATE subjects
		SET name = $2, class_levels = $3, chapters = $4, updated_at = now()
		WHERE id = $1
		RETURNING id, name, class_levels, chapters, created_at, updated_at
	`, id, name, levelsJSON, chaptersJSON).Scan(&sub.ID, &sub.Name, &rawLevels, &rawChapters, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("update subject: %w", err)
	}
	if err := decodeLists(rawLevels, rawChapters, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subject rows: %w", err)
	}
	if affected == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// ListForStudent returns the subjects a student may see: matching one of the
// class levels and, unless the caller is an admin, approved for that user.
// An empty approved set yields an empty list.
func (s *Service) ListForStudent(ctx context.Context, userID int64, isAdmin bool, classLevels []string) ([]Subject, error) {
	if len(classLevels) == 0 {
		return []Subject{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, class_levels, chapters, created_at, updated_at
		FROM subjects sub
		WHERE sub.class_levels ?| $1::text[]
		  AND ($2 OR EXISTS (
			SELECT 1 FROM user_approved_subjects uas
			WHERE uas.subject_id = sub.id AND uas.user_id = $3
		  ))
		ORDER BY name
	`, classLevels, isAdmin, userID)
	if err != nil {
		return nil, fmt.Errorf("query student subjects: %w", err)
	}
	defer rows.Close()
	return scanSubjects(rows)
}

// ChaptersFor unions the chapter lists of every subject whose name matches
// case-insensitively, keeping first-seen order.
func (s *Service) ChaptersFor(ctx context.Context, classLevels []string, subjectName string) ([]string, error) {
	subjectName = strings.TrimSpace(subjectName)
	if subjectName == "" || len(classLevels) == 0 {
		return []string{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chapters
		FROM subjects
		WHERE lower(name) = lower($1)
		  AND class_levels ?| $2::text[]
		ORDER BY id
	`, subjectName, classLevels)
	if err != nil {
		return nil, fmt.Errorf("query chapters: %w", err)
	}
	defer rows.Close()

	var all []string
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan chapters: %w", err)
		}
		var chapters []string
		if err := json.Unmarshal(raw, &chapters); err != nil {
			return nil, fmt.Errorf("decode chapters: %w", err)
		}
		all = append(all, chapters...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}
	return dedupStrings(all), nil
}

func scanSubjects(rows *sql.Rows) ([]Subject, error) {
	out := []Subject{}
	for rows.Next() {
		var sub Subject
		var rawLevels, rawChapters []byte
		if err := rows.Scan(&sub.ID, &sub.Name, &rawLevels, &rawChapters, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		if err := decodeLists(rawLevels, rawChapters, &sub); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

func encodeLists(classLevels, chapters []string) ([]byte, []byte, error) {
	levelsJSON, err := json.Marshal(normalizeList(classLevels))
	if err != nil {
		return nil, nil, fmt.Errorf("encode class levels: %w", err)
	}
	chaptersJSON, err := json.Marshal(normalizeList(chapters))
	if err != nil {
		return nil, nil, fmt.Errorf("encode chapters: %w", err)
	}
	return levelsJSON, chaptersJSON, nil
}

func decodeLists(rawLevels, rawChapters []byte, sub *Subject) error {
	if err := json.Unmarshal(rawLevels, &sub.ClassLevels); err != nil {
		return fmt.Errorf("decode class levels: %w", err)
	}
	if err := json.Unmarshal(rawChapters, &sub.Chapters); err != nil {
		return fmt.Errorf("decode chapters: %w", err)
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
