package question

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
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidInput     = errors.New("invalid input")
)

type Question struct {
	ID          int64     `json:"id"`
	ClassLevels []string  `json:"classLevels"`
	SubjectName string    `json:"subjectName"`
	ChapterName string    `json:"chapterName,omitempty"`
	Text        string    `json:"text"`
	Options     []string  `json:"options"`
	Answer      string    `json:"answer"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Input struct {
	ClassLevels []string
	SubjectName string
	ChapterName string
	Text        string
	Options     []string
	Answer      string
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
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("%w: question text is required", ErrInvalidInput)
	}
	if len(in.ClassLevels) == 0 {
		return fmt.Errorf("%w: at least one class level is required", ErrInvalidInput)
	}
	if len(in.Options) < 2 {
		return fmt.Errorf("%w: at least two options are required", ErrInvalidInput)
	}
	found := false
	for _, opt := range in.Options {
		if opt == in.Answer {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: answer must be one of the options", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Question, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	levelsJSON, optionsJSON, err := encodeJSON(in)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO questions (
			class_levels, subject_name, chapter_name, question_text, options, answer, created_at, updated_at
		) VALUES (
			$1, $2, NULLIF($3, ''), $4, $5, $6, now(), now()
		)
		RETURNING id, class_levels, subject_name, chapter_name, question_text, options, answer, created_at, updated_at
	`, levelsJSON, strings.TrimSpace(in.SubjectName), strings.TrimSpace(in.ChapterName), strings.TrimSpace(in.Text), optionsJSON, in.Answer)

	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*Question, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	levelsJSON, optionsJSON, err := encodeJSON(in)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE questions
		SET class_levels = $2,
		    subject_name = $3,
		    chapter_name = NULLIF($4, ''),
		    question_text = $5,
		    options = $6,
		    answer = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, class_levels, subject_name, chapter_name, question_text, options, answer, created_at, updated_at
	`, id, levelsJSON, strings.TrimSpace(in.SubjectName), strings.TrimSpace(in.ChapterName), strings.TrimSpace(in.Text), optionsJSON, in.Answer)

	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete question rows: %w", err)
	}
	if affected == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// List filters the question bank. Empty filters match everything.
func (s *Service) List(ctx context.Context, classLevel, subjectName, chapterName string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, class_levels, subject_name, chapter_name, question_text, options, answer, created_at, updated_at
		FROM questions
		WHERE ($1 = '' OR class_levels ? $1)
		  AND ($2 = '' OR lower(subject_name) = lower($2))
		  AND ($3 = '' OR lower(COALESCE(chapter_name, '')) = lower($3))
		ORDER BY id
	`, strings.TrimSpace(classLevel), strings.TrimSpace(subjectName), strings.TrimSpace(chapterName))
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*Question, error) {
	var q Question
	var rawLevels, rawOptions []byte
	var chapter sql.NullString
	if err := row.Scan(&q.ID, &rawLevels, &q.SubjectName, &chapter, &q.Text, &rawOptions, &q.Answer, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	if chapter.Valid {
		q.ChapterName = chapter.String
	}
	if err := json.Unmarshal(rawLevels, &q.ClassLevels); err != nil {
		return nil, fmt.Errorf("decode class levels: %w", err)
	}
	if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return &q, nil
}

func encodeJSON(in Input) ([]byte, []byte, error) {
	levels := make([]string, 0, len(in.ClassLevels))
	for _, lv := range in.ClassLevels {
		lv = strings.TrimSpace(lv)
		if lv != "" {
			levels = append(levels, lv)
		}
	}
	levelsJSON, err := json.Marshal(levels)
	if err != nil {
		return nil, nil, fmt.Errorf("encode class levels: %w", err)
	}
	optionsJSON, err := json.Marshal(in.Options)
	if err != nil {
		return nil, nil, fmt.Errorf("encode options: %w", err)
	}
	return levelsJSON, optionsJSON, nil
}
