package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrNotApproved       = errors.New("user is not approved for any exams")
	ErrSubjectNotAllowed = errors.New("subject is not approved for this user")
	ErrExamNotStarted    = errors.New("exam has not been started")
	ErrAlreadySubmitted  = errors.New("exam result has already been submitted")
)

type Config struct {
	PerQuestion time.Duration
	Buffer      time.Duration
	SessionTTL  time.Duration
}

type Service struct {
	db  *sql.DB
	cfg Config
}

func NewService(db *sql.DB, cfg Config) *Service {
	if cfg.PerQuestion <= 0 {
		cfg.PerQuestion = 30 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 10 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	return &Service{db: db, cfg: cfg}
}

// QuestionView is a question as shown to the student. The stored answer is
// never part of it.
type QuestionView struct {
	ID      int64    `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type SessionGrant struct {
	StartTime  time.Time
	ExpiryTime time.Time
	Questions  []QuestionView
}

type ScoreReport struct {
	Reference   string
	Score       int
	Attempts    int
	Total       int
	SubmittedAt time.Time
}

type principal struct {
	id         int64
	role       string
	classLevel int
	cap        capability
}

// StartExam opens (or silently replaces) the user's exam session and returns
// the matching questions with the computed time window.
func (s *Service) StartExam(ctx context.Context, userID int64, subjectName, chapterName string) (*SessionGrant, error) {
	subjectName = strings.TrimSpace(subjectName)
	chapterName = strings.TrimSpace(chapterName)

	p, err := s.loadPrincipal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := p.cap.allows(subjectName); err != nil {
		return nil, err
	}

	questions, err := s.loadQuestions(ctx, strconv.Itoa(p.classLevel), subjectName, chapterName)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	expiresAt := startedAt.Add(TimeBudget(len(questions), s.cfg.PerQuestion, s.cfg.Buffer))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exam_sessions (
			user_id, subject_name, chapter_name, status, started_at, expires_at, updated_at
		) VALUES (
			$1, NULLIF($2, ''), NULLIF($3, ''), 'started', $4, $5, now()
		)
		ON CONFLICT (user_id) DO UPDATE
		SET subject_name = EXCLUDED.subject_name,
		    chapter_name = EXCLUDED.chapter_name,
		    status = 'started',
		    started_at = EXCLUDED.started_at,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
	`, userID, subjectName, chapterName, startedAt, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("open exam session: %w", err)
	}

	return &SessionGrant{
		StartTime:  startedAt,
		ExpiryTime: expiresAt,
		Questions:  questions,
	}, nil
}

// SubmitExam grades the answers and appends one result row. The session row
// is locked for the whole transaction so a duplicate submit can never write
// a second record: the status flips to submitted only after the result
// insert succeeds, and both commit together.
func (s *Service) SubmitExam(ctx context.Context, userID int64, answers []AnswerInput, subjectName, chapterName string) (*ScoreReport, error) {
	subjectName = strings.TrimSpace(subjectName)
	chapterName = strings.TrimSpace(chapterName)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT status, started_at
		FROM exam_sessions
		WHERE user_id = $1
		FOR UPDATE
	`, userID)

	var status string
	var startedAt time.Time
	if err := row.Scan(&status, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExamNotStarted
		}
		return nil, fmt.Errorf("query exam session: %w", err)
	}
	if status == "submitted" {
		return nil, ErrAlreadySubmitted
	}
	if status != "started" || time.Since(startedAt) > s.cfg.SessionTTL {
		return nil, ErrExamNotStarted
	}

	key, err := s.answerKey(ctx, tx, answers)
	if err != nil {
		return nil, err
	}
	tally := GradeAnswers(answers, func(id int64) (string, bool) {
		correct, ok := key[id]
		return correct, ok
	})

	reference := uuid.NewString()
	var submittedAt time.Time
	err = tx.QueryRowContext(ctx, `
		INSERT INTO results (
			result_uid, user_id, score, attempts, total, subject_name, chapter_name, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), now()
		)
		RETURNING submitted_at
	`, reference, userID, tally.Score, tally.Attempts, tally.Total, subjectName, chapterName).Scan(&submittedAt)
	if err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE exam_sessions
		SET status = 'submitted', updated_at = now()
		WHERE user_id = $1
		  AND status = 'started'
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("close exam session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("close exam session rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrAlreadySubmitted
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}

	return &ScoreReport{
		Reference:   reference,
		Score:       tally.Score,
		Attempts:    tally.Attempts,
		Total:       tally.Total,
		SubmittedAt: submittedAt,
	}, nil
}

func (s *Service) loadPrincipal(ctx context.Context, userID int64) (*principal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, role, class_level
		FROM users
		WHERE id = $1
		LIMIT 1
	`, userID)

	var p principal
	if err := row.Scan(&p.id, &p.role, &p.classLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	var approved []string
	if p.role != "admin" {
		rows, err := s.db.QueryContext(ctx, `
			SELECT sub.name
			FROM user_approved_subjects uas
			JOIN subjects sub ON sub.id = uas.subject_id
			WHERE uas.user_id = $1
		`, userID)
		if err != nil {
			return nil, fmt.Errorf("query approved subjects: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, fmt.Errorf("scan approved subject: %w", err)
			}
			approved = append(approved, name)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate approved subjects: %w", err)
		}
	}

	p.cap = newCapability(p.role, approved)
	return &p, nil
}

func (s *Service) loadQuestions(ctx context.Context, classLevel, subjectName, chapterName string) ([]QuestionView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_text, options
		FROM questions
		WHERE class_levels ? $1
		  AND ($2 = '' OR lower(subject_name) = lower($2))
		  AND ($3 = '' OR lower(COALESCE(chapter_name, '')) = lower($3))
		ORDER BY id
	`, classLevel, subjectName, chapterName)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := []QuestionView{}
	for rows.Next() {
		var q QuestionView
		var rawOptions []byte
		if err := rows.Scan(&q.ID, &q.Text, &rawOptions); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

// answerKey reads the authoritative answers for the attempted question ids.
// Ids that resolve to nothing are simply absent from the map.
func (s *Service) answerKey(ctx context.Context, tx *sql.Tx, answers []AnswerInput) (map[int64]string, error) {
	ids := make([]int64, 0, len(answers))
	seen := make(map[int64]struct{}, len(answers))
	for _, a := range answers {
		if a.SelectedOption == "" {
			continue
		}
		if _, ok := seen[a.QuestionID]; ok {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		ids = append(ids, a.QuestionID)
	}

	key := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return key, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, answer
		FROM questions
		WHERE id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var answer string
		if err := rows.Scan(&id, &answer); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		key[id] = answer
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return key, nil
}
