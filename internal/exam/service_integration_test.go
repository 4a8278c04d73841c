package exam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"examportal/internal/db"

	"github.com/google/uuid"
)

// Requires a migrated Postgres; run with
// EXAMPORTAL_INTEGRATION=1 DB_DSN=postgres://... go test ./internal/exam
func TestExamLifecycleIntegration(t *testing.T) {
	if os.Getenv("EXAMPORTAL_INTEGRATION") != "1" {
		t.Skip("set EXAMPORTAL_INTEGRATION=1 to run integration tests")
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN is not set")
	}

	ctx := context.Background()
	conn, err := db.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	tag := uuid.NewString()[:8]

	var userID int64
	err = conn.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, role, class_level, created_at, updated_at)
		VALUES ($1, $2, 'x', 'user', 9, now(), now())
		RETURNING id
	`, "it-student-"+tag, fmt.Sprintf("it-%s@example.com", tag)).Scan(&userID)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	}()

	subjectName := "IT-Math-" + tag
	var subjectID int64
	err = conn.QueryRowContext(ctx, `
		INSERT INTO subjects (name, class_levels, chapters, created_at, updated_at)
		VALUES ($1, '["9"]', '["Algebra"]', now(), now())
		RETURNING id
	`, subjectName).Scan(&subjectID)
	if err != nil {
		t.Fatalf("seed subject: %v", err)
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, subjectID)
	}()

	if _, err := conn.ExecContext(ctx, `
		INSERT INTO user_approved_subjects (user_id, subject_id, approved_at)
		VALUES ($1, $2, now())
	`, userID, subjectID); err != nil {
		t.Fatalf("seed approval: %v", err)
	}

	questionIDs := make([]int64, 0, 3)
	answers := []string{"B", "A", "C"}
	for i, correct := range answers {
		var qid int64
		err := conn.QueryRowContext(ctx, `
			INSERT INTO questions (class_levels, subject_name, chapter_name, question_text, options, answer, created_at, updated_at)
			VALUES ('["9"]', $1, 'Algebra', $2, '["A","B","C","D"]', $3, now(), now())
			RETURNING id
		`, subjectName, fmt.Sprintf("question %d %s", i+1, tag), correct).Scan(&qid)
		if err != nil {
			t.Fatalf("seed question: %v", err)
		}
		questionIDs = append(questionIDs, qid)
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, `DELETE FROM questions WHERE subject_name = $1`, subjectName)
	}()

	svc := NewService(conn, Config{
		PerQuestion: 30 * time.Second,
		Buffer:      10 * time.Minute,
		SessionTTL:  time.Hour,
	})

	// Submit before start must be refused.
	if _, err := svc.SubmitExam(ctx, userID, nil, subjectName, ""); !errors.Is(err, ErrExamNotStarted) {
		t.Fatalf("submit before start: %v, want ErrExamNotStarted", err)
	}

	grant, err := svc.StartExam(ctx, userID, subjectName, "")
	if err != nil {
		t.Fatalf("start exam: %v", err)
	}
	if len(grant.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(grant.Questions))
	}
	if gap := grant.ExpiryTime.Sub(grant.StartTime); gap != 3*30*time.Second+10*time.Minute {
		t.Fatalf("time budget = %v", gap)
	}

	report, err := svc.SubmitExam(ctx, userID, []AnswerInput{
		{QuestionID: questionIDs[0], SelectedOption: "B"},
		{QuestionID: questionIDs[1], SelectedOption: ""},
		{QuestionID: questionIDs[2], SelectedOption: "A"},
	}, subjectName, "")
	if err != nil {
		t.Fatalf("submit exam: %v", err)
	}
	if report.Score != 1 || report.Attempts != 2 || report.Total != 3 {
		t.Fatalf("report = %+v", report)
	}

	if _, err := svc.SubmitExam(ctx, userID, nil, subjectName, ""); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("second submit: %v, want ErrAlreadySubmitted", err)
	}

	var resultCount int
	if err := conn.QueryRowContext(ctx, `
		SELECT count(*) FROM results WHERE user_id = $1
	`, userID).Scan(&resultCount); err != nil {
		t.Fatalf("count results: %v", err)
	}
	if resultCount != 1 {
		t.Fatalf("results = %d, want exactly 1", resultCount)
	}
}
