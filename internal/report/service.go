package report

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type ResultRecord struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference"`
	Score       int       `json:"score"`
	Attempts    int       `json:"attempts"`
	Total       int       `json:"total"`
	SubjectName string    `json:"subjectName,omitempty"`
	ChapterName string    `json:"chapterName,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type SubjectSummary struct {
	SubjectName  string  `json:"subjectName"`
	Participants int64   `json:"participants"`
	ExamsTaken   int64   `json:"examsTaken"`
	AverageScore float64 `json:"averageScore"`
	HighestScore int     `json:"highestScore"`
	LowestScore  int     `json:"lowestScore"`
}

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) ResultsForUser(ctx context.Context, userID int64) ([]ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, result_uid, score, attempts, total, subject_name, chapter_name, submitted_at
		FROM results
		WHERE user_id = $1
		ORDER BY submitted_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// SubjectSummaries aggregates the ledger per subject; unscoped attempts are
// grouped under "(all subjects)".
func (s *Service) SubjectSummaries(ctx context.Context) ([]SubjectSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(subject_name, '(all subjects)') AS subject,
		       COUNT(DISTINCT user_id),
		       COUNT(*),
		       AVG(score),
		       MAX(score),
		       MIN(score)
		FROM results
		GROUP BY subject
		ORDER BY subject
	`)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	out := []SubjectSummary{}
	for rows.Next() {
		var sum SubjectSummary
		if err := rows.Scan(&sum.SubjectName, &sum.Participants, &sum.ExamsTaken, &sum.AverageScore, &sum.HighestScore, &sum.LowestScore); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

type exportRow struct {
	Username    string
	Email       string
	ClassLevel  int
	Record      ResultRecord
}

func (s *Service) ExportResultsExcel(ctx context.Context) ([]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.username, u.email, u.class_level,
		       r.id, r.result_uid, r.score, r.attempts, r.total, r.subject_name, r.chapter_name, r.submitted_at
		FROM results r
		JOIN users u ON u.id = r.user_id
		ORDER BY r.submitted_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query export rows: %w", err)
	}
	defer rows.Close()

	var export []exportRow
	for rows.Next() {
		var er exportRow
		var subject, chapter sql.NullString
		if err := rows.Scan(
			&er.Username, &er.Email, &er.ClassLevel,
			&er.Record.ID, &er.Record.Reference, &er.Record.Score, &er.Record.Attempts, &er.Record.Total,
			&subject, &chapter, &er.Record.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		if subject.Valid {
			er.Record.SubjectName = subject.String
		}
		if chapter.Valid {
			er.Record.ChapterName = chapter.String
		}
		export = append(export, er)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{"username", "email", "class_level", "scope", "score", "attempts", "total", "reference", "submitted_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, er := range export {
		row := i + 2
		values := []any{
			er.Username,
			er.Email,
			er.ClassLevel,
			scopeLabel(er.Record.SubjectName, er.Record.ChapterName),
			er.Record.Score,
			er.Record.Attempts,
			er.Record.Total,
			er.Record.Reference,
			er.Record.SubmittedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "I", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func scanResults(rows *sql.Rows) ([]ResultRecord, error) {
	out := []ResultRecord{}
	for rows.Next() {
		var rec ResultRecord
		var subject, chapter sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Reference, &rec.Score, &rec.Attempts, &rec.Total, &subject, &chapter, &rec.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if subject.Valid {
			rec.SubjectName = subject.String
		}
		if chapter.Valid {
			rec.ChapterName = chapter.String
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func scopeLabel(subject, chapter string) string {
	subject = strings.TrimSpace(subject)
	chapter = strings.TrimSpace(chapter)
	switch {
	case subject == "" && chapter == "":
		return "(all subjects)"
	case chapter == "":
		return subject
	default:
		return subject + " / " + chapter
	}
}
