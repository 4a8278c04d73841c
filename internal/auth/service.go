package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrResetTokenInvalid  = errors.New("reset token invalid")
	ErrResetTokenUsed     = errors.New("reset token already used")
)

type Service struct {
	db          *sql.DB
	sessionTTL  time.Duration
	bcryptCost  int
	resetSecret []byte
	resetTTL    time.Duration
	baseURL     string
	mailer      Mailer
}

type ServiceConfig struct {
	SessionTTL  time.Duration
	BcryptCost  int
	ResetSecret string
	ResetTTL    time.Duration
	BaseURL     string
	Mailer      Mailer
}

type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	ClassLevel int    `json:"classLevel"`
}

type ApprovedSubject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type AdminUserRecord struct {
	ID               int64             `json:"id"`
	Username         string            `json:"username"`
	Email            string            `json:"email"`
	Role             string            `json:"role"`
	ClassLevel       int               `json:"classLevel"`
	ApprovedSubjects []ApprovedSubject `json:"approvedSubjects"`
	CreatedAt        time.Time         `json:"createdAt"`
}

func NewService(db *sql.DB, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 30 * time.Minute
	}
	return &Service{
		db:          db,
		sessionTTL:  cfg.SessionTTL,
		bcryptCost:  cfg.BcryptCost,
		resetSecret: []byte(strings.TrimSpace(cfg.ResetSecret)),
		resetTTL:    cfg.ResetTTL,
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		mailer:      cfg.Mailer,
	}
}

func (s *Service) Signup(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE email = $1 OR username = $2
		)
	`, email, username).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var u User
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, role, class_level, created_at, updated_at)
		VALUES ($1, $2, $3, 'user', 0, now(), now())
		RETURNING id, username, email, role, class_level
	`, username, email, string(hash)).Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.ClassLevel)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *Service) AuthenticatePassword(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, class_level, password_hash
		FROM users
		WHERE email = $1
		LIMIT 1
	`, email)

	var u User
	var passwordHash string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.ClassLevel, &passwordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, class_level
		FROM users
		WHERE id = $1
		LIMIT 1
	`, userID)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.ClassLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (s *Service) CreateSession(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error) {
	token, err := generateToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	tokenHash := hashToken(token)
	expiresAt := time.Now().Add(s.sessionTTL)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (
			user_id, session_token_hash, expires_at, ip_address, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, now()
		)
	`, userID, tokenHash, expiresAt, nullableString(ipAddress), nullableString(userAgent))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

func (s *Service) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.role, u.class_level
		FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > now()
		LIMIT 1
	`, hashToken(token))

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.ClassLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("query session user: %w", err)
	}
	return &u, nil
}

func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = now()
		WHERE session_token_hash = $1
		  AND revoked_at IS NULL
	`, hashToken(token))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context, role, q string, limit, offset int) ([]AdminUserRecord, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "" && !isValidRole(role) {
		return nil, fmt.Errorf("%w: invalid role filter", ErrInvalidInput)
	}
	q = strings.TrimSpace(q)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, role, class_level, created_at
		FROM users
		WHERE ($1 = '' OR role = $1)
		  AND ($2 = '' OR username ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY id
		LIMIT $3 OFFSET $4
	`, role, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []AdminUserRecord
	for rows.Next() {
		var rec AdminUserRecord
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.Email, &rec.Role, &rec.ClassLevel, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	for i := range out {
		subjects, err := s.approvedSubjects(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].ApprovedSubjects = subjects
	}
	return out, nil
}

func (s *Service) GetUserDetail(ctx context.Context, userID int64) (*AdminUserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, class_level, created_at
		FROM users
		WHERE id = $1
		LIMIT 1
	`, userID)

	var rec AdminUserRecord
	if err := row.Scan(&rec.ID, &rec.Username, &rec.Email, &rec.Role, &rec.ClassLevel, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	subjects, err := s.approvedSubjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec.ApprovedSubjects = subjects
	return &rec, nil
}

// UpdateUserAccess changes the class level and role an admin assigned to a user.
func (s *Service) UpdateUserAccess(ctx context.Context, userID int64, classLevel int, role string) (*AdminUserRecord, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "" && !isValidRole(role) {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}
	if classLevel < 0 {
		return nil, fmt.Errorf("%w: invalid class level", ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET class_level = $2,
		    role = COALESCE(NULLIF($3, ''), role),
		    updated_at = now()
		WHERE id = $1
	`, userID, classLevel, role)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update user rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetUserDetail(ctx, userID)
}

func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ApproveSubjects replaces the set of subjects a user may take exams in.
func (s *Service) ApproveSubjects(ctx context.Context, userID int64, subjectIDs []int64) ([]ApprovedSubject, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_approved_subjects WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("clear approvals: %w", err)
	}
	for _, subjectID := range subjectIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_approved_subjects (user_id, subject_id, approved_at)
			SELECT $1, id, now() FROM subjects WHERE id = $2
			ON CONFLICT DO NOTHING
		`, userID, subjectID)
		if err != nil {
			return nil, fmt.Errorf("insert approval: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approvals: %w", err)
	}
	return s.approvedSubjects(ctx, userID)
}

func (s *Service) approvedSubjects(ctx context.Context, userID int64) ([]ApprovedSubject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sub.id, sub.name
		FROM user_approved_subjects uas
		JOIN subjects sub ON sub.id = uas.subject_id
		WHERE uas.user_id = $1
		ORDER BY sub.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query approved subjects: %w", err)
	}
	defer rows.Close()

	out := []ApprovedSubject{}
	for rows.Next() {
		var a ApprovedSubject
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan approved subject: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved subjects: %w", err)
	}
	return out, nil
}

func isValidRole(role string) bool {
	switch role {
	case "admin", "user":
		return true
	default:
		return false
	}
}

func nullableString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func generateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
