package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string

	Now func() time.Time
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func NewService(cfg Config) *Service {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 48 * time.Hour
	}
	return &Service{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		Now:           time.Now,
	}
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Service) registered(userID string, exp time.Time) jwt.RegisteredClaims {
	now := s.Now()
	return jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}
}

func (s *Service) IssueAccessToken(userID, activeRole string, roles []string) (string, time.Time, error) {
	exp := s.Now().Add(s.accessTTL)
	claims := AccessClaims{
		Role:             activeRole,
		Roles:            append([]string(nil), roles...),
		RegisteredClaims: s.registered(userID, exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) IssueRefreshToken(userID string) (string, time.Time, error) {
	exp := s.Now().Add(s.refreshTTL)
	claims := RefreshClaims{RegisteredClaims: s.registered(userID, exp)}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) IssuePair(userID, activeRole string, roles []string) (Pair, error) {
	access, accessExp, err := s.IssueAccessToken(userID, activeRole, roles)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := s.IssueRefreshToken(userID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *Service) VerifyAccess(token string) (*AccessClaims, error) {
	return AccessClaimsFromToken(token, s.accessSecret)
}

func (s *Service) VerifyRefresh(token string) (*RefreshClaims, error) {
	return RefreshClaimsFromToken(token, s.refreshSecret)
}

// Fingerprint is what gets persisted for a live refresh token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
