package auth

import (
	"context"
	"errors"
	"time"

	"github.com/hashscope/hashscope/internal/config"
	"github.com/hashscope/hashscope/internal/identity"
)

// ErrBadVerifierKey indicates the token request did not come from the trusted
// signature-verification backend.
var ErrBadVerifierKey = errors.New("invalid verifier key")

// Service issues and refreshes bearer tokens for wallet owners. Proof of
// wallet possession (nonce signature) happens in the external verifier; this
// service trusts requests carrying the shared verifier key.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
}

// NewService builds an auth service.
func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo}
}

// TokenPair bundles the issued access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IssueForWallet returns a token pair for the verified wallet owner.
func (s *Service) IssueForWallet(ctx context.Context, verifierKey, walletAddress string) (identity.User, TokenPair, error) {
	if verifierKey != s.cfg.VerifierKey {
		return identity.User{}, TokenPair{}, ErrBadVerifierKey
	}

	user, err := s.idRepo.FindByWallet(ctx, walletAddress)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}

	access, accessExp, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}
	refresh, _, err := s.sign(user, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}

	_ = s.idRepo.UpdateLastLogin(ctx, user.ID, time.Now())

	pair := TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(accessExp).Seconds()),
	}
	return user, pair, nil
}

func (s *Service) sign(user identity.User, secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := map[string]any{
		"sub":    user.ID,
		"wallet": user.WalletAddress,
		"ver":    user.TokenVersion,
		"iat":    now.Unix(),
		"exp":    exp.Unix(),
	}
	signed, err := SignHS256(claims, []byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := ParseAndVerifyHS256(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		return "", 0, errors.New("invalid refresh token")
	}
	sub, _ := claims["sub"].(string)
	verFloat, _ := claims["ver"].(float64)
	ver := int(verFloat)

	user, err := s.idRepo.FindByID(ctx, sub)
	if err != nil {
		return "", 0, errors.New("user not found")
	}
	if user.TokenVersion != ver {
		return "", 0, errors.New("token version invalidated")
	}

	access, _, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout increments the token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}
