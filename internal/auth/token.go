package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/tradeledger/internal/model"
)

const bearerPrefix = model.TokenType + " "

// Claims はアクセストークンとリフレッシュトークンのクレーム。
// idにユーザーIDを格納し、有効期限はexpで表す。
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenConfig はトークン発行の設定。
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpire  time.Duration
	RefreshExpire time.Duration
}

// TokenService はJWTトークンペアの発行と検証を行う。
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config, now: time.Now}
}

// CreatePair はユーザーIDに対するアクセストークンとリフレッシュトークンを発行する。
// トークン文字列は "Bearer <jwt>" 形式で返す。
func (s *TokenService) CreatePair(userID string) (*model.TokenPair, error) {
	now := s.now()
	accessExp := now.Add(s.config.AccessExpire)

	access, err := s.sign(userID, accessExp, s.config.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(userID, now.Add(s.config.RefreshExpire), s.config.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  bearerPrefix + access,
		RefreshToken: bearerPrefix + refresh,
		ExpiresAt:    accessExp,
	}, nil
}

// DecodeAccess はアクセストークンを検証してユーザーIDを返す。
func (s *TokenService) DecodeAccess(token string) (string, error) {
	return s.decode(token, s.config.AccessSecret)
}

// DecodeRefresh はリフレッシュトークンを検証してユーザーIDを返す。
func (s *TokenService) DecodeRefresh(token string) (string, error) {
	return s.decode(token, s.config.RefreshSecret)
}

func (s *TokenService) sign(userID string, exp time.Time, secret string) (string, error) {
	claims := Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// decode はトークンを検証する。期限切れはTokenExpired、それ以外の失敗はInvalidTokenを返す。
func (s *TokenService) decode(token, secret string) (string, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), bearerPrefix))
	if raw == "" {
		return "", model.NewInvalidTokenError()
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", model.NewTokenExpiredError()
	}
	if err != nil {
		return "", model.NewInvalidTokenError()
	}
	if claims.ID == "" {
		return "", model.NewInvalidTokenError()
	}

	return claims.ID, nil
}
