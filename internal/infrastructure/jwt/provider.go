package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-api-social/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

// Claims holds the JWT payload fields.
type Claims struct {
	UserID       int64  `json:"user_id"`
	TOTPVerified bool   `json:"totp_verified"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 JWTs.
type Provider struct {
	privateKey  *rsa.PrivateKey
	publicKey   *rsa.PublicKey
	accessTTL   time.Duration
	verifiedTTL time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{
		privateKey:  privKey,
		publicKey:   pubKey,
		accessTTL:   cfg.AccessTokenTTL,
		verifiedTTL: cfg.VerifiedAccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
		now:         time.Now,
	}, nil
}

// AccessTTL is short until the holder has passed the second factor.
func (p *Provider) AccessTTL(totpVerified bool) time.Duration {
	if totpVerified {
		return p.verifiedTTL
	}
	return p.accessTTL
}

func (p *Provider) RefreshTTL() time.Duration { return p.refreshTTL }

// SignAccess issues an access token whose lifetime depends on totpVerified.
func (p *Provider) SignAccess(userID int64, totpVerified bool) (string, error) {
	return p.sign(Claims{UserID: userID, TOTPVerified: totpVerified, Type: TypeAccess}, p.AccessTTL(totpVerified))
}

// SignRefresh issues a refresh token. It carries no second-factor claim; the
// current value is re-read from the account when it is exchanged.
func (p *Provider) SignRefresh(userID int64) (string, error) {
	return p.sign(Claims{UserID: userID, Type: TypeRefresh}, p.refreshTTL)
}

func (p *Provider) sign(claims Claims, ttl time.Duration) (string, error) {
	now := p.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(claims.UserID, 10),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) VerifyAccess(tokenStr string) (*Claims, error) {
	return p.verify(tokenStr, TypeAccess)
}

func (p *Provider) VerifyRefresh(tokenStr string) (*Claims, error) {
	return p.verify(tokenStr, TypeRefresh)
}

func (p *Provider) verify(tokenStr, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Type != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
