package emailtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalid = errors.New("invalid or expired token")

type claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Signer issues email-verification tokens. Each token is keyed by the server
// secret plus a per-issuance salt, so it only verifies alongside that salt.
type Signer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewSigner(secret string, maxAge time.Duration) *Signer {
	return &Signer{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

func (s *Signer) key(salt string) []byte {
	k := make([]byte, 0, len(s.secret)+len(salt))
	k = append(k, s.secret...)
	return append(k, salt...)
}

func (s *Signer) Sign(userID int64, salt string) (string, error) {
	if salt == "" {
		return "", errors.New("empty salt")
	}
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		},
	})
	signed, err := tok.SignedString(s.key(salt))
	if err != nil {
		return "", fmt.Errorf("sign email token: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by token. Any signature, salt or expiry
// failure is reported as ErrInvalid.
func (s *Signer) Verify(token, salt string) (int64, error) {
	if token == "" || salt == "" {
		return 0, ErrInvalid
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key(salt), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || c.UserID == 0 {
		return 0, ErrInvalid
	}
	return c.UserID, nil
}
