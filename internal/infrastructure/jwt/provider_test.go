package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-api-social/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := NewProvider(&config.Config{
		JWTPrivateKeyPath:      privPath,
		JWTPublicKeyPath:       pubPath,
		AccessTokenTTL:         3 * time.Minute,
		VerifiedAccessTokenTTL: 15 * time.Minute,
		RefreshTokenTTL:        30 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: "/nonexistent/key.pem"})
	assert.Error(t, err)
}

func TestSignAccess_ExpiryDependsOnTOTP(t *testing.T) {
	p := newTestProvider(t)
	fixed := time.Now().Truncate(time.Second)
	p.now = func() time.Time { return fixed }

	plain, err := p.SignAccess(1, false)
	require.NoError(t, err)
	elevated, err := p.SignAccess(1, true)
	require.NoError(t, err)

	pc, err := p.VerifyAccess(plain)
	require.NoError(t, err)
	ec, err := p.VerifyAccess(elevated)
	require.NoError(t, err)

	assert.False(t, pc.TOTPVerified)
	assert.True(t, ec.TOTPVerified)
	assert.Equal(t, fixed.Add(3*time.Minute), pc.ExpiresAt.Time)
	assert.Equal(t, fixed.Add(15*time.Minute), ec.ExpiresAt.Time)
	assert.True(t, pc.ExpiresAt.Before(ec.ExpiresAt.Time))
	assert.Equal(t, "1", pc.Subject)
}

func TestVerifyAccess_Expired(t *testing.T) {
	p := newTestProvider(t)
	issued := time.Now().Add(-4 * time.Minute)
	p.now = func() time.Time { return issued }
	tok, err := p.SignAccess(1, false)
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.VerifyAccess(tok)
	assert.Error(t, err)
}

func TestVerify_RejectsWrongType(t *testing.T) {
	p := newTestProvider(t)

	refresh, err := p.SignRefresh(7)
	require.NoError(t, err)
	_, err = p.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	access, err := p.SignAccess(7, true)
	require.NoError(t, err)
	_, err = p.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	c, err := p.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.UserID)
}

func TestVerify_ForeignKeyRejected(t *testing.T) {
	a := newTestProvider(t)
	b := newTestProvider(t)
	tok, err := a.SignAccess(1, false)
	require.NoError(t, err)
	_, err = b.VerifyAccess(tok)
	assert.Error(t, err)
}
