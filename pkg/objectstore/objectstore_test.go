package objectstore

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "http://localhost:3000/", "signing-secret")
	require.NoError(t, err)
	return s
}

func TestUploadDownloadRemove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := ObjectPath("user-1", "doc-1", "policy.pdf")
	assert.Equal(t, "user-1/doc-1-policy.pdf", p)

	require.NoError(t, s.Upload(ctx, p, []byte("%PDF-1.7")))
	data, err := s.Download(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)

	require.NoError(t, s.Remove(ctx, p, "user-1/never-existed.pdf"))
	_, err = s.Download(ctx, p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectsPathEscape(t *testing.T) {
	s := newStore(t)
	assert.ErrorIs(t, s.Upload(context.Background(), "../outside.txt", []byte("x")), ErrInvalidPath)
	_, err := s.CreateSignedURL("", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestSignedURLRoundTrip(t *testing.T) {
	s := newStore(t)

	raw, err := s.CreateSignedURL("user-1/doc-1-policy.pdf", time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/files/signed", u.Path)
	assert.Equal(t, "localhost:3000", u.Host)

	got, err := s.VerifySignedToken(u.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "user-1/doc-1-policy.pdf", got)
}

func TestExpiredSignedURL(t *testing.T) {
	s := newStore(t)
	raw, err := s.CreateSignedURL("user-1/a.pdf", -time.Second)
	require.NoError(t, err)
	u, _ := url.Parse(raw)

	_, err = s.VerifySignedToken(u.Query().Get("token"))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestForeignSignatureRejected(t *testing.T) {
	s := newStore(t)
	other, err := NewLocalStore(t.TempDir(), "http://x", "another-secret")
	require.NoError(t, err)

	raw, err := other.CreateSignedURL("user-1/a.pdf", time.Minute)
	require.NoError(t, err)
	u, _ := url.Parse(raw)

	_, err = s.VerifySignedToken(u.Query().Get("token"))
	assert.Error(t, err)
}
