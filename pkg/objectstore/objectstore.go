// Package objectstore keeps uploaded compliance documents and hands out
// short-lived signed download URLs.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrInvalidPath = errors.New("invalid object path")
)

// Store is the storage contract used for uploaded documents.
type Store interface {
	Upload(ctx context.Context, objectPath string, data []byte) error
	Download(ctx context.Context, objectPath string) ([]byte, error)
	Remove(ctx context.Context, objectPaths ...string) error
	CreateSignedURL(objectPath string, ttl time.Duration) (string, error)
}

// LocalStore writes objects under a root directory. Signed URLs carry an
// HS256 token naming the object and its expiry.
type LocalStore struct {
	root    string
	baseURL string
	secret  []byte
}

type signedClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

func NewLocalStore(root, baseURL, secret string) (*LocalStore, error) {
	if secret == "" {
		return nil, errors.New("objectstore: signing secret is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create root: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/"), secret: []byte(secret)}, nil
}

// ObjectPath builds the storage path of a user's document.
func ObjectPath(userID, documentID, fileName string) string {
	return path.Join(userID, documentID+"-"+path.Base(filepath.ToSlash(fileName)))
}

func (s *LocalStore) Upload(ctx context.Context, objectPath string, data []byte) error {
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("objectstore: create dir: %w", err)
	}
	tmp := full + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("objectstore: write %s: %w", objectPath, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("objectstore: commit %s: %w", objectPath, err)
	}
	return nil
}

func (s *LocalStore) Download(ctx context.Context, objectPath string) ([]byte, error) {
	full, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("objectstore: read %s: %w", objectPath, err)
	}
	return data, nil
}

// Remove deletes objects; missing ones are ignored.
func (s *LocalStore) Remove(ctx context.Context, objectPaths ...string) error {
	for _, p := range objectPaths {
		full, err := s.resolve(p)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("objectstore: remove %s: %w", p, err)
		}
	}
	return nil
}

func (s *LocalStore) CreateSignedURL(objectPath string, ttl time.Duration) (string, error) {
	if _, err := s.resolve(objectPath); err != nil {
		return "", err
	}
	now := time.Now()
	claims := signedClaims{
		Path: objectPath,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("objectstore: sign url: %w", err)
	}
	return s.baseURL + "/files/signed?token=" + url.QueryEscape(token), nil
}

// VerifySignedToken returns the object path a signed URL token grants access to.
func (s *LocalStore) VerifySignedToken(token string) (string, error) {
	claims := &signedClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Path == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Path, nil
}

// resolve maps an object path to a file under root, refusing escapes.
func (s *LocalStore) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(objectPath))
	if clean == "/" || strings.Contains(objectPath, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
