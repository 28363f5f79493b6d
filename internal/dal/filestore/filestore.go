package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

var (
	ErrInvalidPath  = errors.New("invalid object path")
	ErrInvalidToken = errors.New("invalid or expired file token")
)

// Store is a path-addressed object store backed by a local directory.
// Download access goes through short-lived signed tokens, so object paths
// are never exposed directly.
type Store struct {
	root   string
	secret []byte
	ttl    time.Duration
}

// NewStore creates a store rooted at dir. Tokens signed with secret expire
// after ttl.
func NewStore(dir string, secret []byte, ttl time.Duration) *Store {
	return &Store{
		root:   dir,
		secret: secret,
		ttl:    ttl,
	}
}

// MustNewStore creates a store from configuration.
func MustNewStore() *Store {
	root := viper.GetString("filestore.root")
	if root == "" {
		root = "./data/files"
	}

	secret := os.Getenv("FILE_SIGNING_SECRET")
	if secret == "" {
		panic("FILE_SIGNING_SECRET is not set")
	}

	ttlMinutes := viper.GetInt("filestore.url_ttl_minutes")
	if ttlMinutes == 0 {
		ttlMinutes = 15
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		panic(fmt.Sprintf("Failed to create filestore root: %v", err))
	}

	return NewStore(root, []byte(secret), time.Duration(ttlMinutes)*time.Minute)
}

// Save writes an object under the given path, creating directories as needed.
func (s *Store) Save(path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}

	return nil
}

// Open returns a reader for the object at path.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}

	return f, nil
}

// resolve maps an object path to a filesystem path, rejecting anything that
// would escape the root.
func (s *Store) resolve(path string) (string, error) {
	if path == "" || strings.Contains(path, "..") || filepath.IsAbs(path) {
		return "", ErrInvalidPath
	}

	return filepath.Join(s.root, filepath.Clean(path)), nil
}

// fileTokenClaims carries the object path inside a signed download token.
type fileTokenClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

// SignPath issues a download token for the object at path, valid for the
// store's TTL from now.
func (s *Store) SignPath(path string, now time.Time) (string, error) {
	if _, err := s.resolve(path); err != nil {
		return "", err
	}

	claims := fileTokenClaims{
		Path: path,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign file token: %w", err)
	}

	return signed, nil
}

// VerifyToken checks a download token and returns the object path it grants.
func (s *Store) VerifyToken(tokenString string) (string, error) {
	claims := &fileTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Path == "" {
		return "", ErrInvalidToken
	}

	return claims.Path, nil
}
