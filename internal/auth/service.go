// Package auth manages user accounts, bearer tokens, and per-user
// generation credentials.
//
// Passwords are hashed with bcrypt. Each user's generation API key is
// encrypted at rest with AES-GCM under a key derived from the
// configured encryption secret. Users who register without a key fall
// back to the shared default credential.
package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/siteforgelabs/siteforged/internal/config"
	"github.com/siteforgelabs/siteforged/internal/contextstore"
	"github.com/siteforgelabs/siteforged/internal/logging"
)

var (
	// ErrUserExists is returned when registering an already-taken username.
	ErrUserExists = errors.New("auth: user already exists")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("auth: invalid username or password")

	// ErrInvalidToken is returned for unknown or expired bearer tokens.
	ErrInvalidToken = errors.New("auth: invalid or expired token")

	// ErrWeakPassword is returned when a password fails the policy.
	ErrWeakPassword = errors.New("auth: password does not meet requirements")
)

// UserStore persists account records.
type UserStore interface {
	SaveUser(ctx context.Context, rec contextstore.UserRecord) error
	GetUser(ctx context.Context, username string) (contextstore.UserRecord, error)
}

// timeNow is swapped in tests.
var timeNow = time.Now

var nameSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

type tokenInfo struct {
	username string
	expires  time.Time
}

// Service implements registration, login, and token validation.
type Service struct {
	store      UserStore
	tokenTTL   time.Duration
	defaultKey string
	aead       cipher.AEAD
	logger     *logging.Logger

	mu     sync.Mutex
	tokens map[string]tokenInfo
}

// NewService builds an auth service. cfg.EncryptionKey must be set;
// defaultKey may be empty, in which case keyless registration fails at
// generation time rather than registration time.
func NewService(cfg config.AuthConfig, defaultKey string, store UserStore, logger *logging.Logger) (*Service, error) {
	if !cfg.EncryptionKey.IsSet() {
		return nil, errors.New("auth: encryption key required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	derived := sha256.Sum256([]byte(cfg.EncryptionKey.Value()))
	block, err := aes.NewCipher(derived[:])
	if err != nil {
		return nil, fmt.Errorf("deriving cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating AEAD: %w", err)
	}

	ttl := cfg.TokenTTL.Duration()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Service{
		store:      store,
		tokenTTL:   ttl,
		defaultKey: defaultKey,
		aead:       aead,
		logger:     logger.Named("auth"),
		tokens:     make(map[string]tokenInfo),
	}, nil
}

// Username derives the canonical username from a first and last name:
// lowercased, non-alphanumerics stripped, joined with a dot.
func Username(firstName, lastName string) string {
	first := nameSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(firstName)), "")
	last := nameSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(lastName)), "")
	if last == "" {
		return first
	}
	return first + "." + last
}

// ValidatePassword returns the policy requirements the password fails
// to meet. An empty slice means the password is acceptable.
func ValidatePassword(password string) []string {
	var problems []string
	if len(password) < 8 {
		problems = append(problems, "at least 8 characters")
	}
	if !strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		problems = append(problems, "an uppercase letter")
	}
	if !strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") {
		problems = append(problems, "a lowercase letter")
	}
	if !strings.ContainsAny(password, "0123456789") {
		problems = append(problems, "a digit")
	}
	if !strings.ContainsAny(password, "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~") {
		problems = append(problems, "a special character")
	}
	return problems
}

// ValidAPIKeyFormat reports whether key looks like a usable
// generation API key.
func ValidAPIKeyFormat(key string) bool {
	return strings.HasPrefix(key, "gsk_") && len(key) > 20
}

// RegisterResult reports the outcome of a registration.
type RegisterResult struct {
	Username        string
	UsingDefaultKey bool
}

// Register creates an account. When apiKey is absent or malformed the
// account is marked as using the shared default credential.
func (s *Service) Register(ctx context.Context, firstName, lastName, password, apiKey string) (RegisterResult, error) {
	username := Username(firstName, lastName)
	if username == "" || username == "." {
		return RegisterResult{}, errors.New("auth: first and last name required")
	}
	if problems := ValidatePassword(password); len(problems) > 0 {
		return RegisterResult{}, fmt.Errorf("%w: needs %s", ErrWeakPassword, strings.Join(problems, ", "))
	}
	if _, err := s.store.GetUser(ctx, username); err == nil {
		return RegisterResult{}, ErrUserExists
	} else if !errors.Is(err, contextstore.ErrUserNotFound) {
		return RegisterResult{}, fmt.Errorf("checking existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hashing password: %w", err)
	}

	usingDefault := !ValidAPIKeyFormat(apiKey)
	encrypted := ""
	if !usingDefault {
		encrypted, err = s.encrypt(apiKey)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("encrypting API key: %w", err)
		}
	}

	rec := contextstore.UserRecord{
		Username:        username,
		PasswordHash:    string(hash),
		EncryptedAPIKey: encrypted,
		UsingDefaultKey: usingDefault,
		CreatedAt:       timeNow().UTC(),
	}
	if err := s.store.SaveUser(ctx, rec); err != nil {
		return RegisterResult{}, fmt.Errorf("saving user: %w", err)
	}

	s.logger.Info(ctx, "user registered",
		zap.String("username", username),
		zap.Bool("using_default_key", usingDefault))
	return RegisterResult{Username: username, UsingDefaultKey: usingDefault}, nil
}

// LoginResult carries the issued bearer token.
type LoginResult struct {
	Username        string
	Token           string
	ExpiresAt       time.Time
	UsingDefaultKey bool
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	rec, err := s.store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, contextstore.ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("loading user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token := uuid.NewString()
	expires := timeNow().Add(s.tokenTTL)
	s.mu.Lock()
	s.tokens[token] = tokenInfo{username: username, expires: expires}
	s.mu.Unlock()

	s.logger.Info(ctx, "user logged in", zap.String("username", username))
	return LoginResult{
		Username:        username,
		Token:           token,
		ExpiresAt:       expires,
		UsingDefaultKey: rec.UsingDefaultKey,
	}, nil
}

// ValidateToken resolves a bearer token to its username. Expired
// tokens are evicted.
func (s *Service) ValidateToken(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.tokens[token]
	if !ok {
		return "", ErrInvalidToken
	}
	if timeNow().After(info.expires) {
		delete(s.tokens, token)
		return "", ErrInvalidToken
	}
	return info.username, nil
}

// Revoke invalidates a bearer token. Revoking an unknown token is a
// no-op.
func (s *Service) Revoke(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

// CredentialFor returns the generation API key to use for a user and
// whether it is the shared default.
func (s *Service) CredentialFor(ctx context.Context, username string) (string, bool, error) {
	rec, err := s.store.GetUser(ctx, username)
	if err != nil {
		return "", false, fmt.Errorf("loading user: %w", err)
	}
	if rec.UsingDefaultKey || rec.EncryptedAPIKey == "" {
		return s.defaultKey, true, nil
	}
	key, err := s.decrypt(rec.EncryptedAPIKey)
	if err != nil {
		return "", false, fmt.Errorf("decrypting API key: %w", err)
	}
	return key, false, nil
}

func (s *Service) encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Service) decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(raw) < s.aead.NonceSize() {
		return "", errors.New("auth: ciphertext too short")
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
