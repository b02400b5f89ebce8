package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteforgelabs/siteforged/internal/config"
	"github.com/siteforgelabs/siteforged/internal/contextstore"
)

type memStore struct {
	users map[string]contextstore.UserRecord
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]contextstore.UserRecord)}
}

func (m *memStore) SaveUser(_ context.Context, rec contextstore.UserRecord) error {
	m.users[rec.Username] = rec
	return nil
}

func (m *memStore) GetUser(_ context.Context, username string) (contextstore.UserRecord, error) {
	rec, ok := m.users[username]
	if !ok {
		return contextstore.UserRecord{}, contextstore.ErrUserNotFound
	}
	return rec, nil
}

func newTestService(t *testing.T, defaultKey string) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	svc, err := NewService(config.AuthConfig{
		TokenTTL:      config.Duration(time.Hour),
		EncryptionKey: config.Secret("unit-test-encryption-key"),
	}, defaultKey, store, nil)
	require.NoError(t, err)
	return svc, store
}

const goodPassword = "Sup3rSecret!"

func TestUsername(t *testing.T) {
	assert.Equal(t, "jane.doe", Username("Jane", "Doe"))
	assert.Equal(t, "jane.oconnor", Username(" Jane ", "O'Connor"))
	assert.Equal(t, "prince", Username("Prince", ""))
}

func TestValidatePassword(t *testing.T) {
	assert.Empty(t, ValidatePassword(goodPassword))

	problems := ValidatePassword("short")
	assert.Contains(t, problems, "at least 8 characters")
	assert.Contains(t, problems, "an uppercase letter")
	assert.Contains(t, problems, "a digit")
	assert.Contains(t, problems, "a special character")

	assert.NotEmpty(t, ValidatePassword("ALLUPPER1!"), "needs lowercase")
}

func TestValidAPIKeyFormat(t *testing.T) {
	assert.True(t, ValidAPIKeyFormat("gsk_0123456789abcdefghij"))
	assert.False(t, ValidAPIKeyFormat("sk-other-provider-key-123"))
	assert.False(t, ValidAPIKeyFormat("gsk_short"))
	assert.False(t, ValidAPIKeyFormat(""))
}

func TestRegister_WithOwnKey(t *testing.T) {
	svc, store := newTestService(t, "gsk_default_key_abcdefghij")

	res, err := svc.Register(context.Background(), "Jane", "Doe", goodPassword, "gsk_user_key_0123456789abc")

	require.NoError(t, err)
	assert.Equal(t, "jane.doe", res.Username)
	assert.False(t, res.UsingDefaultKey)

	rec := store.users["jane.doe"]
	assert.NotEmpty(t, rec.EncryptedAPIKey)
	assert.NotContains(t, rec.EncryptedAPIKey, "gsk_user_key", "key must not be stored in the clear")
	assert.NotEqual(t, goodPassword, rec.PasswordHash)
}

func TestRegister_FallsBackToDefaultKey(t *testing.T) {
	svc, _ := newTestService(t, "gsk_default_key_abcdefghij")

	res, err := svc.Register(context.Background(), "Jane", "Doe", goodPassword, "")

	require.NoError(t, err)
	assert.True(t, res.UsingDefaultKey)

	key, usingDefault, err := svc.CredentialFor(context.Background(), "jane.doe")
	require.NoError(t, err)
	assert.True(t, usingDefault)
	assert.Equal(t, "gsk_default_key_abcdefghij", key)
}

func TestRegister_RejectsWeakPassword(t *testing.T) {
	svc, _ := newTestService(t, "")

	_, err := svc.Register(context.Background(), "Jane", "Doe", "weak", "")

	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegister_RejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t, "")
	_, err := svc.Register(context.Background(), "Jane", "Doe", goodPassword, "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Jane", "Doe", goodPassword, "")

	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLoginAndValidateToken(t *testing.T) {
	svc, _ := newTestService(t, "")
	_, err := svc.Register(context.Background(), "Jane", "Doe", goodPassword, "")
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), "jane.doe", goodPassword)

	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)

	username, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", username)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newTestService(t, "")
	_, err := svc.Register(context.Background(), "Jane", "Doe", goodPassword, "")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "jane.doe", "Wrong1234!")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t, "")

	_, err := svc.Login(context.Background(), "nobody", goodPassword)

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_Expiry(t *testing.T) {
	svc, _ := newTestService(t, "")
	_, err := svc.Register(context.Background(), "Jane", "Doe", goodPassword, "")
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), "jane.doe", goodPassword)
	require.NoError(t, err)

	orig := timeNow
	defer func() { timeNow = orig }()
	timeNow = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = svc.ValidateToken(res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Expired tokens stay invalid even if the clock moves back.
	timeNow = orig
	_, err = svc.ValidateToken(res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevoke(t *testing.T) {
	svc, _ := newTestService(t, "")
	_, err := svc.Register(context.Background(), "Jane", "Doe", goodPassword, "")
	require.NoError(t, err)
	res, err := svc.Login(context.Background(), "jane.doe", goodPassword)
	require.NoError(t, err)

	svc.Revoke(res.Token)

	_, err = svc.ValidateToken(res.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCredentialFor_DecryptsOwnKey(t *testing.T) {
	svc, _ := newTestService(t, "gsk_default_key_abcdefghij")
	_, err := svc.Register(context.Background(), "Jane", "Doe", goodPassword, "gsk_user_key_0123456789abc")
	require.NoError(t, err)

	key, usingDefault, err := svc.CredentialFor(context.Background(), "jane.doe")

	require.NoError(t, err)
	assert.False(t, usingDefault)
	assert.Equal(t, "gsk_user_key_0123456789abc", key)
}

func TestNewService_RequiresEncryptionKey(t *testing.T) {
	_, err := NewService(config.AuthConfig{TokenTTL: config.Duration(time.Hour)}, "", newMemStore(), nil)

	assert.Error(t, err)
}
