package contextstore

import (
	"context"
	"strings"
	"testing"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteforgelabs/siteforged/internal/config"
)

// hashEmbed is a deterministic stand-in embedder. Texts sharing words
// land near each other, which is enough for retrieval tests.
func hashEmbed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		var h uint32
		for _, r := range word {
			h = h*31 + uint32(r)
		}
		vec[h%8]++
	}
	return vec, nil
}

func testConfig() config.ContextStoreConfig {
	return config.ContextStoreConfig{
		Collection:      "conversations_test",
		UsersCollection: "users_test",
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemory(testConfig(), hashEmbed, nil)
	require.NoError(t, err)
	return s
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := NewInMemory(testConfig(), nil, nil)

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRetrieve_EmptyStoreReturnsNothing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Retrieve(context.Background(), "alice_session", "anything", 5)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendAndRetrieve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "alice_session", "lead", "initial",
		"I want an ecommerce website", "Great, what should it be called?"))

	got, err := s.Retrieve(ctx, "alice_session", "ecommerce website", 5)

	require.NoError(t, err)
	assert.Contains(t, got, "[lead at initial]:")
	assert.Contains(t, got, "I want an ecommerce website")
}

func TestRetrieve_ScopedToSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "alice_session", "lead", "initial", "alice message", "reply"))
	require.NoError(t, s.Append(ctx, "bob_session", "lead", "initial", "bob message", "reply"))

	got, err := s.Retrieve(ctx, "alice_session", "message", 5)

	require.NoError(t, err)
	assert.Contains(t, got, "alice message")
	assert.NotContains(t, got, "bob message")
}

func TestRetrieve_SnippetsAreTruncated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("verbose output ", 100)
	require.NoError(t, s.Append(ctx, "alice_session", "frontend", "header", "build it", long))

	got, err := s.Retrieve(ctx, "alice_session", "build", 5)

	require.NoError(t, err)
	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len(line), snippetLimit+len("[frontend at header]: "))
	}
}

func TestClear_RemovesOnlyThatSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "alice_session", "lead", "initial", "alice message", "reply"))
	require.NoError(t, s.Append(ctx, "bob_session", "lead", "initial", "bob message", "reply"))

	require.NoError(t, s.Clear(ctx, "alice_session"))

	got, err := s.Retrieve(ctx, "alice_session", "message", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Retrieve(ctx, "bob_session", "message", 5)
	require.NoError(t, err)
	assert.Contains(t, got, "bob message")
}

func TestSaveAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := UserRecord{
		Username:        "jane.doe",
		PasswordHash:    "$2a$10$hash",
		EncryptedAPIKey: "ciphertext",
		UsingDefaultKey: false,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveUser(ctx, rec))

	got, err := s.GetUser(ctx, "jane.doe")

	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "nobody")

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSaveUser_Overwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := UserRecord{Username: "jane.doe", UsingDefaultKey: true, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.SaveUser(ctx, rec))

	rec.UsingDefaultKey = false
	rec.EncryptedAPIKey = "new-ciphertext"
	require.NoError(t, s.SaveUser(ctx, rec))

	got, err := s.GetUser(ctx, "jane.doe")
	require.NoError(t, err)
	assert.False(t, got.UsingDefaultKey)
	assert.Equal(t, "new-ciphertext", got.EncryptedAPIKey)
}

func TestSaveUser_RequiresUsername(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveUser(context.Background(), UserRecord{})

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

var _ chromem.EmbeddingFunc = hashEmbed
