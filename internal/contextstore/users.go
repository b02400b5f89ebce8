package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// ErrUserNotFound is returned when no record exists for a username.
var ErrUserNotFound = errors.New("contextstore: user not found")

// UserRecord is the stored account state for one user.
type UserRecord struct {
	Username        string    `json:"username"`
	PasswordHash    string    `json:"password_hash"`
	EncryptedAPIKey string    `json:"encrypted_api_key"`
	UsingDefaultKey bool      `json:"using_default_key"`
	CreatedAt       time.Time `json:"created_at"`
}

func userDocID(username string) string {
	return "user-" + username
}

// SaveUser stores or replaces a user record.
func (s *Store) SaveUser(ctx context.Context, rec UserRecord) error {
	ctx, span := tracer.Start(ctx, "contextstore.SaveUser")
	defer span.End()

	if rec.Username == "" {
		return fmt.Errorf("%w: username required", ErrInvalidConfig)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding user record: %w", err)
	}

	doc := chromem.Document{
		ID:      userDocID(rec.Username),
		Content: string(payload),
		Metadata: map[string]string{
			"username": rec.Username,
		},
	}
	if err := s.users.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("storing user record: %w", err)
	}
	return nil
}

// GetUser loads the record for a username, or ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, username string) (UserRecord, error) {
	ctx, span := tracer.Start(ctx, "contextstore.GetUser")
	defer span.End()

	if s.users.Count() == 0 {
		return UserRecord{}, ErrUserNotFound
	}
	results, err := s.users.Query(ctx, username, 1, map[string]string{"username": username}, nil)
	if err != nil || len(results) == 0 {
		return UserRecord{}, ErrUserNotFound
	}

	var rec UserRecord
	if err := json.Unmarshal([]byte(results[0].Content), &rec); err != nil {
		return UserRecord{}, fmt.Errorf("decoding user record: %w", err)
	}
	return rec, nil
}
