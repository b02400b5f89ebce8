// Package contextstore persists conversation history in an embedded
// vector database and retrieves the exchanges most similar to the
// current message. Retrieval is scoped per session.
package contextstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/siteforgelabs/siteforged/internal/config"
	"github.com/siteforgelabs/siteforged/internal/logging"
)

var tracer = otel.Tracer("siteforged.contextstore")

// ErrInvalidConfig indicates invalid store configuration.
var ErrInvalidConfig = errors.New("contextstore: invalid configuration")

const (
	// snippetLimit caps each retrieved snippet's length.
	snippetLimit = 300

	// DefaultTopK is the number of snippets retrieved when the caller
	// does not specify one.
	DefaultTopK = 5
)

// Store wraps a chromem database holding conversation exchanges and
// user records.
type Store struct {
	db            *chromem.DB
	conversations *chromem.Collection
	users         *chromem.Collection
	logger        *logging.Logger
}

// New opens (or creates) a persistent store at the configured path.
func New(cfg config.ContextStoreConfig, embed chromem.EmbeddingFunc, logger *logging.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: path required", ErrInvalidConfig)
	}
	path, err := expandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem DB: %w", err)
	}

	store, err := newStore(db, cfg, embed, logger)
	if err != nil {
		return nil, err
	}
	store.logger.Info(context.Background(), "context store opened",
		zap.String("path", path),
		zap.Bool("compress", cfg.Compress),
		zap.String("collection", cfg.Collection))
	return store, nil
}

// NewInMemory creates a non-persistent store. Used in tests.
func NewInMemory(cfg config.ContextStoreConfig, embed chromem.EmbeddingFunc, logger *logging.Logger) (*Store, error) {
	return newStore(chromem.NewDB(), cfg, embed, logger)
}

func newStore(db *chromem.DB, cfg config.ContextStoreConfig, embed chromem.EmbeddingFunc, logger *logging.Logger) (*Store, error) {
	if embed == nil {
		return nil, fmt.Errorf("%w: embedding function required", ErrInvalidConfig)
	}
	if cfg.Collection == "" || cfg.UsersCollection == "" {
		return nil, fmt.Errorf("%w: collection names required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	conversations, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", cfg.Collection, err)
	}
	users, err := db.GetOrCreateCollection(cfg.UsersCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", cfg.UsersCollection, err)
	}

	return &Store{
		db:            db,
		conversations: conversations,
		users:         users,
		logger:        logger.Named("contextstore"),
	}, nil
}

// Append records one user/agent exchange for a session.
func (s *Store) Append(ctx context.Context, sessionID, agent, stage, userMessage, agentResponse string) error {
	ctx, span := tracer.Start(ctx, "contextstore.Append")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	doc := chromem.Document{
		ID:      uuid.NewString(),
		Content: fmt.Sprintf("User: %s\n%s: %s", userMessage, agent, agentResponse),
		Metadata: map[string]string{
			"session_id": sessionID,
			"agent":      agent,
			"stage":      stage,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := s.conversations.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("storing exchange: %w", err)
	}
	return nil
}

// Retrieve returns up to topK stored exchanges from the session most
// similar to query, formatted one snippet per line. Returns "" when
// the session has no history. topK <= 0 uses DefaultTopK.
func (s *Store) Retrieve(ctx context.Context, sessionID, query string, topK int) (string, error) {
	ctx, span := tracer.Start(ctx, "contextstore.Retrieve")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	if topK <= 0 {
		topK = DefaultTopK
	}
	count := s.conversations.Count()
	if count == 0 {
		return "", nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.conversations.Query(ctx, query, topK, map[string]string{"session_id": sessionID}, nil)
	if err != nil {
		// Retrieval is best effort; a chat works without it.
		s.logger.Debug(ctx, "context retrieval failed",
			zap.String("session_id", sessionID), zap.Error(err))
		return "", nil
	}

	lines := make([]string, 0, len(results))
	for _, r := range results {
		snippet := r.Content
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		lines = append(lines, fmt.Sprintf("[%s at %s]: %s", r.Metadata["agent"], r.Metadata["stage"], snippet))
	}
	return strings.Join(lines, "\n"), nil
}

// Clear deletes all stored exchanges for a session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "contextstore.Clear")
	defer span.End()

	if err := s.conversations.Delete(ctx, map[string]string{"session_id": sessionID}, nil); err != nil {
		return fmt.Errorf("clearing session history: %w", err)
	}
	s.logger.Info(ctx, "session history cleared", zap.String("session_id", sessionID))
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
