package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saturnlabs/docchat/internal/models"
)

var ErrNotFound = errors.New("conversation not found")

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, title string) (*models.Conversation, error) {
	conv := &models.Conversation{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Title:   title,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO conversations (id, owner_id, title) VALUES ($1, $2, $3) RETURNING created_at`,
		conv.ID, conv.OwnerID, conv.Title,
	).Scan(&conv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.QueryRow(ctx,
		`SELECT id, owner_id, title, created_at FROM conversations WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&c.ID, &c.OwnerID, &c.Title, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, title, created_at FROM conversations
		 WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (s *Service) AppendTurn(ctx context.Context, conversationID uuid.UUID, role, content string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO conversation_turns (conversation_id, role, content) VALUES ($1, $2, $3)`,
		conversationID, role, content,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// History returns the most recent `window` turns in chronological order.
// The (created_at, id) ordering makes turn order total even when two turns
// share a timestamp.
func (s *Service) History(ctx context.Context, conversationID uuid.UUID, window int) ([]models.Turn, error) {
	if window <= 0 {
		window = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM (
			SELECT id, conversation_id, role, content, created_at
			FROM conversation_turns
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		 ) recent ORDER BY created_at ASC, id ASC`,
		conversationID, window,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
