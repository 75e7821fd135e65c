package repository

import (
	"context"

	"alumniconnect/internal/domain/entity"
)

// ProfileRepository is a read-only view of the alumni directory owned by the
// profile collaborator.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
}

// ConnectionRepository exposes the connection graph owned by the networking
// collaborator: the set of user IDs the given user may start a conversation
// with. It is consumed only to populate candidate lists; an existing
// conversation is usable regardless of connection state.
type ConnectionRepository interface {
	ListConnectedTo(ctx context.Context, userID string) ([]string, error)
}
