package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"alumniconnect/internal/domain/entity"
	"alumniconnect/internal/domain/repository"
	"alumniconnect/pkg/errors"
)

type firestoreProfileRepository struct {
	client *firestore.Client
}

func NewFirestoreProfileRepository(client *firestore.Client) repository.ProfileRepository {
	return &firestoreProfileRepository{
		client: client,
	}
}

func (r *firestoreProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	doc, err := r.client.Collection("users").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Profile", err)
		}
		return nil, classifyStoreError("Failed to get profile", err)
	}

	var profile entity.Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, errors.Internal("Failed to parse profile data", err)
	}
	profile.ID = doc.Ref.ID

	return &profile, nil
}

type firestoreConnectionRepository struct {
	client *firestore.Client
}

func NewFirestoreConnectionRepository(client *firestore.Client) repository.ConnectionRepository {
	return &firestoreConnectionRepository{
		client: client,
	}
}

// ListConnectedTo reads the per-user connections document. A missing document
// means the user simply has no connections yet.
func (r *firestoreConnectionRepository) ListConnectedTo(ctx context.Context, userID string) ([]string, error) {
	doc, err := r.client.Collection("connections").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, classifyStoreError("Failed to get connections", err)
	}

	var record struct {
		ConnectedTo []string `firestore:"connectedTo"`
	}
	if err := doc.DataTo(&record); err != nil {
		return nil, errors.Internal("Failed to parse connections data", err)
	}

	return record.ConnectedTo, nil
}
