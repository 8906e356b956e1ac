package profile

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/givebridge/authfront/internal/log"
)

// FirestoreStore implements Store on Google Cloud Firestore. Documents are
// keyed by subject id; Upsert relies on Firestore's Create semantics so an
// insert-if-absent never races with a concurrent profile write.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

var _ Store = (*FirestoreStore)(nil)

// profileDoc is the Firestore document shape
type profileDoc struct {
	SubjectID   string    `firestore:"subject_id"`
	Email       string    `firestore:"email"`
	FullName    string    `firestore:"full_name,omitempty"`
	Role        string    `firestore:"role,omitempty"`
	DateOfBirth string    `firestore:"date_of_birth,omitempty"`
	PhoneNumber string    `firestore:"phone_number,omitempty"`
	Address     string    `firestore:"address,omitempty"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

// NewFirestoreStore creates a profile store in the given project and collection
func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	log.LogInfoWithFields("profile", "Firestore profile store initialized", map[string]any{
		"project":    projectID,
		"collection": collection,
	})

	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

// Get fetches the profile for a subject, or ErrProfileNotFound
func (s *FirestoreStore) Get(ctx context.Context, subjectID string) (*Profile, error) {
	doc, err := s.client.Collection(s.collection).Doc(subjectID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile %s: %w", subjectID, err)
	}

	var entity profileDoc
	if err := doc.DataTo(&entity); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", subjectID, err)
	}

	return entity.toProfile(), nil
}

// Upsert inserts a profile document if absent. An existing document is
// left untouched.
func (s *FirestoreStore) Upsert(ctx context.Context, profile Profile) error {
	now := time.Now()
	entity := profileDoc{
		SubjectID:   profile.SubjectID,
		Email:       profile.Email,
		FullName:    profile.FullName,
		Role:        profile.Role,
		DateOfBirth: profile.DateOfBirth,
		PhoneNumber: profile.PhoneNumber,
		Address:     profile.Address,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.client.Collection(s.collection).Doc(profile.SubjectID).Create(ctx, entity)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("failed to create profile %s: %w", profile.SubjectID, err)
	}
	return nil
}

// All returns every stored profile. Used by operational tooling, not the
// reconciliation flow.
func (s *FirestoreStore) All(ctx context.Context) ([]Profile, error) {
	var profiles []Profile

	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate profiles: %w", err)
		}

		var entity profileDoc
		if err := doc.DataTo(&entity); err != nil {
			log.LogWarnWithFields("profile", "Skipping undecodable profile document", map[string]any{
				"doc":   doc.Ref.ID,
				"error": err.Error(),
			})
			continue
		}
		profiles = append(profiles, *entity.toProfile())
	}

	return profiles, nil
}

// Close releases the underlying Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (d *profileDoc) toProfile() *Profile {
	return &Profile{
		SubjectID:   d.SubjectID,
		Email:       d.Email,
		FullName:    d.FullName,
		Role:        d.Role,
		DateOfBirth: d.DateOfBirth,
		PhoneNumber: d.PhoneNumber,
		Address:     d.Address,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
