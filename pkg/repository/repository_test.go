package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/slotwise/calsync/pkg/domain/interfaces"
	"github.com/slotwise/calsync/pkg/repository/firestore"
)

// newFirestoreRepo skips unless TEST_FIRESTORE_PROJECT_ID points at a real
// project. Collections are prefixed per run so parallel CI jobs do not
// trample each other.
func newFirestoreRepo(t *testing.T) func(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	return func(t *testing.T) interfaces.Repository {
		prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())
		repo, err := firestore.New(context.Background(), projectID, databaseID,
			firestore.WithCollectionPrefix(prefix))
		gt.NoError(t, err).Required()
		t.Cleanup(func() {
			_ = repo.Close()
		})
		return repo
	}
}
