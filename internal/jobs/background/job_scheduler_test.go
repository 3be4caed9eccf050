package background

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumart2/internal/jobs"
	"edumart2/internal/repositories"
)

type fakeUserRepo struct {
	repositories.UserRepository
	missing []uuid.UUID
	listErr error
}

func (f *fakeUserRepo) ListMissingCredentials(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.missing, nil
}

type fakeEnqueuer struct {
	tasks      []*asynq.Task
	enqueueErr error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestReconcileMissingCredentialsEnqueuesOneTaskPerUser(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	userRepo := &fakeUserRepo{missing: []uuid.UUID{first, second}}
	enqueuer := &fakeEnqueuer{}

	js := NewJobScheduler(nil, userRepo, enqueuer)
	defer js.Stop()

	js.reconcileMissingCredentials(context.Background())

	require.Len(t, enqueuer.tasks, 2)
	want := []uuid.UUID{first, second}
	for i, task := range enqueuer.tasks {
		assert.Equal(t, jobs.TypeCredentialIssue, task.Type())
		var payload jobs.CredentialIssuePayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.Equal(t, want[i], payload.UserID)
	}
}

func TestReconcileMissingCredentialsNoBacklog(t *testing.T) {
	userRepo := &fakeUserRepo{}
	enqueuer := &fakeEnqueuer{}

	js := NewJobScheduler(nil, userRepo, enqueuer)
	defer js.Stop()

	js.reconcileMissingCredentials(context.Background())

	assert.Empty(t, enqueuer.tasks)
}

func TestReconcileMissingCredentialsSurvivesRepoError(t *testing.T) {
	userRepo := &fakeUserRepo{listErr: errors.New("connection reset")}
	enqueuer := &fakeEnqueuer{}

	js := NewJobScheduler(nil, userRepo, enqueuer)
	defer js.Stop()

	js.reconcileMissingCredentials(context.Background())

	assert.Empty(t, enqueuer.tasks)
}
