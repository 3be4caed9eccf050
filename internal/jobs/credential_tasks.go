package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TypeCredentialIssue = "credential:issue"

type CredentialIssuePayload struct {
	UserID uuid.UUID `json:"user_id"`
}

func NewCredentialIssueTask(userID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(CredentialIssuePayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCredentialIssue, payload, asynq.MaxRetry(5)), nil
}
