package background

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"edumart2/internal/jobs"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

const reconcileBatchSize = 100

// JobScheduler runs periodic housekeeping alongside the API server.
type JobScheduler struct {
	scheduler      gocron.Scheduler
	invitationRepo repositories.InvitationRepository
	userRepo       repositories.UserRepository
	enqueuer       services.Enqueuer
}

func NewJobScheduler(invitationRepo repositories.InvitationRepository, userRepo repositories.UserRepository, enqueuer services.Enqueuer) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:      scheduler,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		enqueuer:       enqueuer,
	}
	js.registerJobs()
	return js
}

func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	// The invitation state machine expires lazily on the read path; this
	// sweep catches invitations nobody ever looked at again.
	_, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.expireOverdueInvitations, context.Background()),
		gocron.WithName("invitation-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create invitation expiry job: %v", err)
	}

	// Credential enqueues during provisioning are best-effort; this sweep
	// re-enqueues users whose issuance task was lost. The task handler is
	// idempotent, so a duplicate enqueue is harmless.
	_, err = js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.reconcileMissingCredentials, context.Background()),
		gocron.WithName("credential-reconciliation"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create credential reconciliation job: %v", err)
	}
}

func (js *JobScheduler) expireOverdueInvitations(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	count, err := js.invitationRepo.ExpireOverdue(ctx, time.Now())
	if err != nil {
		log.Printf("Invitation expiry sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Invitation expiry sweep marked %d invitations expired", count)
	}
}

func (js *JobScheduler) reconcileMissingCredentials(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	userIDs, err := js.userRepo.ListMissingCredentials(ctx, reconcileBatchSize)
	if err != nil {
		log.Printf("Credential reconciliation sweep failed: %v", err)
		return
	}

	enqueued := 0
	for _, userID := range userIDs {
		task, err := jobs.NewCredentialIssueTask(userID)
		if err != nil {
			log.Printf("Failed to build credential task for user %s: %v", userID, err)
			continue
		}
		if _, err := js.enqueuer.EnqueueContext(ctx, task); err != nil {
			log.Printf("Failed to re-enqueue credential issuance for user %s: %v", userID, err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		log.Printf("Credential reconciliation re-enqueued %d users", enqueued)
	}
}
