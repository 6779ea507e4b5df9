package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/events"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
	"github.com/google/uuid"
)

const sweepBatchSize = 500

// AuthAdmin deletes users from the managed auth platform. Deleting an
// already-deleted user must be a success.
type AuthAdmin interface {
	DeleteAuthUser(ctx context.Context, uid string) error
}

type firebaseAuthAdmin struct {
	client *auth.Client
}

// NewFirebaseAuthAdmin wraps the Firebase Auth client as an AuthAdmin.
func NewFirebaseAuthAdmin(client *auth.Client) AuthAdmin {
	return &firebaseAuthAdmin{client: client}
}

func (a *firebaseAuthAdmin) DeleteAuthUser(ctx context.Context, uid string) error {
	err := a.client.DeleteUser(ctx, uid)
	if err != nil && !auth.IsUserNotFound(err) {
		return err
	}
	return nil
}

// CleanupService runs the cascading deletes behind account removal, explicit
// content deletion, and the expiry sweep. Every cascade is journaled as a
// CleanupJob and every step is idempotent, so the universal recovery strategy
// is to re-run the whole job.
type CleanupService struct {
	jobs          repositories.CleanupJobRepository
	users         repositories.UserRepository
	relationships repositories.RelationshipRepository
	content       repositories.ContentRepository
	groups        repositories.GroupRepository
	media         repositories.MediaRepository
	auth          AuthAdmin

	sub *events.Subscription
}

// NewCleanupService creates a CleanupService.
func NewCleanupService(
	jobs repositories.CleanupJobRepository,
	users repositories.UserRepository,
	relationships repositories.RelationshipRepository,
	content repositories.ContentRepository,
	groups repositories.GroupRepository,
	media repositories.MediaRepository,
	authAdmin AuthAdmin,
) *CleanupService {
	return &CleanupService{
		jobs:          jobs,
		users:         users,
		relationships: relationships,
		content:       content,
		groups:        groups,
		media:         media,
		auth:          authAdmin,
	}
}

// Start subscribes the orchestrator to account-deletion events. Delivery is
// at-least-once; DeleteAccount attaches redeliveries to the open job instead
// of journaling duplicates.
func (s *CleanupService) Start(bus *events.Bus) {
	s.sub = bus.Subscribe(events.KindAccountDeleted, func(ctx context.Context, e events.Event) {
		ev, ok := e.(events.AccountDeleted)
		if !ok {
			return
		}
		if _, err := s.DeleteAccount(ctx, ev.UID, ev.Username); err != nil {
			log.Printf("account cleanup for %s: %v", ev.UID, err)
		}
	})
}

// Stop cancels the event subscription.
func (s *CleanupService) Stop() {
	s.sub.Cancel()
}

// DeleteAccount journals and runs the account cascade for uid. The username
// is captured by the caller while the profile document still exists; the job
// keeps it so a retry can release the reservation after the profile is gone.
// Returns the finished job along with ErrPartialFailure when any step failed.
func (s *CleanupService) DeleteAccount(ctx context.Context, uid, username string) (*models.CleanupJob, error) {
	job, err := s.jobs.FindOpenForSubject(ctx, models.CleanupScopeAccount, uid)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		job = &models.CleanupJob{
			ID:       uuid.NewString(),
			Scope:    models.CleanupScopeAccount,
			Subject:  uid,
			Username: username,
			Steps: map[string]models.StepResult{
				models.StepAuth:     {Status: models.StepPending},
				models.StepProfile:  {Status: models.StepPending},
				models.StepUsername: {Status: models.StepPending},
				models.StepGraph:    {Status: models.StepPending},
				models.StepContent:  {Status: models.StepPending},
				models.StepStorage:  {Status: models.StepPending},
				models.StepGroups:   {Status: models.StepPending},
			},
			State: models.CleanupTriggered,
		}
		if err := s.jobs.Insert(ctx, job); err != nil {
			return nil, err
		}
		log.Printf("cleanup job %s: account %s triggered", job.ID, uid)
	}

	err = s.runAccountJob(ctx, job)
	return job, err
}

// runAccountJob executes the not-yet-succeeded steps of an account job
// concurrently. The steps touch disjoint data, each is idempotent, and the
// job reaches done only when all of them succeed.
func (s *CleanupService) runAccountJob(ctx context.Context, job *models.CleanupJob) error {
	job.State = models.CleanupRunning
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}

	steps := map[string]func(context.Context) error{
		models.StepAuth: func(c context.Context) error {
			return s.auth.DeleteAuthUser(c, job.Subject)
		},
		models.StepProfile: func(c context.Context) error {
			return s.users.DeleteUser(c, job.Subject)
		},
		models.StepUsername: func(c context.Context) error {
			if job.Username == "" {
				return nil
			}
			return s.users.ReleaseUsername(c, job.Username)
		},
		models.StepGraph: func(c context.Context) error {
			_, err := s.relationships.DeleteAllForUser(c, job.Subject)
			return err
		},
		models.StepContent: func(c context.Context) error {
			_, err := s.content.DeleteAllForUser(c, job.Subject)
			return err
		},
		models.StepStorage: func(c context.Context) error {
			return s.media.PurgeOwner(c, job.Subject)
		},
		models.StepGroups: func(c context.Context) error {
			_, err := s.groups.RemoveUserFromAll(c, job.Subject)
			return err
		},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, run := range steps {
		if job.Steps[name].Status == models.StepOK {
			continue
		}
		wg.Add(1)
		go func(name string, run func(context.Context) error) {
			defer wg.Done()
			result := models.StepResult{Status: models.StepOK}
			if err := run(ctx); err != nil {
				result = models.StepResult{Status: models.StepFailed, Error: err.Error()}
				log.Printf("cleanup job %s: step %s failed for user %s: %v", job.ID, name, job.Subject, err)
			}
			mu.Lock()
			job.Steps[name] = result
			mu.Unlock()
		}(name, run)
	}
	wg.Wait()

	failed := job.FailedSteps()
	if len(failed) == 0 {
		job.State = models.CleanupDone
	} else {
		job.State = models.CleanupPartialFailure
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}
	log.Printf("cleanup job %s: account %s -> %s", job.ID, job.Subject, job.State)

	if len(failed) > 0 {
		return apperror.PartialFailure(job.ID, failed)
	}
	return nil
}

// CleanupContent deletes a content item document and, when no other item
// still references the same blob, unbinds the blob. Both deletes treat
// absence as success. The happy path writes no journal row; a failure
// journals a content-scope job so the pair can be retried.
func (s *CleanupService) CleanupContent(ctx context.Context, itemID, mediaRef string) error {
	job, err := s.jobs.FindOpenForSubject(ctx, models.CleanupScopeContent, itemID)
	persisted := err == nil
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		job = &models.CleanupJob{
			ID:       uuid.NewString(),
			Scope:    models.CleanupScopeContent,
			Subject:  itemID,
			MediaRef: mediaRef,
			Steps: map[string]models.StepResult{
				models.StepDocument: {Status: models.StepPending},
				models.StepBlob:     {Status: models.StepPending},
			},
			State: models.CleanupTriggered,
		}
	}

	err = s.runContentJob(ctx, job)
	if job.State == models.CleanupDone && !persisted {
		return err
	}
	if persisted {
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			return uerr
		}
	} else if ierr := s.jobs.Insert(ctx, job); ierr != nil {
		return ierr
	}
	return err
}

// runContentJob deletes the document first, then the blob, so a failure in
// between never leaves a live document pointing at reclaimed media.
func (s *CleanupService) runContentJob(ctx context.Context, job *models.CleanupJob) error {
	job.State = models.CleanupRunning

	s.runStep(ctx, job, models.StepDocument, func(c context.Context) error {
		return s.content.Delete(c, job.Subject)
	})
	// The blob step only runs once the document is gone. Counting references
	// while our own document still exists would wrongly report the blob as
	// shared and mark the step done without unbinding anything.
	if job.Steps[models.StepDocument].Status == models.StepOK {
		s.runStep(ctx, job, models.StepBlob, func(c context.Context) error {
			if job.MediaRef == "" {
				return nil
			}
			refs, err := s.content.CountByMediaRef(c, job.MediaRef)
			if err != nil {
				return err
			}
			if refs > 0 {
				return nil
			}
			return s.media.Delete(c, job.MediaRef)
		})
	}

	failed := job.FailedSteps()
	if len(failed) == 0 {
		job.State = models.CleanupDone
		return nil
	}
	job.State = models.CleanupPartialFailure
	return apperror.PartialFailure(job.ID, failed)
}

func (s *CleanupService) runStep(ctx context.Context, job *models.CleanupJob, name string, run func(context.Context) error) {
	if job.Steps[name].Status == models.StepOK {
		return
	}
	if err := run(ctx); err != nil {
		job.Steps[name] = models.StepResult{Status: models.StepFailed, Error: err.Error()}
		log.Printf("cleanup job %s: step %s failed for %s: %v", job.ID, name, job.Subject, err)
		return
	}
	job.Steps[name] = models.StepResult{Status: models.StepOK}
}

// SweepExpired removes every item past expiry in a point-in-time snapshot,
// one CleanupContent per item. A failed document delete surfaces again on the
// next sweep; any failure also leaves a journaled job as the retry handle.
// Overlapping sweeps are safe because both deletes tolerate absence.
func (s *CleanupService) SweepExpired(ctx context.Context) (int, error) {
	items, err := s.content.ListExpired(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	var failures []error
	for i := range items {
		if err := s.CleanupContent(ctx, items[i].ID, items[i].MediaRef); err != nil {
			failures = append(failures, err)
			continue
		}
		swept++
	}
	return swept, errors.Join(failures...)
}

// RetryJob re-runs a journaled job, skipping steps that already succeeded.
// Retrying a done job is a no-op. Step failures land in the returned job's
// state rather than in the error.
func (s *CleanupService) RetryJob(ctx context.Context, jobID string) (*models.CleanupJob, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.State == models.CleanupDone {
		return job, nil
	}

	switch job.Scope {
	case models.CleanupScopeAccount:
		err = s.runAccountJob(ctx, job)
	case models.CleanupScopeContent:
		err = s.runContentJob(ctx, job)
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			return nil, uerr
		}
	default:
		return nil, apperror.InvalidOperation("unknown cleanup scope " + job.Scope)
	}

	if err != nil && !errors.Is(err, apperror.ErrPartialFailure) {
		return nil, err
	}
	return job, nil
}

// ListJobs returns journaled jobs, optionally filtered by state.
func (s *CleanupService) ListJobs(ctx context.Context, state string) ([]models.CleanupJob, error) {
	if state != "" {
		switch state {
		case models.CleanupTriggered, models.CleanupRunning, models.CleanupDone, models.CleanupPartialFailure:
		default:
			return nil, apperror.InvalidOperation("unknown cleanup state " + state)
		}
	}
	return s.jobs.ListByState(ctx, state, 100)
}
