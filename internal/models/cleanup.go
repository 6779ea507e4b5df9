package models

import "time"

// Cleanup job scopes.
const (
	CleanupScopeAccount = "account"
	CleanupScopeContent = "content"
)

// Cleanup job states. PartialFailure is absorbing: the job stays there until a
// retry completes every step.
const (
	CleanupTriggered      = "triggered"
	CleanupRunning        = "running"
	CleanupDone           = "done"
	CleanupPartialFailure = "partial_failure"
)

// Account-cascade step names. The steps touch disjoint data and run
// concurrently; each is independently idempotent.
const (
	StepAuth     = "auth"
	StepProfile  = "profile"
	StepUsername = "username"
	StepGraph    = "graph"
	StepContent  = "content"
	StepStorage  = "storage"
	StepGroups   = "groups"
)

// Content-cleanup step names.
const (
	StepDocument = "document"
	StepBlob     = "blob"
)

// Step outcomes.
const (
	StepPending = "pending"
	StepOK      = "ok"
	StepFailed  = "failed"
)

// StepResult records one step's outcome inside a cleanup job document.
type StepResult struct {
	Status string `json:"status" bson:"status"`
	Error  string `json:"error,omitempty" bson:"error,omitempty"`
}

// CleanupJob is the journal entry for one cascade in the `cleanup_jobs`
// collection. A job that fails partway is never dropped: the document holds
// the subject, the captured username, and per-step outcomes, which is all a
// retry needs.
type CleanupJob struct {
	ID        string                `json:"id" bson:"_id"`
	Scope     string                `json:"scope" bson:"scope"`
	Subject   string                `json:"subject" bson:"subject"`   // uid or content item id
	Username  string                `json:"username,omitempty" bson:"username,omitempty"` // captured before the profile disappears
	MediaRef  string                `json:"media_ref,omitempty" bson:"media_ref,omitempty"`
	Steps     map[string]StepResult `json:"steps" bson:"steps"`
	State     string                `json:"state" bson:"state"`
	CreatedAt time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time             `json:"updated_at" bson:"updated_at"`
}

// FailedSteps lists the steps that did not reach StepOK, sorted order not
// guaranteed.
func (j *CleanupJob) FailedSteps() []string {
	var failed []string
	for name, res := range j.Steps {
		if res.Status != StepOK {
			failed = append(failed, name)
		}
	}
	return failed
}
