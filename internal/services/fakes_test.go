package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/events"
	"github.com/CJonesCode/SnapConnect/internal/models"
)

// In-memory fakes of the repository interfaces, mirroring their documented
// contracts. Error fields inject step failures for the cleanup tests.

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]models.User
	names     map[string]string // lowercase username -> uid
	deleteErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users: make(map[string]models.User),
		names: make(map[string]string),
	}
}

func (f *fakeUserRepo) CreateUserWithUsername(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lower := strings.ToLower(user.Username)
	if _, ok := f.users[user.UID]; ok {
		return apperror.AlreadyExists("user", user.UID)
	}
	if _, ok := f.names[lower]; ok {
		return apperror.AlreadyExists("username", user.Username)
	}
	f.users[user.UID] = *user
	f.names[lower] = user.UID
	return nil
}

func (f *fakeUserRepo) GetUserByUID(_ context.Context, uid string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[uid]
	if !ok {
		return nil, apperror.NotFound("user", uid)
	}
	return &user, nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.names[strings.ToLower(username)]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	user := f.users[uid]
	return &user, nil
}

func (f *fakeUserRepo) GetUsersByUIDs(_ context.Context, uids []string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, uid := range uids {
		if user, ok := f.users[uid]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.UID]; !ok {
		return apperror.NotFound("user", user.UID)
	}
	f.users[user.UID] = *user
	return nil
}

func (f *fakeUserRepo) SearchUsers(_ context.Context, prefix string, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lower := strings.ToLower(prefix)
	var out []models.User
	for _, user := range f.users {
		if strings.HasPrefix(strings.ToLower(user.Username), lower) {
			out = append(out, user)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.users, uid)
	return nil
}

func (f *fakeUserRepo) ReleaseUsername(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.names, strings.ToLower(username))
	return nil
}

type fakeRelationshipRepo struct {
	mu   sync.Mutex
	rels map[string]models.Relationship
}

func newFakeRelationshipRepo() *fakeRelationshipRepo {
	return &fakeRelationshipRepo{rels: make(map[string]models.Relationship)}
}

func (f *fakeRelationshipRepo) Create(_ context.Context, rel *models.Relationship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rels[rel.PairID]; ok {
		return apperror.AlreadyExists("relationship", rel.PairID)
	}
	f.rels[rel.PairID] = *rel
	return nil
}

func (f *fakeRelationshipRepo) GetByPairID(_ context.Context, pairID string) (*models.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel, ok := f.rels[pairID]
	if !ok {
		return nil, apperror.NotFound("relationship", pairID)
	}
	return &rel, nil
}

func (f *fakeRelationshipRepo) Accept(_ context.Context, pairID string, acceptedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel, ok := f.rels[pairID]
	if !ok || rel.Status != models.RelationshipPending {
		return apperror.NotFound("pending relationship", pairID)
	}
	rel.Status = models.RelationshipAccepted
	rel.AcceptedAt = acceptedAt
	f.rels[pairID] = rel
	return nil
}

func (f *fakeRelationshipRepo) Delete(_ context.Context, pairID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rels, pairID)
	return nil
}

func (f *fakeRelationshipRepo) ListAcceptedByUser(_ context.Context, uid string) ([]models.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Relationship
	for _, rel := range f.rels {
		if rel.Status == models.RelationshipAccepted && rel.Involves(uid) {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (f *fakeRelationshipRepo) ListPendingFor(_ context.Context, uid string) ([]models.Relationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Relationship
	for _, rel := range f.rels {
		if rel.Status == models.RelationshipPending && rel.Involves(uid) && rel.Requester != uid {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (f *fakeRelationshipRepo) DeleteAllForUser(_ context.Context, uid string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, rel := range f.rels {
		if rel.Involves(uid) {
			delete(f.rels, id)
			n++
		}
	}
	return n, nil
}

type fakeContentRepo struct {
	mu        sync.Mutex
	items     map[string]models.ContentItem
	deleteErr error
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{items: make(map[string]models.ContentItem)}
}

func (f *fakeContentRepo) Insert(_ context.Context, item *models.ContentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = *item
	return nil
}

func (f *fakeContentRepo) InsertMany(_ context.Context, items []models.ContentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range items {
		f.items[items[i].ID] = items[i]
	}
	return nil
}

func (f *fakeContentRepo) GetByID(_ context.Context, id string) (*models.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, apperror.NotFound("content item", id)
	}
	return &item, nil
}

func (f *fakeContentRepo) ListInbox(_ context.Context, recipient, kind string, now time.Time) ([]models.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ContentItem
	for _, item := range f.items {
		if item.Recipient != recipient || item.Consumed || !item.ExpiresAt.After(now) {
			continue
		}
		if kind != "" && item.Kind != kind {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeContentRepo) MarkConsumed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return apperror.NotFound("content item", id)
	}
	item.Consumed = true
	f.items[id] = item
	return nil
}

func (f *fakeContentRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.items, id)
	return nil
}

func (f *fakeContentRepo) CountByMediaRef(_ context.Context, mediaRef string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, item := range f.items {
		if item.MediaRef == mediaRef {
			n++
		}
	}
	return n, nil
}

func (f *fakeContentRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]models.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ContentItem
	for _, item := range f.items {
		if !item.ExpiresAt.After(now) {
			out = append(out, item)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeContentRepo) DeleteAllForUser(_ context.Context, uid string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, item := range f.items {
		if item.Sender == uid || item.Recipient == uid {
			delete(f.items, id)
			n++
		}
	}
	return n, nil
}

type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[string]models.Group
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[string]models.Group)}
}

func copyGroup(g models.Group) models.Group {
	g.Members = append([]string(nil), g.Members...)
	return g
}

func (f *fakeGroupRepo) Create(_ context.Context, group *models.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[group.ID] = copyGroup(*group)
	return nil
}

func (f *fakeGroupRepo) GetByID(_ context.Context, id string) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[id]
	if !ok {
		return nil, apperror.NotFound("group", id)
	}
	out := copyGroup(group)
	return &out, nil
}

func (f *fakeGroupRepo) AddMember(_ context.Context, groupID, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[groupID]
	if !ok {
		return apperror.NotFound("group", groupID)
	}
	if !group.HasMember(uid) {
		group.Members = append(append([]string(nil), group.Members...), uid)
		f.groups[groupID] = group
	}
	return nil
}

func (f *fakeGroupRepo) RemoveMember(_ context.Context, groupID, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	group, ok := f.groups[groupID]
	if !ok {
		return apperror.NotFound("group", groupID)
	}
	members := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		if m != uid {
			members = append(members, m)
		}
	}
	if len(members) == 0 {
		delete(f.groups, groupID)
		return nil
	}
	group.Members = members
	f.groups[groupID] = group
	return nil
}

func (f *fakeGroupRepo) ListForUser(_ context.Context, uid string) ([]models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Group
	for _, group := range f.groups {
		if group.HasMember(uid) {
			out = append(out, copyGroup(group))
		}
	}
	return out, nil
}

func (f *fakeGroupRepo) RemoveUserFromAll(_ context.Context, uid string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, group := range f.groups {
		if !group.HasMember(uid) {
			continue
		}
		members := make([]string, 0, len(group.Members))
		for _, m := range group.Members {
			if m != uid {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			delete(f.groups, id)
		} else {
			group.Members = members
			f.groups[id] = group
		}
		n++
	}
	return n, nil
}

func (f *fakeGroupRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.groups, id)
	return nil
}

type fakeCleanupJobRepo struct {
	mu   sync.Mutex
	jobs map[string]models.CleanupJob
}

func newFakeCleanupJobRepo() *fakeCleanupJobRepo {
	return &fakeCleanupJobRepo{jobs: make(map[string]models.CleanupJob)}
}

func copyJob(j models.CleanupJob) models.CleanupJob {
	steps := make(map[string]models.StepResult, len(j.Steps))
	for name, res := range j.Steps {
		steps[name] = res
	}
	j.Steps = steps
	return j
}

func (f *fakeCleanupJobRepo) Insert(_ context.Context, job *models.CleanupJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	f.jobs[job.ID] = copyJob(*job)
	return nil
}

func (f *fakeCleanupJobRepo) Update(_ context.Context, job *models.CleanupJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[job.ID]; !ok {
		return apperror.NotFound("cleanup job", job.ID)
	}
	job.UpdatedAt = time.Now().UTC()
	f.jobs[job.ID] = copyJob(*job)
	return nil
}

func (f *fakeCleanupJobRepo) GetByID(_ context.Context, id string) (*models.CleanupJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, apperror.NotFound("cleanup job", id)
	}
	out := copyJob(job)
	return &out, nil
}

func (f *fakeCleanupJobRepo) FindOpenForSubject(_ context.Context, scope, subject string) (*models.CleanupJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *models.CleanupJob
	for _, job := range f.jobs {
		if job.Scope != scope || job.Subject != subject || job.State == models.CleanupDone {
			continue
		}
		if found == nil || job.CreatedAt.After(found.CreatedAt) {
			out := copyJob(job)
			found = &out
		}
	}
	if found == nil {
		return nil, apperror.NotFound("cleanup job", subject)
	}
	return found, nil
}

func (f *fakeCleanupJobRepo) ListByState(_ context.Context, state string, limit int) ([]models.CleanupJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CleanupJob
	for _, job := range f.jobs {
		if state != "" && job.State != state {
			continue
		}
		out = append(out, copyJob(job))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeMediaRepo struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	seq       int
	deleteErr error
	purgeErr  error
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{blobs: make(map[string][]byte)}
}

// put seeds a blob directly, bypassing Upload's path generation.
func (f *fakeMediaRepo) put(ref string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[ref] = []byte("blob")
}

func (f *fakeMediaRepo) refs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.blobs))
	for ref := range f.blobs {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

func (f *fakeMediaRepo) Upload(_ context.Context, ownerID, category, _ string, src io.Reader) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ref := fmt.Sprintf("%s/%s/%d", category, ownerID, f.seq)
	f.blobs[ref] = data
	return ref, nil
}

func (f *fakeMediaRepo) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.blobs, ref)
	return nil
}

func (f *fakeMediaRepo) Exists(_ context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[ref]
	return ok, nil
}

func (f *fakeMediaRepo) DeletePrefix(_ context.Context, prefix string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := 0
	for ref := range f.blobs {
		if strings.HasPrefix(ref, prefix) {
			delete(f.blobs, ref)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeMediaRepo) PurgeOwner(_ context.Context, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return f.purgeErr
	}
	for _, category := range models.MediaCategories() {
		prefix := category + "/" + ownerID + "/"
		for ref := range f.blobs {
			if strings.HasPrefix(ref, prefix) {
				delete(f.blobs, ref)
			}
		}
	}
	return nil
}

type fakeAuthAdmin struct {
	mu      sync.Mutex
	deleted map[string]bool
	err     error
}

func newFakeAuthAdmin() *fakeAuthAdmin {
	return &fakeAuthAdmin{deleted: make(map[string]bool)}
}

func (f *fakeAuthAdmin) DeleteAuthUser(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted[uid] = true
	return nil
}

type recordedPush struct {
	token string
	title string
	body  string
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []recordedPush
	err    error
}

func (f *fakePusher) Push(_ context.Context, token, title, body string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, recordedPush{token: token, title: title, body: body})
	return nil
}

func (f *fakePusher) sent() []recordedPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedPush(nil), f.pushes...)
}

// testEnv wires every service against the fakes so tests exercise the real
// policy code end to end.
type testEnv struct {
	users         *fakeUserRepo
	relationships *fakeRelationshipRepo
	content       *fakeContentRepo
	groups        *fakeGroupRepo
	jobs          *fakeCleanupJobRepo
	media         *fakeMediaRepo
	auth          *fakeAuthAdmin
	bus           *events.Bus

	relationshipService *RelationshipService
	groupService        *GroupService
	mediaService        *MediaService
	cleanupService      *CleanupService
	contentService      *ContentService
}

func newTestEnv(ttl time.Duration) *testEnv {
	env := &testEnv{
		users:         newFakeUserRepo(),
		relationships: newFakeRelationshipRepo(),
		content:       newFakeContentRepo(),
		groups:        newFakeGroupRepo(),
		jobs:          newFakeCleanupJobRepo(),
		media:         newFakeMediaRepo(),
		auth:          newFakeAuthAdmin(),
		bus:           events.NewBus(),
	}
	env.relationshipService = NewRelationshipService(env.relationships, env.users, env.bus)
	env.groupService = NewGroupService(env.groups, env.users)
	env.mediaService = NewMediaService(env.media)
	env.cleanupService = NewCleanupService(env.jobs, env.users, env.relationships, env.content, env.groups, env.media, env.auth)
	env.contentService = NewContentService(env.content, env.groups, env.relationshipService, env.mediaService, env.cleanupService, env.bus, ttl)
	return env
}

func (e *testEnv) seedUser(t *testing.T, uid, username string) {
	t.Helper()
	now := time.Now().UTC()
	err := e.users.CreateUserWithUsername(context.Background(), &models.User{
		UID:         uid,
		Username:    username,
		DisplayName: username,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
}

func (e *testEnv) befriend(t *testing.T, a, b string) {
	t.Helper()
	rel := models.NewRelationship(a, b)
	rel.Status = models.RelationshipAccepted
	rel.AcceptedAt = time.Now().UTC()
	require.NoError(t, e.relationships.Create(context.Background(), rel))
}

// seedBlob places a blob at category/owner/name and returns its reference.
func (e *testEnv) seedBlob(category, owner, name string) string {
	ref := category + "/" + owner + "/" + name
	e.media.put(ref)
	return ref
}
