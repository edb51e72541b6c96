package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equilibra/internal/model"
)

type stubProjects struct {
	project *model.Project
}

func (s *stubProjects) FindByRepoURL(_ context.Context, _ string) (*model.Project, error) {
	return s.project, nil
}

type stubTasks struct {
	byBranch map[string]*model.Task
	moves    map[int64]int64
}

func (s *stubTasks) FindByBranch(_ context.Context, _ int64, branch string) (*model.Task, error) {
	return s.byBranch[branch], nil
}

func (s *stubTasks) MoveToBucket(_ context.Context, taskID, bucketID int64) error {
	if s.moves == nil {
		s.moves = map[int64]int64{}
	}
	s.moves[taskID] = bucketID
	return nil
}

type stubBuckets struct {
	byState map[string]*model.Bucket
}

func (s *stubBuckets) FindByState(_ context.Context, _ int64, state string) (*model.Bucket, error) {
	return s.byState[state], nil
}

type stubActivities struct {
	records []model.Activity
}

func (s *stubActivities) Create(_ context.Context, activity *model.Activity) error {
	s.records = append(s.records, *activity)
	return nil
}

type stubEvaluator struct {
	evaluated []int
}

func (s *stubEvaluator) Evaluate(_ context.Context, _ string, prNumber int, _ int64) {
	s.evaluated = append(s.evaluated, prNumber)
}

type stubSyncer struct {
	synced []string
}

func (s *stubSyncer) SyncFromRepository(_ context.Context, repoFullName, _ string, _ int64) error {
	s.synced = append(s.synced, repoFullName)
	return nil
}

type stubScorer struct {
	completed []int64
	reviewed  []string
}

func (s *stubScorer) ApplyCompletionScore(_ context.Context, taskID int64, _ string) error {
	s.completed = append(s.completed, taskID)
	return nil
}

func (s *stubScorer) ApplyReviewScore(_ context.Context, taskID int64, reviewerLogin, _, _ string) error {
	s.reviewed = append(s.reviewed, fmt.Sprintf("%d:%s", taskID, reviewerLogin))
	return nil
}

type dispatcherFixture struct {
	dispatcher *Dispatcher
	tasks      *stubTasks
	activities *stubActivities
	evaluator  *stubEvaluator
	syncer     *stubSyncer
	scorer     *stubScorer
}

func newDispatcherFixture() *dispatcherFixture {
	leadID := int64(500)
	task := &model.Task{
		ID:             10,
		ProjectID:      1,
		BucketID:       20,
		Title:          "Implement search",
		Type:           model.TaskTypeCode,
		Weight:         3,
		BranchName:     "feature/EQ-10-implement-search",
		LeadAssigneeID: &leadID,
	}

	f := &dispatcherFixture{
		tasks:      &stubTasks{byBranch: map[string]*model.Task{task.BranchName: task}},
		activities: &stubActivities{},
		evaluator:  &stubEvaluator{},
		syncer:     &stubSyncer{},
		scorer:     &stubScorer{},
	}
	f.dispatcher = NewDispatcher(
		&stubProjects{project: &model.Project{ID: 1}},
		f.tasks,
		&stubBuckets{byState: map[string]*model.Bucket{
			model.BucketStateOngoing:  {ID: 20, ProjectID: 1, State: model.BucketStateOngoing},
			model.BucketStateOnReview: {ID: 21, ProjectID: 1, State: model.BucketStateOnReview},
		}},
		f.activities,
		f.evaluator,
		f.syncer,
		f.scorer,
	)
	// Run detached work inline so assertions see its effects.
	f.dispatcher.detach = func(fn func(ctx context.Context)) { fn(context.Background()) }
	return f
}

func prPayload(action string, merged bool) []byte {
	return []byte(fmt.Sprintf(`{
		"action": %q,
		"pull_request": {
			"number": 5,
			"merged": %t,
			"head": {"ref": "feature/EQ-10-implement-search"},
			"user": {"login": "alice"}
		},
		"repository": {"full_name": "acme/app", "html_url": "https://github.com/acme/app"},
		"installation": {"id": 99}
	}`, action, merged))
}

func reviewPayload(action, state, reviewer string) []byte {
	return []byte(fmt.Sprintf(`{
		"action": %q,
		"review": {"state": %q, "user": {"login": %q}},
		"pull_request": {
			"number": 5,
			"head": {"ref": "feature/EQ-10-implement-search"},
			"user": {"login": "alice"}
		},
		"repository": {"full_name": "acme/app", "html_url": "https://github.com/acme/app"},
		"installation": {"id": 99}
	}`, action, state, reviewer))
}

func TestDispatcher_PullRequestOpened(t *testing.T) {
	f := newDispatcherFixture()

	ack, err := f.dispatcher.Dispatch("pull_request", "d-1", prPayload("opened", false))
	require.NoError(t, err)

	assert.True(t, ack.Handled)
	assert.Equal(t, "queued", ack.Status)
	assert.Equal(t, []int{5}, f.evaluator.evaluated)
	assert.Equal(t, []string{"acme/app"}, f.syncer.synced)
	assert.Equal(t, int64(21), f.tasks.moves[10], "task should land in the review bucket")
	require.Len(t, f.activities.records, 1)
	assert.Equal(t, "opened", f.activities.records[0].Action)
}

func TestDispatcher_PullRequestSynchronize(t *testing.T) {
	f := newDispatcherFixture()

	ack, err := f.dispatcher.Dispatch("pull_request", "d-2", prPayload("synchronize", false))
	require.NoError(t, err)

	assert.True(t, ack.Handled)
	assert.Equal(t, []int{5}, f.evaluator.evaluated)
	assert.Equal(t, []string{"acme/app"}, f.syncer.synced)
	assert.Empty(t, f.tasks.moves, "synchronize must not move the task")
}

func TestDispatcher_PullRequestMerged(t *testing.T) {
	f := newDispatcherFixture()

	ack, err := f.dispatcher.Dispatch("pull_request", "d-3", prPayload("closed", true))
	require.NoError(t, err)

	assert.True(t, ack.Handled)
	assert.Equal(t, []int64{10}, f.scorer.completed)
	assert.Equal(t, []string{"acme/app"}, f.syncer.synced)
	assert.Empty(t, f.evaluator.evaluated, "merged PRs are not re-evaluated")
	require.Len(t, f.activities.records, 1)
	assert.Equal(t, "merged", f.activities.records[0].Action)
}

func TestDispatcher_PullRequestClosedUnmerged(t *testing.T) {
	f := newDispatcherFixture()

	_, err := f.dispatcher.Dispatch("pull_request", "d-4", prPayload("closed", false))
	require.NoError(t, err)

	assert.Empty(t, f.scorer.completed)
	assert.Equal(t, int64(20), f.tasks.moves[10], "task should return to the in-progress bucket")
}

func TestDispatcher_ReviewApproved(t *testing.T) {
	f := newDispatcherFixture()

	ack, err := f.dispatcher.Dispatch("pull_request_review", "d-5", reviewPayload("submitted", "approved", "bob"))
	require.NoError(t, err)

	assert.True(t, ack.Handled)
	assert.Equal(t, []string{"10:bob"}, f.scorer.reviewed)
	assert.Empty(t, f.tasks.moves)
}

func TestDispatcher_ReviewChangesRequested(t *testing.T) {
	f := newDispatcherFixture()

	_, err := f.dispatcher.Dispatch("pull_request_review", "d-6", reviewPayload("submitted", "changes_requested", "bob"))
	require.NoError(t, err)

	assert.Empty(t, f.scorer.reviewed)
	assert.Equal(t, int64(20), f.tasks.moves[10])
	require.Len(t, f.activities.records, 1)
	assert.Equal(t, "changes_requested", f.activities.records[0].Action)
}

func TestDispatcher_ReviewDismissedIgnored(t *testing.T) {
	f := newDispatcherFixture()

	ack, err := f.dispatcher.Dispatch("pull_request_review", "d-7", reviewPayload("dismissed", "approved", "bob"))
	require.NoError(t, err)

	assert.Equal(t, "ignored_action", ack.Status)
	assert.Empty(t, f.scorer.reviewed)
}

func TestDispatcher_UnknownEvent(t *testing.T) {
	f := newDispatcherFixture()

	ack, err := f.dispatcher.Dispatch("issues", "d-8", []byte(`{}`))
	require.NoError(t, err)

	assert.False(t, ack.Handled)
	assert.Equal(t, "ignored_event", ack.Status)
}

func TestDispatcher_MalformedPayload(t *testing.T) {
	f := newDispatcherFixture()

	_, err := f.dispatcher.Dispatch("pull_request", "d-9", []byte(`{"action":"opened"}`))
	assert.Error(t, err)
}

func TestDispatcher_UnknownBranchIsNoop(t *testing.T) {
	f := newDispatcherFixture()
	f.tasks.byBranch = map[string]*model.Task{}

	ack, err := f.dispatcher.Dispatch("pull_request", "d-10", prPayload("closed", true))
	require.NoError(t, err)

	assert.True(t, ack.Handled)
	assert.Empty(t, f.scorer.completed)
	assert.Empty(t, f.activities.records)
}
