package application

import (
	"context"
	"sync"

	"github.com/ericfisherdev/mrreminder/internal/domain/model"
)

// mockGitLabClient implements driven.GitLabClient with configurable funcs.
// Unset funcs return empty results.
type mockGitLabClient struct {
	fetchGroupProjectsFn     func(ctx context.Context) ([]model.Project, error)
	fetchOpenMergeRequestsFn func(ctx context.Context, projectID int64) ([]model.MergeRequest, error)
	fetchMergeRequestFn      func(ctx context.Context, projectID int64, iid int) (*model.MergeRequest, error)
	fetchDiscussionsFn       func(ctx context.Context, projectID int64, iid int) ([]model.Discussion, error)
	fetchApprovalsFn         func(ctx context.Context, projectID int64, iid int) (model.ApprovalState, error)
	currentUserFn            func(ctx context.Context) (string, error)
}

func (m *mockGitLabClient) FetchGroupProjects(ctx context.Context) ([]model.Project, error) {
	if m.fetchGroupProjectsFn != nil {
		return m.fetchGroupProjectsFn(ctx)
	}
	return nil, nil
}

func (m *mockGitLabClient) FetchOpenMergeRequests(ctx context.Context, projectID int64) ([]model.MergeRequest, error) {
	if m.fetchOpenMergeRequestsFn != nil {
		return m.fetchOpenMergeRequestsFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockGitLabClient) FetchMergeRequest(ctx context.Context, projectID int64, iid int) (*model.MergeRequest, error) {
	if m.fetchMergeRequestFn != nil {
		return m.fetchMergeRequestFn(ctx, projectID, iid)
	}
	return nil, nil
}

func (m *mockGitLabClient) FetchDiscussions(ctx context.Context, projectID int64, iid int) ([]model.Discussion, error) {
	if m.fetchDiscussionsFn != nil {
		return m.fetchDiscussionsFn(ctx, projectID, iid)
	}
	return nil, nil
}

func (m *mockGitLabClient) FetchApprovals(ctx context.Context, projectID int64, iid int) (model.ApprovalState, error) {
	if m.fetchApprovalsFn != nil {
		return m.fetchApprovalsFn(ctx, projectID, iid)
	}
	return model.ApprovalState{}, nil
}

func (m *mockGitLabClient) CurrentUser(ctx context.Context) (string, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx)
	}
	return "", nil
}

// recordingTracer captures decisions per merge request reference.
type recordingTracer struct {
	mu        sync.Mutex
	decisions map[string][]model.Decision
}

func newRecordingTracer() *recordingTracer {
	return &recordingTracer{decisions: make(map[string][]model.Decision)}
}

func (r *recordingTracer) RecordDecisions(_ context.Context, mr model.MergeRequest, decisions []model.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[mr.Ref()] = decisions
}

func (r *recordingTracer) get(ref string) []model.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decisions[ref]
}

// mockNotifier implements driven.Notifier.
type mockNotifier struct {
	mu     sync.Mutex
	sent   []model.Message
	sendFn func(ctx context.Context, msg model.Message) error
}

func (m *mockNotifier) Send(ctx context.Context, msg model.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, msg)
	}
	return nil
}

// stubSource implements MergeRequestSource.
type stubSource struct {
	mrs []model.MergeRequest
	err error
}

func (s stubSource) FilteredMergeRequests(context.Context) ([]model.MergeRequest, error) {
	return s.mrs, s.err
}
