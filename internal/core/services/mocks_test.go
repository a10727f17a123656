package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/flowsync/internal/core/domain"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
)

// --- Mock implementations for service testing ---

// mockCredentialsStore implements driven.CredentialsStore.
type mockCredentialsStore struct {
	mu      sync.Mutex
	creds   map[string]domain.Credential
	getErr  error
	listErr error
}

func newMockCredentialsStore(creds ...domain.Credential) *mockCredentialsStore {
	s := &mockCredentialsStore{creds: make(map[string]domain.Credential)}
	for _, c := range creds {
		s.creds[credKey(c.UserID, c.Provider)] = c
	}
	return s
}

func credKey(userID string, provider domain.Provider) string {
	return userID + "/" + provider.String()
}

func (s *mockCredentialsStore) Save(_ context.Context, cred domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[credKey(cred.UserID, cred.Provider)] = cred
	return nil
}

func (s *mockCredentialsStore) Get(_ context.Context, userID string, provider domain.Provider) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	c, ok := s.creds[credKey(userID, provider)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *mockCredentialsStore) ListByUser(_ context.Context, userID string) ([]domain.Credential, error) {
	all, err := s.List(context.Background())
	if err != nil {
		return nil, err
	}
	var out []domain.Credential
	for _, c := range all {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *mockCredentialsStore) List(_ context.Context) ([]domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Credential, 0, len(s.creds))
	for _, c := range s.creds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return credKey(out[i].UserID, out[i].Provider) < credKey(out[j].UserID, out[j].Provider)
	})
	return out, nil
}

func (s *mockCredentialsStore) UpdateToken(
	_ context.Context, userID string, provider domain.Provider, accessToken, refreshToken, expiresAt string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := credKey(userID, provider)
	c, ok := s.creds[key]
	if !ok {
		return domain.ErrNotFound
	}
	c.AccessToken = accessToken
	if refreshToken != "" {
		c.RefreshToken = refreshToken
	}
	c.ExpiresAt = expiresAt
	s.creds[key] = c
	return nil
}

func (s *mockCredentialsStore) Delete(_ context.Context, userID string, provider domain.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, credKey(userID, provider))
	return nil
}

// mockTokenProvider implements driven.TokenProvider.
type mockTokenProvider struct {
	mu         sync.Mutex
	tokens     map[domain.Provider]string
	getErr     map[domain.Provider]error
	refreshed  map[domain.Provider]string
	refreshErr error
	gets       int
	refreshes  []domain.Provider
}

func newMockTokenProvider() *mockTokenProvider {
	return &mockTokenProvider{
		tokens: map[domain.Provider]string{
			domain.ProviderNotion: "notion-token",
			domain.ProviderGoogle: "google-token",
		},
		getErr: map[domain.Provider]error{},
		refreshed: map[domain.Provider]string{
			domain.ProviderNotion: "notion-token-2",
			domain.ProviderGoogle: "google-token-2",
		},
	}
}

func (m *mockTokenProvider) GetValidToken(_ context.Context, _ string, provider domain.Provider) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if err := m.getErr[provider]; err != nil {
		return "", err
	}
	return m.tokens[provider], nil
}

func (m *mockTokenProvider) ForceRefresh(_ context.Context, _ string, provider domain.Provider) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes = append(m.refreshes, provider)
	if m.refreshErr != nil {
		return "", m.refreshErr
	}
	m.tokens[provider] = m.refreshed[provider]
	return m.refreshed[provider], nil
}

// mockSource implements driven.SourceAdapter. Marked records are no longer
// returned, like a real database filtered on the processed marker.
type mockSource struct {
	mu        sync.Mutex
	records   []domain.SourceRecord
	marked    map[string]string
	fetchErr  error
	markErr   map[string]error
	fetches   int
	tokens    []string
	authUntil string
}

func newMockSource(records ...domain.SourceRecord) *mockSource {
	return &mockSource{records: records, marked: map[string]string{}, markErr: map[string]error{}}
}

// builder returns a SourceAdapterBuilder recording the token it was built with.
func (s *mockSource) builder() driven.SourceAdapterBuilder {
	return func(token string, _ *domain.Credential) driven.SourceAdapter {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tokens = append(s.tokens, token)
		return &boundSource{src: s, token: token}
	}
}

type boundSource struct {
	src   *mockSource
	token string
}

func (b *boundSource) FetchPending(_ context.Context, _ string) ([]domain.SourceRecord, error) {
	s := b.src
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.authUntil != "" && b.token != s.authUntil {
		return nil, domain.ErrAuth
	}
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []domain.SourceRecord
	for _, r := range s.records {
		if _, done := s.marked[r.ID]; !done {
			out = append(out, r)
		}
	}
	return out, nil
}

func (b *boundSource) MarkProcessed(_ context.Context, recordID, eventID string) error {
	s := b.src
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.markErr[recordID]; err != nil {
		return err
	}
	s.marked[recordID] = eventID
	return nil
}

// mockCalendar implements driven.CalendarAdapter.
type mockCalendar struct {
	mu        sync.Mutex
	created   []domain.EventRequest
	failFor   map[string]error
	tokens    []string
	authUntil string
	calls     int
}

func newMockCalendar() *mockCalendar {
	return &mockCalendar{failFor: map[string]error{}}
}

func (c *mockCalendar) builder() driven.CalendarAdapterBuilder {
	return func(token string, _ *domain.Credential) driven.CalendarAdapter {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.tokens = append(c.tokens, token)
		return &boundCalendar{cal: c, token: token}
	}
}

type boundCalendar struct {
	cal   *mockCalendar
	token string
}

func (b *boundCalendar) CreateEvent(_ context.Context, req domain.EventRequest) (string, error) {
	c := b.cal
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.authUntil != "" && b.token != c.authUntil {
		return "", domain.ErrAuth
	}
	if err := c.failFor[req.Summary]; err != nil {
		return "", err
	}
	c.created = append(c.created, req)
	return "evt-" + req.Summary, nil
}

// mockExecLogStore implements driven.ExecutionLogStore.
type mockExecLogStore struct {
	mu        sync.Mutex
	rows      []domain.ExecutionLog
	insertErr error
}

func (s *mockExecLogStore) Insert(_ context.Context, entry domain.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.rows = append(s.rows, entry)
	return nil
}

func (s *mockExecLogStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.ExecutionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ExecutionLog
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].UserID == userID {
			out = append(out, s.rows[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *mockExecLogStore) byStep(step domain.StepType) []domain.ExecutionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ExecutionLog
	for _, r := range s.rows {
		if r.StepType == step {
			out = append(out, r)
		}
	}
	return out
}

func (s *mockExecLogStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// mockWorkflowStore implements driven.WorkflowStore.
type mockWorkflowStore struct {
	mu        sync.Mutex
	workflows []domain.Workflow
	active    map[string]map[int64]bool
	listErr   error
}

func newMockWorkflowStore(workflows ...domain.Workflow) *mockWorkflowStore {
	return &mockWorkflowStore{workflows: workflows, active: map[string]map[int64]bool{}}
}

func (s *mockWorkflowStore) Save(_ context.Context, w domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.workflows {
		if s.workflows[i].ID == w.ID {
			s.workflows[i] = w
			return nil
		}
	}
	s.workflows = append(s.workflows, w)
	return nil
}

func (s *mockWorkflowStore) Get(_ context.Context, id int64) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.workflows {
		if w.ID == id {
			return &w, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *mockWorkflowStore) GetByName(_ context.Context, name string) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.workflows {
		if w.Name == name {
			return &w, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *mockWorkflowStore) List(_ context.Context) ([]domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Workflow(nil), s.workflows...), nil
}

func (s *mockWorkflowStore) SetActive(_ context.Context, userID string, workflowID int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[userID] == nil {
		s.active[userID] = map[int64]bool{}
	}
	s.active[userID][workflowID] = active
	return nil
}

func (s *mockWorkflowStore) ListActive(_ context.Context, userID string) ([]domain.UserWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.UserWorkflow
	for id, on := range s.active[userID] {
		if on {
			out = append(out, domain.UserWorkflow{UserID: userID, WorkflowID: id, Active: true})
		}
	}
	return out, nil
}

// mockMetrics implements driven.Metrics.
type mockMetrics struct {
	mu    sync.Mutex
	runs  []bool
	items map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{items: map[string]int{}}
}

func (m *mockMetrics) RecordRun(_ string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, success)
}

func (m *mockMetrics) RecordItem(_ string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[outcome]++
}

func (m *mockMetrics) RecordRefresh(string, bool)   {}
func (m *mockMetrics) RecordAttempt(string, string) {}

var errBoom = errors.New("boom")

// --- Fixtures ---

func notionCred(userID string) domain.Credential {
	return domain.Credential{
		UserID:      userID,
		Provider:    domain.ProviderNotion,
		AccessToken: "notion-token",
		Metadata:    map[string]string{domain.MetadataDatabaseID: "db-1"},
	}
}

func googleCred(userID string) domain.Credential {
	return domain.Credential{
		UserID:       userID,
		Provider:     domain.ProviderGoogle,
		AccessToken:  "google-token",
		RefreshToken: "rt",
		ExpiresAt:    "2099-01-01T00:00:00Z",
	}
}

func record(id, title, start, end, attendees string) domain.SourceRecord {
	return domain.SourceRecord{ID: id, Title: title, Start: start, End: end, AttendeesText: attendees}
}

var defaultDescriptor = domain.TaskDescriptor{
	WorkflowID:   domain.DefaultWorkflowID,
	WorkflowName: domain.DefaultWorkflowName,
}

// syncFixture wires a SyncTask over mocks.
type syncFixture struct {
	creds    *mockCredentialsStore
	tokens   *mockTokenProvider
	source   *mockSource
	calendar *mockCalendar
	logs     *mockExecLogStore
	metrics  *mockMetrics
}

func newSyncFixture(records ...domain.SourceRecord) *syncFixture {
	return &syncFixture{
		creds:    newMockCredentialsStore(notionCred("u1"), googleCred("u1")),
		tokens:   newMockTokenProvider(),
		source:   newMockSource(records...),
		calendar: newMockCalendar(),
		logs:     &mockExecLogStore{},
		metrics:  newMockMetrics(),
	}
}

func (f *syncFixture) deps() SyncTaskDeps {
	return SyncTaskDeps{
		Credentials: f.creds,
		Tokens:      f.tokens,
		Sources:     f.source.builder(),
		Calendars:   f.calendar.builder(),
		Log:         NewRunLogger(f.logs),
		Metrics:     f.metrics,
	}
}

func (f *syncFixture) task() *SyncTask {
	return NewSyncTask(defaultDescriptor, domain.ProviderNotion, domain.ProviderGoogle, f.deps())
}
