package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
	redisstore "github.com/aidar/challenge-portal/internal/repository/redis"
)

// memoryStore is an in-memory members and teams store with the same
// commit semantics as the PostgreSQL repositories
type memoryStore struct {
	mu      sync.Mutex
	members map[int64]*domain.Member
	teams   map[int64]*domain.Team
	nextID  int64
	failErr error

	// beforeAdmit runs inside CommitRegistration with the store locked
	beforeAdmit func(*memoryStore)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{members: map[int64]*domain.Member{}, teams: map[int64]*domain.Team{}}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func cloneMember(m *domain.Member) *domain.Member {
	c := *m
	return &c
}

func (s *memoryStore) seedMember(m *domain.Member) *domain.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneMember(m)
	c.ID = s.id()
	if c.Version == 0 {
		c.Version = 1
	}
	s.members[c.ID] = c
	return cloneMember(c)
}

func (s *memoryStore) seedTeam(name string, route domain.Route) *domain.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &domain.Team{ID: s.id(), TeamName: name, Route: route}
	s.teams[t.ID] = t
	c := *t
	return &c
}

func (s *memoryStore) byEmail(email string) *domain.Member {
	for _, m := range s.members {
		if m.EmployeeEmail == email {
			return m
		}
	}
	return nil
}

func (s *memoryStore) activeCount() int {
	n := 0
	for _, m := range s.members {
		if !m.OnWaitingList {
			n++
		}
	}
	return n
}

// MemberRepository

type memberRepo struct{ *memoryStore }

func (r memberRepo) GetByEmail(_ context.Context, email string) (*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	m := r.byEmail(email)
	if m == nil {
		return nil, domain.ErrMemberNotFound
	}
	return cloneMember(m), nil
}

func (r memberRepo) GetRecordByEmail(ctx context.Context, email string) (domain.Record, error) {
	m, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	d := domain.FromMember(m)
	return d.Record(), nil
}

func (r memberRepo) GetByID(_ context.Context, id int64) (*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return cloneMember(m), nil
}

func (r memberRepo) CountActive(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return 0, r.failErr
	}
	return r.activeCount(), nil
}

func (r memberRepo) CountWaiting(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) - r.activeCount(), nil
}

func (r memberRepo) CountActiveInTeam(_ context.Context, teamID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.members {
		if m.TeamID != nil && *m.TeamID == teamID && !m.OnWaitingList {
			n++
		}
	}
	return n, nil
}

func (r memberRepo) CommitRegistration(_ context.Context, c repository.RegistrationCommit) (*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}

	if r.beforeAdmit != nil {
		r.beforeAdmit(r.memoryStore)
	}

	existing := r.byEmail(c.Member.EmployeeEmail)
	if existing != nil && c.ExpectedVersion > 0 && existing.Version != c.ExpectedVersion {
		return nil, domain.ErrStaleRegistration
	}

	var prior *domain.Member
	if existing != nil {
		prior = cloneMember(existing)
	}
	onWaitingList, err := c.Admit(r.activeCount(), prior)
	if err != nil {
		return nil, err
	}

	if c.Member.TeamID != nil && !onWaitingList {
		if _, ok := r.teams[*c.Member.TeamID]; !ok {
			return nil, domain.ErrTeamNotFound
		}
		n := 0
		for _, m := range r.members {
			if m.TeamID != nil && *m.TeamID == *c.Member.TeamID && !m.OnWaitingList && m.EmployeeEmail != c.Member.EmployeeEmail {
				n++
			}
		}
		if n >= c.TeamCapacity {
			return nil, domain.ErrTeamFull
		}
	}

	m := cloneMember(c.Member)
	m.OnWaitingList = onWaitingList
	if existing == nil {
		m.ID = r.id()
		m.Version = 1
	} else {
		m.ID = existing.ID
		m.Version = existing.Version + 1
		m.CreatedAt = existing.CreatedAt
	}
	r.members[m.ID] = m
	return cloneMember(m), nil
}

func (r memberRepo) List(_ context.Context, filter repository.MemberFilter) ([]*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Member
	for _, m := range r.sorted() {
		switch filter {
		case repository.MemberFilterWaitlist:
			if !m.OnWaitingList {
				continue
			}
		case repository.MemberFilterUnassigned:
			if m.TeamID != nil {
				if _, ok := r.teams[*m.TeamID]; ok {
					continue
				}
			}
		}
		out = append(out, cloneMember(m))
	}
	return out, nil
}

func (r memberRepo) sorted() []*domain.Member {
	out := make([]*domain.Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memberRepo) ListByTeam(_ context.Context, teamID int64) ([]*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Member
	for _, m := range r.sorted() {
		if m.TeamID != nil && *m.TeamID == teamID {
			out = append(out, cloneMember(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return deref(out[i].Role) > deref(out[j].Role) })
	return out, nil
}

func (r memberRepo) Update(_ context.Context, id int64, p *domain.MemberPatch) (*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	if p.FullName != nil {
		m.FullName = *p.FullName
	}
	if p.EmployeeEmail != nil {
		m.EmployeeEmail = *p.EmployeeEmail
	}
	if p.OnWaitingList != nil {
		m.OnWaitingList = *p.OnWaitingList
	}
	if p.PreferredRoute != nil {
		m.PreferredRoute = p.PreferredRoute
	}
	if p.ShirtSize != nil {
		m.ShirtSize = p.ShirtSize
	}
	if p.Notes != nil {
		m.Notes = p.Notes
	}
	if p.TeamID != nil {
		m.TeamID = p.TeamID
	}
	if p.ClearTeam {
		m.TeamID = nil
	}
	m.Version++
	return cloneMember(m), nil
}

func (r memberRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return domain.ErrMemberNotFound
	}
	delete(r.members, id)
	return nil
}

func (r memberRepo) CountByRoute(context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, m := range r.members {
		if !m.OnWaitingList {
			out[deref(m.PreferredRoute)]++
		}
	}
	return out, nil
}

// TeamRepository

type teamRepo struct{ *memoryStore }

func (r teamRepo) Create(_ context.Context, name string, route domain.Route) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if strings.EqualFold(t.TeamName, name) {
			return nil, domain.ErrTeamExists
		}
	}
	t := &domain.Team{ID: r.id(), TeamName: name, Route: route, CreatedAt: time.Now()}
	r.teams[t.ID] = t
	c := *t
	return &c, nil
}

func (r teamRepo) GetByID(_ context.Context, id int64) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	c := *t
	return &c, nil
}

func (r teamRepo) GetByName(_ context.Context, name string) (*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if strings.EqualFold(t.TeamName, name) {
			c := *t
			return &c, nil
		}
	}
	return nil, domain.ErrTeamNotFound
}

func (r teamRepo) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.GetByName(ctx, name)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r teamRepo) List(context.Context) ([]*domain.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Team, 0, len(r.teams))
	for _, t := range r.teams {
		c := *t
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamName < out[j].TeamName })
	return out, nil
}

func (r teamRepo) ListSummaries(ctx context.Context, capacity int) ([]*domain.TeamSummary, error) {
	teams, _ := r.List(ctx)
	members := memberRepo(r)
	out := make([]*domain.TeamSummary, 0, len(teams))
	for _, t := range teams {
		n, _ := members.CountActiveInTeam(ctx, t.ID)
		out = append(out, &domain.TeamSummary{
			Team:           *t,
			ActiveMembers:  n,
			RemainingSlots: TeamRemainingSlots(n, capacity),
			Full:           n >= capacity,
		})
	}
	return out, nil
}

func (r teamRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return domain.ErrTeamNotFound
	}
	for _, m := range r.members {
		if m.TeamID != nil && *m.TeamID == id {
			m.TeamID = nil
			m.Version++
		}
	}
	delete(r.teams, id)
	return nil
}

// helpers

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSessionStore(t *testing.T) *redisstore.SessionStore {
	t.Helper()
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewSessionStore(client, time.Hour)
}

type fixture struct {
	store    *memoryStore
	sessions *redisstore.SessionStore
	svc      *RegistrationService
	clock    time.Time
}

func newFixture(t *testing.T, settings RegistrationSettings) *fixture {
	t.Helper()
	if settings.Capacity == 0 {
		settings.Capacity = 200
	}
	if settings.TeamCapacity == 0 {
		settings.TeamCapacity = domain.TeamCapacity
	}
	if settings.SubmitCooldown == 0 {
		settings.SubmitCooldown = 30 * time.Second
	}

	store := newMemoryStore()
	sessions := newSessionStore(t)
	logger := discardLogger()

	f := &fixture{
		store:    store,
		sessions: sessions,
		clock:    time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewRegistrationService(
		memberRepo{store},
		teamRepo{store},
		sessions,
		NewValidator("dxc.com"),
		NewRetrier(NoRetry, logger),
		settings,
		logger,
	)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) session(t *testing.T, email string) *domain.Session {
	t.Helper()
	s := &domain.Session{ID: "session-" + email, Email: email, Name: "Test User"}
	if err := f.sessions.Save(context.Background(), s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return s
}

func personalFor(email string) PersonalInput {
	return PersonalInput{
		FullName:      "Jane Doe",
		EmployeeEmail: email,
		EmployeeID:    "AB1234",
		Organisation:  "L-ES",
		Agreed:        true,
	}
}

func activeMember(email string) *domain.Member {
	return &domain.Member{EmployeeEmail: email, FullName: "Seed", EmployeeID: "SEED01", Organisation: "L-ES"}
}
