package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
)

const tracerName = "github.com/aidar/challenge-portal/internal/service"

// RegistrationSettings holds the admission and submission rules
type RegistrationSettings struct {
	Capacity             int
	TeamCapacity         int
	SubmitCooldown       time.Duration
	ReadmitOnFinalSubmit bool
}

// TeamInput is the team step form
type TeamInput struct {
	Choice   domain.TeamChoice `json:"choice"`
	TeamID   *int64            `json:"team_id,omitempty"`
	TeamName string            `json:"team_name,omitempty"`
	Route    domain.Route      `json:"route,omitempty"`
}

// RouteInput is the route step form
type RouteInput struct {
	Route             domain.Route `json:"route"`
	ConfirmIndividual bool         `json:"confirm_individual"`
}

// StepResult is returned by every wizard step
type StepResult struct {
	NextStep      domain.Step  `json:"next_step"`
	Draft         domain.Draft `json:"draft"`
	OnWaitingList bool         `json:"on_waiting_list"`
	Message       string       `json:"message,omitempty"`
}

// Review is the summary shown before the final submission
type Review struct {
	Draft             domain.Draft `json:"draft"`
	NextStep          domain.Step  `json:"next_step"`
	Complete          bool         `json:"complete"`
	CanSubmit         bool         `json:"can_submit"`
	CooldownRemaining int          `json:"cooldown_remaining_seconds"`
}

// RegistrationService drives the registration wizard and reconciles the
// draft with stored registrations
type RegistrationService struct {
	memberRepo repository.MemberRepository
	teamRepo   repository.TeamRepository
	sessions   repository.SessionStore
	validator  *Validator
	resolver   *StepResolver
	retrier    *Retrier
	settings   RegistrationSettings
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	memberRepo repository.MemberRepository,
	teamRepo repository.TeamRepository,
	sessions repository.SessionStore,
	validator *Validator,
	retrier *Retrier,
	settings RegistrationSettings,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		memberRepo: memberRepo,
		teamRepo:   teamRepo,
		sessions:   sessions,
		validator:  validator,
		resolver:   NewStepResolver(memberRepo, logger),
		retrier:    retrier,
		settings:   settings,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
}

// NextStep returns the step the user should continue at
func (s *RegistrationService) NextStep(ctx context.Context, session *domain.Session) domain.Step {
	return s.resolver.Resume(ctx, session)
}

// Draft returns the session draft. An empty draft is restored from the stored
// registration so that editing can continue on another device.
func (s *RegistrationService) Draft(ctx context.Context, session *domain.Session) (domain.Draft, error) {
	if !session.Draft.IsEmpty() {
		return session.Draft, nil
	}

	existing, err := s.findMember(ctx, session.Email)
	if err != nil {
		return domain.Draft{}, err
	}
	if existing == nil {
		return session.Draft, nil
	}

	session.Draft = s.hydrate(ctx, existing)
	session.MemberID = &existing.ID
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Draft{}, err
	}
	return session.Draft, nil
}

// ResetDraft discards the session draft
func (s *RegistrationService) ResetDraft(ctx context.Context, session *domain.Session) error {
	session.Draft.Reset()
	return s.sessions.Save(ctx, session)
}

// SubmitPersonal validates the personal step and runs admission. A new
// registrant arriving at a full event is stored on the waiting list right away.
// The registration is always keyed by the signed-in identity.
func (s *RegistrationService) SubmitPersonal(ctx context.Context, session *domain.Session, in PersonalInput) (*StepResult, error) {
	if in.EmployeeEmail == "" {
		in.EmployeeEmail = session.Email
	}

	details, err := s.validator.ValidatePersonal(in)
	if err != nil {
		return nil, err
	}
	if !ownsEmail(session, details.EmployeeEmail) {
		s.logger.Warn("Personal step email does not match session identity", "session_email", session.Email)
		return nil, errEmailMismatch
	}

	var active int
	err = s.retrier.Read(ctx, "count active members", func() error {
		var countErr error
		active, countErr = s.memberRepo.CountActive(ctx)
		return countErr
	})
	if err != nil {
		return nil, err
	}

	existing, err := s.findMember(ctx, details.EmployeeEmail)
	if err != nil {
		return nil, err
	}

	decision := EvaluateAdmission(active, s.settings.Capacity, existing == nil, existing != nil && existing.OnWaitingList)
	if decision == domain.RejectEdit {
		s.logger.Info("Waiting list registration edit rejected", "member_id", existing.ID)
		return nil, domain.ErrWaitlistFrozen
	}

	draft := session.Draft
	if draft.IsEmpty() && existing != nil {
		draft = s.hydrate(ctx, existing)
	}
	draft.ApplyPersonal(details)

	if decision == domain.Waitlist {
		// Re-evaluated under the registration lock
		member, err := s.commit(ctx, draft, admissionFunc(s.settings.Capacity))
		if err != nil {
			return nil, err
		}

		draft.MemberVersion = member.Version
		session.Draft = draft
		session.MemberID = &member.ID
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, err
		}

		if !member.OnWaitingList {
			s.logger.Info("Registrant admitted after capacity freed", "member_id", member.ID)
			return &StepResult{NextStep: domain.StepTeam, Draft: draft}, nil
		}

		s.logger.Info("Registrant placed on waiting list", "member_id", member.ID, "active", active)
		return &StepResult{
			NextStep:      domain.StepThanks,
			Draft:         draft,
			OnWaitingList: true,
			Message:       "the event is full, you have been added to the waiting list",
		}, nil
	}

	session.Draft = draft
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &StepResult{NextStep: domain.StepTeam, Draft: draft}, nil
}

// SelectTeam records the team decision: independent, join an existing team or
// create a new one with the registrant as leader
func (s *RegistrationService) SelectTeam(ctx context.Context, session *domain.Session, in TeamInput) (*StepResult, error) {
	if session.Draft.EmployeeEmail == "" {
		return nil, domain.ErrIncompleteRegistration
	}

	var selection domain.TeamSelection
	switch in.Choice {
	case domain.TeamChoiceIndependent:
		selection = domain.TeamSelection{Choice: domain.TeamChoiceIndependent, Role: domain.RoleMember}

	case domain.TeamChoiceJoined:
		team, err := s.joinTeam(ctx, session.Draft, in)
		if err != nil {
			return nil, err
		}
		selection = teamSelection(domain.TeamChoiceJoined, team, domain.RoleMember)

	case domain.TeamChoiceCreated:
		team, err := s.createTeam(ctx, in.TeamName, in.Route)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Team created", "team_id", team.ID, "route", team.Route)
		selection = teamSelection(domain.TeamChoiceCreated, team, domain.RoleLeader)

	default:
		return nil, domain.NewValidationError("choice", "choice must be one of independent, joined, created")
	}

	session.Draft.ApplyTeam(selection, s.now().UTC())
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &StepResult{NextStep: domain.StepRoute, Draft: session.Draft}, nil
}

func (s *RegistrationService) joinTeam(ctx context.Context, draft domain.Draft, in TeamInput) (*domain.Team, error) {
	team, err := s.lookupTeam(ctx, in.TeamID, in.TeamName)
	if err != nil {
		return nil, err
	}

	alreadyMember := draft.TeamID != nil && *draft.TeamID == team.ID && draft.MemberVersion > 0
	if alreadyMember {
		return team, nil
	}

	var count int
	err = s.retrier.Read(ctx, "count team members", func() error {
		var countErr error
		count, countErr = s.memberRepo.CountActiveInTeam(ctx, team.ID)
		return countErr
	})
	if err != nil {
		return nil, err
	}

	if TeamRemainingSlots(count, s.settings.TeamCapacity) == 0 {
		return nil, domain.ErrTeamFull
	}
	return team, nil
}

func (s *RegistrationService) lookupTeam(ctx context.Context, id *int64, name string) (*domain.Team, error) {
	var team *domain.Team
	err := s.retrier.Read(ctx, "get team", func() error {
		var getErr error
		switch {
		case id != nil:
			team, getErr = s.teamRepo.GetByID(ctx, *id)
		case name != "":
			team, getErr = s.teamRepo.GetByName(ctx, SanitizeTeamName(name))
		default:
			getErr = domain.NewValidationError("team_id", "select a team to join")
		}
		return getErr
	})
	return team, err
}

func (s *RegistrationService) createTeam(ctx context.Context, rawName string, route domain.Route) (*domain.Team, error) {
	name, err := s.validator.ValidateTeamName(rawName)
	if err != nil {
		return nil, err
	}
	if !route.Valid() {
		return nil, domain.NewValidationError("route", "route must be one of Peak, Tough, Tougher")
	}

	var exists bool
	err = s.retrier.Read(ctx, "check team name", func() error {
		var existsErr error
		exists, existsErr = s.teamRepo.Exists(ctx, name)
		return existsErr
	})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrTeamExists
	}

	var team *domain.Team
	err = s.retrier.Write(ctx, "create team", func() error {
		var createErr error
		team, createErr = s.teamRepo.Create(ctx, name, route)
		return createErr
	})
	return team, err
}

func teamSelection(choice domain.TeamChoice, team *domain.Team, role domain.Role) domain.TeamSelection {
	id := team.ID
	name := team.TeamName
	route := team.Route
	return domain.TeamSelection{Choice: choice, TeamID: &id, TeamName: &name, TeamRoute: &route, Role: role}
}

// SelectRoute records the preferred route. Choosing a route other than the
// team's requires confirmation and marks the registrant as an individual
// while keeping the team affiliation.
func (s *RegistrationService) SelectRoute(ctx context.Context, session *domain.Session, in RouteInput) (*StepResult, error) {
	if !in.Route.Valid() {
		return nil, domain.ErrUnknownRoute
	}

	draft := session.Draft
	diverges := draft.TeamRoute != nil && *draft.TeamRoute != in.Route
	if diverges && !in.ConfirmIndividual {
		return nil, domain.ErrRouteDivergence
	}

	session.Draft.ApplyRoute(in.Route, diverges)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &StepResult{NextStep: domain.StepLogistics, Draft: session.Draft}, nil
}

// SubmitLogistics validates and stores the logistics step
func (s *RegistrationService) SubmitLogistics(ctx context.Context, session *domain.Session, in LogisticsInput) (*StepResult, error) {
	logistics, err := s.validator.ValidateLogistics(in, session.Draft.PreferredRoute)
	if err != nil {
		return nil, err
	}

	session.Draft.ApplyLogistics(logistics)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &StepResult{NextStep: domain.StepReview, Draft: session.Draft}, nil
}

// Review summarises the draft and whether it can be submitted now
func (s *RegistrationService) Review(_ context.Context, session *domain.Session) *Review {
	next := ResolveNextStep(session.Draft.Record())
	remaining := s.cooldownRemaining(session)

	return &Review{
		Draft:             session.Draft,
		NextStep:          next,
		Complete:          next == domain.StepReview,
		CanSubmit:         next == domain.StepReview && remaining == 0 && !session.SubmissionInProgress,
		CooldownRemaining: int(remaining.Round(time.Second).Seconds()),
	}
}

func (s *RegistrationService) cooldownRemaining(session *domain.Session) time.Duration {
	if session.LastSubmitAt.IsZero() {
		return 0
	}
	elapsed := s.now().Sub(session.LastSubmitAt)
	if elapsed >= s.settings.SubmitCooldown {
		return 0
	}
	return s.settings.SubmitCooldown - elapsed
}

// FinalSubmit persists the completed draft. The registration is written as
// active unless readmission on final submit is enabled.
func (s *RegistrationService) FinalSubmit(ctx context.Context, session *domain.Session) (*domain.Member, error) {
	if session.SubmissionInProgress {
		return nil, domain.ErrSubmissionInProgress
	}
	if s.cooldownRemaining(session) > 0 {
		return nil, domain.ErrSubmitCooldown
	}
	if ResolveNextStep(session.Draft.Record()) != domain.StepReview {
		return nil, domain.ErrIncompleteRegistration
	}
	if !ownsEmail(session, session.Draft.EmployeeEmail) {
		s.logger.Warn("Draft email does not match session identity", "session_email", session.Email)
		return nil, errEmailMismatch
	}

	now := s.now().UTC()
	session.LastSubmitAt = now
	session.SubmissionInProgress = true
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	defer func() {
		session.SubmissionInProgress = false
		if err := s.sessions.Save(context.WithoutCancel(ctx), session); err != nil {
			s.logger.Error("Failed to release submission flag", "error", err)
		}
	}()

	draft := session.Draft
	if draft.TeamID == nil && draft.TeamName != nil {
		team, err := s.lookupTeam(ctx, nil, *draft.TeamName)
		if err != nil {
			return nil, err
		}
		draft.TeamID = &team.ID
	}

	admit := forceActive
	if s.settings.ReadmitOnFinalSubmit {
		admit = admissionFunc(s.settings.Capacity)
	}

	member, err := s.commit(ctx, draft, admit)
	if err != nil {
		return nil, err
	}

	draft.MemberVersion = member.Version
	session.Draft = draft
	session.MemberID = &member.ID

	s.logger.Info("Registration submitted",
		"member_id", member.ID,
		"version", member.Version,
		"on_waiting_list", member.OnWaitingList,
	)
	return member, nil
}

func (s *RegistrationService) commit(ctx context.Context, draft domain.Draft, admit repository.AdmitFunc) (*domain.Member, error) {
	ctx, span := s.tracer.Start(ctx, "registration.commit", trace.WithAttributes(
		attribute.Int("registration.expected_version", draft.MemberVersion),
		attribute.Bool("registration.has_team", draft.TeamID != nil),
	))
	defer span.End()

	commit := repository.RegistrationCommit{
		Member:          memberFromDraft(draft),
		ExpectedVersion: draft.MemberVersion,
		TeamCapacity:    s.settings.TeamCapacity,
		Admit:           admit,
	}

	var member *domain.Member
	err := s.retrier.Write(ctx, "commit registration", func() error {
		var commitErr error
		member, commitErr = s.memberRepo.CommitRegistration(ctx, commit)
		return commitErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		if !isDomainError(err) {
			s.logger.Error("Failed to commit registration", "error", err)
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("registration.member_id", member.ID),
		attribute.Bool("registration.on_waiting_list", member.OnWaitingList),
	)
	return member, nil
}

func (s *RegistrationService) findMember(ctx context.Context, email string) (*domain.Member, error) {
	var member *domain.Member
	err := s.retrier.Read(ctx, "get member", func() error {
		var getErr error
		member, getErr = s.memberRepo.GetByEmail(ctx, email)
		return getErr
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}
	return member, nil
}

// hydrate builds a draft from a stored registration including the team name and route
func (s *RegistrationService) hydrate(ctx context.Context, m *domain.Member) domain.Draft {
	draft := domain.FromMember(m)
	if m.TeamID == nil {
		return draft
	}

	team, err := s.teamRepo.GetByID(ctx, *m.TeamID)
	if err != nil {
		if !errors.Is(err, domain.ErrTeamNotFound) {
			s.logger.Warn("Failed to load team for draft", "team_id", *m.TeamID, "error", err)
		}
		return draft
	}
	draft.TeamName = &team.TeamName
	draft.TeamRoute = &team.Route
	return draft
}

var errEmailMismatch = domain.NewValidationError("employee_email", "email must match the signed-in account")

func ownsEmail(session *domain.Session, email string) bool {
	return strings.EqualFold(strings.TrimSpace(email), session.Email)
}

func memberFromDraft(d domain.Draft) *domain.Member {
	m := &domain.Member{
		EmployeeEmail:      d.EmployeeEmail,
		FullName:           d.FullName,
		EmployeeID:         d.EmployeeID,
		Organisation:       d.Organisation,
		MobileNumber:       d.MobileNumber,
		ForcesVet:          d.ForcesVet,
		TeamID:             d.TeamID,
		TeamRegisteredAt:   d.TeamRegisteredAt,
		IndividualOverride: d.IndividualOverride,
		CampingFri:         d.CampingFri,
		CampingSat:         d.CampingSat,
		TakingCar:          d.TakingCar,
		TravellingFrom:     d.TravellingFrom,
		Notes:              d.Notes,
		HikingExperience:   d.HikingExperience,
	}
	if d.TeamChoice != "" {
		m.TeamChoice = optional(string(d.TeamChoice))
	}
	if d.Role != "" {
		m.Role = optional(string(d.Role))
	}
	if d.PreferredRoute != "" {
		m.PreferredRoute = optional(string(d.PreferredRoute))
	}
	if d.ShirtSize != "" {
		m.ShirtSize = optional(d.ShirtSize)
	}
	return m
}
