package service

import (
	"context"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
)

// RegistrationDetails is the signed-in user's stored registration with their team
type RegistrationDetails struct {
	Member    *domain.Member   `json:"member"`
	Team      *domain.Team     `json:"team,omitempty"`
	Teammates []*domain.Member `json:"teammates"`
}

// TeamService handles business logic for teams
type TeamService struct {
	teamRepo     repository.TeamRepository
	memberRepo   repository.MemberRepository
	retrier      *Retrier
	teamCapacity int
}

// NewTeamService creates a new TeamService
func NewTeamService(teamRepo repository.TeamRepository, memberRepo repository.MemberRepository, retrier *Retrier, teamCapacity int) *TeamService {
	return &TeamService{
		teamRepo:     teamRepo,
		memberRepo:   memberRepo,
		retrier:      retrier,
		teamCapacity: teamCapacity,
	}
}

// ListTeams returns teams ordered by name with their active member count and free slots
func (s *TeamService) ListTeams(ctx context.Context) ([]*domain.TeamSummary, error) {
	var teams []*domain.TeamSummary
	err := s.retrier.Read(ctx, "list teams", func() error {
		var listErr error
		teams, listErr = s.teamRepo.ListSummaries(ctx, s.teamCapacity)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []*domain.TeamSummary{}
	}
	return teams, nil
}

// GetTeam retrieves a team with all members
func (s *TeamService) GetTeam(ctx context.Context, teamID int64) (*domain.TeamWithMembers, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []*domain.Member{}
	}

	return &domain.TeamWithMembers{Team: *team, Members: members}, nil
}

// Details returns the stored registration of the given user. Teammates are
// ordered by role descending and exclude the user.
func (s *TeamService) Details(ctx context.Context, email string) (*RegistrationDetails, error) {
	var member *domain.Member
	err := s.retrier.Read(ctx, "get member", func() error {
		var getErr error
		member, getErr = s.memberRepo.GetByEmail(ctx, email)
		return getErr
	})
	if err != nil {
		return nil, err
	}

	details := &RegistrationDetails{Member: member, Teammates: []*domain.Member{}}
	if member.TeamID == nil {
		return details, nil
	}

	team, err := s.GetTeam(ctx, *member.TeamID)
	if err != nil {
		if isNotFound(err) {
			return details, nil
		}
		return nil, err
	}

	details.Team = &team.Team
	for _, m := range team.Members {
		if m.ID != member.ID {
			details.Teammates = append(details.Teammates, m)
		}
	}
	return details, nil
}
