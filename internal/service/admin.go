package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
)

// AdminMember is a registration row of the admin member table
type AdminMember struct {
	*domain.Member
	TeamName string `json:"team_name"`
}

// AdminTeam is a team with its members and occupancy label such as "3/5"
type AdminTeam struct {
	domain.TeamWithMembers
	ActiveMembers int    `json:"active_members"`
	Occupancy     string `json:"occupancy"`
}

// AdminMemberUpdate is a partial member edit. TeamName moves the member to the
// named team, "Unassigned" clears the team.
type AdminMemberUpdate struct {
	domain.MemberPatch
	TeamName *string `json:"team_name,omitempty"`
}

// AdminService implements the administration surface
type AdminService struct {
	memberRepo   repository.MemberRepository
	teamRepo     repository.TeamRepository
	validator    *Validator
	logger       *slog.Logger
	teamCapacity int
}

// NewAdminService creates a new AdminService
func NewAdminService(
	memberRepo repository.MemberRepository,
	teamRepo repository.TeamRepository,
	validator *Validator,
	logger *slog.Logger,
	teamCapacity int,
) *AdminService {
	return &AdminService{
		memberRepo:   memberRepo,
		teamRepo:     teamRepo,
		validator:    validator,
		logger:       logger,
		teamCapacity: teamCapacity,
	}
}

// ListMembers returns registrations matching the filter with their team names
func (s *AdminService) ListMembers(ctx context.Context, filter repository.MemberFilter) ([]AdminMember, error) {
	switch filter {
	case "":
		filter = repository.MemberFilterAll
	case repository.MemberFilterAll, repository.MemberFilterWaitlist, repository.MemberFilterUnassigned:
	default:
		return nil, domain.NewValidationError("filter", "filter must be one of all, waiting_list, unassigned")
	}

	members, err := s.memberRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	names, err := s.teamNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]AdminMember, 0, len(members))
	for _, m := range members {
		out = append(out, AdminMember{Member: m, TeamName: teamName(m, names)})
	}
	return out, nil
}

// ListTeams returns every team with its members
func (s *AdminService) ListTeams(ctx context.Context) ([]AdminTeam, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]AdminTeam, 0, len(teams))
	for _, t := range teams {
		members, err := s.memberRepo.ListByTeam(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if members == nil {
			members = []*domain.Member{}
		}

		active := 0
		for _, m := range members {
			if !m.OnWaitingList {
				active++
			}
		}

		out = append(out, AdminTeam{
			TeamWithMembers: domain.TeamWithMembers{Team: *t, Members: members},
			ActiveMembers:   active,
			Occupancy:       fmt.Sprintf("%d/%d", active, s.teamCapacity),
		})
	}
	return out, nil
}

// UpdateMember applies a partial edit to a registration
func (s *AdminService) UpdateMember(ctx context.Context, id int64, update AdminMemberUpdate) (*domain.Member, error) {
	patch := update.MemberPatch

	if update.TeamName != nil {
		name := strings.TrimSpace(*update.TeamName)
		if name == "" || name == domain.UnassignedTeamName {
			patch.ClearTeam = true
		} else {
			team, err := s.teamRepo.GetByName(ctx, name)
			if err != nil {
				return nil, err
			}
			patch.TeamID = &team.ID
		}
	}

	if err := s.sanitizePatch(&patch); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.memberRepo.GetByID(ctx, id)
	}

	member, err := s.memberRepo.Update(ctx, id, &patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Member updated by admin", "member_id", id, "version", member.Version)
	return member, nil
}

func (s *AdminService) sanitizePatch(p *domain.MemberPatch) error {
	if p.FullName != nil {
		name := SanitizeName(*p.FullName)
		if name == "" {
			return domain.NewValidationError("full_name", "full name cannot be empty")
		}
		p.FullName = &name
	}
	if p.EmployeeEmail != nil {
		email := strings.ToLower(SanitizeText(*p.EmployeeEmail))
		if !s.validator.emailPattern.MatchString(email) {
			return domain.NewValidationError("employee_email", "please enter a valid email ending with @"+s.validator.emailDomain)
		}
		p.EmployeeEmail = &email
	}
	if p.EmployeeID != nil {
		id := SanitizeText(*p.EmployeeID)
		if !employeeIDPattern.MatchString(id) {
			return domain.NewValidationError("employee_id", "employee ID must be 3-20 alphanumeric characters")
		}
		p.EmployeeID = &id
	}
	if p.MobileNumber != nil {
		mobile := SanitizeText(*p.MobileNumber)
		if !validMobile(mobile) {
			return domain.NewValidationError("mobile_number", "mobile number contains invalid characters or wrong length")
		}
		p.MobileNumber = &mobile
	}
	if p.Organisation != nil && !contains(Organisations, *p.Organisation) {
		return domain.NewValidationError("organisation", "organisation must be one of "+strings.Join(Organisations, ", "))
	}
	if p.PreferredRoute != nil && !domain.Route(*p.PreferredRoute).Valid() {
		return domain.NewValidationError("preferred_route", "route must be one of Peak, Tough, Tougher")
	}
	if p.Role != nil && *p.Role != string(domain.RoleLeader) && *p.Role != string(domain.RoleMember) {
		return domain.NewValidationError("role", "role must be Leader or Member")
	}
	if p.ShirtSize != nil {
		size := strings.ToUpper(SanitizeText(*p.ShirtSize))
		if !contains(ShirtSizes, size) {
			return domain.NewValidationError("shirt_size", "shirt size must be one of "+strings.Join(ShirtSizes, ", "))
		}
		p.ShirtSize = &size
	}
	if p.TravellingFrom != nil {
		v := SanitizeFreeText(*p.TravellingFrom, maxTravellingFromLen)
		p.TravellingFrom = &v
	}
	if p.Notes != nil {
		v := SanitizeFreeText(*p.Notes, maxFreeTextLen)
		p.Notes = &v
	}
	if p.HikingExperience != nil {
		v := SanitizeFreeText(*p.HikingExperience, maxFreeTextLen)
		p.HikingExperience = &v
	}
	return nil
}

// DeleteMember removes a registration
func (s *AdminService) DeleteMember(ctx context.Context, id int64) error {
	if err := s.memberRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Member deleted by admin", "member_id", id)
	return nil
}

// DeleteTeam removes a team, its members become unassigned
func (s *AdminService) DeleteTeam(ctx context.Context, id int64) error {
	if err := s.teamRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Team deleted by admin", "team_id", id)
	return nil
}

// Export writes every registration as an .xlsx workbook
func (s *AdminService) Export(ctx context.Context, w io.Writer) error {
	members, err := s.memberRepo.List(ctx, repository.MemberFilterAll)
	if err != nil {
		return err
	}

	names, err := s.teamNames(ctx)
	if err != nil {
		return err
	}

	return WriteMembersWorkbook(w, members, names)
}

func (s *AdminService) teamNames(ctx context.Context) (map[int64]string, error) {
	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.TeamName
	}
	return names, nil
}
