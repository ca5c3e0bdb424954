package service

import (
	"context"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
)

// TeamStats represents occupancy of one team
type TeamStats struct {
	TeamID        int64        `json:"team_id"`
	TeamName      string       `json:"team_name"`
	Route         domain.Route `json:"route"`
	ActiveMembers int          `json:"active_members"`
	Capacity      int          `json:"capacity"`
}

// Stats represents registration statistics
type Stats struct {
	Active    int            `json:"active"`
	Waiting   int            `json:"waiting"`
	Capacity  int            `json:"capacity"`
	Remaining int            `json:"remaining"`
	PerRoute  map[string]int `json:"per_route"`
	PerTeam   []TeamStats    `json:"per_team"`
}

// StatsService handles statistics queries
type StatsService struct {
	memberRepo   repository.MemberRepository
	teamRepo     repository.TeamRepository
	capacity     int
	teamCapacity int
}

// NewStatsService creates a new StatsService
func NewStatsService(memberRepo repository.MemberRepository, teamRepo repository.TeamRepository, capacity, teamCapacity int) *StatsService {
	return &StatsService{
		memberRepo:   memberRepo,
		teamRepo:     teamRepo,
		capacity:     capacity,
		teamCapacity: teamCapacity,
	}
}

// GetStats returns overall statistics
func (s *StatsService) GetStats(ctx context.Context) (*Stats, error) {
	active, err := s.memberRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	waiting, err := s.memberRepo.CountWaiting(ctx)
	if err != nil {
		return nil, err
	}

	perRoute, err := s.memberRepo.CountByRoute(ctx)
	if err != nil {
		return nil, err
	}

	teams, err := s.teamRepo.ListSummaries(ctx, s.teamCapacity)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Active:    active,
		Waiting:   waiting,
		Capacity:  s.capacity,
		Remaining: max(0, s.capacity-active),
		PerRoute:  perRoute,
		PerTeam:   make([]TeamStats, 0, len(teams)),
	}
	for _, t := range teams {
		stats.PerTeam = append(stats.PerTeam, TeamStats{
			TeamID:        t.ID,
			TeamName:      t.TeamName,
			Route:         t.Route,
			ActiveMembers: t.ActiveMembers,
			Capacity:      s.teamCapacity,
		})
	}

	return stats, nil
}
