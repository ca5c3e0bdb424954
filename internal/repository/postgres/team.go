package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/aidar/challenge-portal/internal/domain"
)

// TeamRepository реализует repository.TeamRepository для PostgreSQL
type TeamRepository struct {
	db DB
}

// NewTeamRepository создает новый экземпляр TeamRepository
func NewTeamRepository(db DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create создает новую команду
func (r *TeamRepository) Create(ctx context.Context, teamName string, route domain.Route) (*domain.Team, error) {
	query := `
		INSERT INTO teams (team_name, route)
		VALUES ($1, $2)
		RETURNING id, team_name, route, created_at
	`

	team, err := scanTeam(r.db.QueryRow(ctx, query, teamName, string(route)))
	if err != nil {
		// Уникальный индекс по lower(team_name)
		if isPgError(err, codeUniqueViolation) {
			return nil, domain.ErrTeamExists
		}
		return nil, err
	}

	return team, nil
}

// GetByID получает команду по ID
func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	query := `SELECT id, team_name, route, created_at FROM teams WHERE id = $1`

	team, err := scanTeam(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, err
	}

	return team, nil
}

// GetByName получает команду по имени без учета регистра
func (r *TeamRepository) GetByName(ctx context.Context, teamName string) (*domain.Team, error) {
	query := `SELECT id, team_name, route, created_at FROM teams WHERE lower(team_name) = lower($1)`

	team, err := scanTeam(r.db.QueryRow(ctx, query, teamName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, err
	}

	return team, nil
}

// Exists проверяет существование команды
func (r *TeamRepository) Exists(ctx context.Context, teamName string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM teams WHERE lower(team_name) = lower($1))`

	var exists bool
	err := r.db.QueryRow(ctx, query, teamName).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return exists, nil
}

// List возвращает все команды по имени
func (r *TeamRepository) List(ctx context.Context) ([]*domain.Team, error) {
	query := `SELECT id, team_name, route, created_at FROM teams ORDER BY team_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*domain.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return teams, nil
}

// ListSummaries возвращает команды с числом активных участников
func (r *TeamRepository) ListSummaries(ctx context.Context, capacity int) ([]*domain.TeamSummary, error) {
	query := `
		SELECT t.id, t.team_name, t.route, t.created_at,
		       COUNT(m.id) FILTER (WHERE m.on_waiting_list = false) AS active_members
		FROM teams t
		LEFT JOIN members m ON m.team_id = t.id
		GROUP BY t.id
		ORDER BY t.team_name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]*domain.TeamSummary, 0)
	for rows.Next() {
		var (
			s     domain.TeamSummary
			route string
		)
		if err := rows.Scan(&s.ID, &s.TeamName, &route, &s.CreatedAt, &s.ActiveMembers); err != nil {
			return nil, err
		}
		s.Route = domain.Route(route)
		s.RemainingSlots = max(0, capacity-s.ActiveMembers)
		s.Full = s.RemainingSlots == 0
		summaries = append(summaries, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// Delete удаляет команду. Участники снимаются с команды в той же транзакции.
func (r *TeamRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore error as it will fail if transaction was committed
	}()

	if _, err := tx.Exec(ctx,
		`UPDATE members SET team_id = NULL, version = version + 1, updated_at = NOW() WHERE team_id = $1`,
		id,
	); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}

	return tx.Commit(ctx)
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var (
		team  domain.Team
		route string
	)
	if err := row.Scan(&team.ID, &team.TeamName, &route, &team.CreatedAt); err != nil {
		return nil, err
	}
	team.Route = domain.Route(route)
	return &team, nil
}
