package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidar/challenge-portal/internal/domain"
)

var teamColumnNames = []string{"id", "team_name", "route", "created_at"}

func TestTeamRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewTeamRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO teams \(team_name, route\)`).
		WithArgs("Trail Blazers", "Tough").
		WillReturnRows(pgxmock.NewRows(teamColumnNames).AddRow(int64(1), "Trail Blazers", "Tough", now))

	team, err := repo.Create(context.Background(), "Trail Blazers", domain.RouteTough)
	require.NoError(t, err)
	assert.Equal(t, int64(1), team.ID)
	assert.Equal(t, domain.RouteTough, team.Route)

	mock.ExpectQuery(`INSERT INTO teams`).
		WithArgs("trail blazers", "Peak").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err = repo.Create(context.Background(), "trail blazers", domain.RoutePeak)
	assert.ErrorIs(t, err, domain.ErrTeamExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_GetByName_CaseInsensitive(t *testing.T) {
	mock := newMock(t)
	repo := NewTeamRepository(mock)

	mock.ExpectQuery(`WHERE lower\(team_name\) = lower\(\$1\)`).
		WithArgs("TRAIL BLAZERS").
		WillReturnRows(pgxmock.NewRows(teamColumnNames).AddRow(int64(1), "Trail Blazers", "Tough", time.Now()))
	mock.ExpectQuery(`WHERE lower\(team_name\) = lower\(\$1\)`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(teamColumnNames))

	team, err := repo.GetByName(context.Background(), "TRAIL BLAZERS")
	require.NoError(t, err)
	assert.Equal(t, "Trail Blazers", team.TeamName)

	_, err = repo.GetByName(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_Exists(t *testing.T) {
	mock := newMock(t)
	repo := NewTeamRepository(mock)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("Trail Blazers").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "Trail Blazers")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_ListSummaries(t *testing.T) {
	mock := newMock(t)
	repo := NewTeamRepository(mock)
	now := time.Now()

	mock.ExpectQuery(`COUNT\(m.id\) FILTER \(WHERE m.on_waiting_list = false\)`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "team_name", "route", "created_at", "active_members"}).
			AddRow(int64(1), "Alpha", "Peak", now, 5).
			AddRow(int64(2), "Bravo", "Tougher", now, 2))

	summaries, err := repo.ListSummaries(context.Background(), domain.TeamCapacity)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.True(t, summaries[0].Full)
	assert.Equal(t, 0, summaries[0].RemainingSlots)
	assert.False(t, summaries[1].Full)
	assert.Equal(t, 3, summaries[1].RemainingSlots)
	assert.Equal(t, domain.RouteTougher, summaries[1].Route)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_Delete_UnassignsMembers(t *testing.T) {
	mock := newMock(t)
	repo := NewTeamRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE members SET team_id = NULL`).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec(`DELETE FROM teams WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 4))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewTeamRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE members SET team_id = NULL`).
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`DELETE FROM teams WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), 42), domain.ErrTeamNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
