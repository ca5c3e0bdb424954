package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
)

// registrationLockKey ключ advisory lock, сериализующий запись регистраций
const registrationLockKey int64 = 7_200_501

const memberColumns = `
	m.id, m.employee_email, m.full_name, m.employee_id, m.organisation, m.mobile_number,
	m.forces_vet, m.team_id, m.team_choice, m.role, m.team_registered_at, m.preferred_route,
	m.individual_override, m.shirt_size, m.camping_fri, m.camping_sat, m.taking_car,
	m.travelling_from, m.notes, m.hiking_experience, m.on_waiting_list, m.version,
	m.created_at, m.updated_at`

// MemberRepository реализует repository.MemberRepository для PostgreSQL
type MemberRepository struct {
	db DB
}

// NewMemberRepository создает новый экземпляр MemberRepository
func NewMemberRepository(db DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// GetByEmail получает участника по email
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members m WHERE m.employee_email = $1`

	member, err := scanMember(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	return member, nil
}

// GetRecordByEmail получает строку участника со всеми колонками схемы
func (r *MemberRepository) GetRecordByEmail(ctx context.Context, email string) (domain.Record, error) {
	query := `SELECT * FROM members WHERE employee_email = $1`

	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}

	record, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	return domain.Record(record), nil
}

// GetByID получает участника по ID
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members m WHERE m.id = $1`

	member, err := scanMember(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}

	return member, nil
}

// CountActive возвращает число участников не в листе ожидания
func (r *MemberRepository) CountActive(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM members WHERE on_waiting_list = false`)
}

// CountWaiting возвращает число участников в листе ожидания
func (r *MemberRepository) CountWaiting(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM members WHERE on_waiting_list = true`)
}

// CountActiveInTeam возвращает число активных участников команды
func (r *MemberRepository) CountActiveInTeam(ctx context.Context, teamID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM members WHERE team_id = $1 AND on_waiting_list = false`, teamID)
}

func (r *MemberRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CommitRegistration записывает регистрацию в одной транзакции:
// advisory lock -> текущая запись -> счетчик активных -> решение о допуске ->
// блокировка строки команды и пересчет ее участников -> insert или update с проверкой версии
func (r *MemberRepository) CommitRegistration(ctx context.Context, c repository.RegistrationCommit) (*domain.Member, error) {
	m := c.Member

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx) // Ignore error as it will fail if transaction was committed
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, registrationLockKey); err != nil {
		return nil, fmt.Errorf("failed to acquire registration lock: %w", err)
	}

	existing, err := scanMember(tx.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members m WHERE m.employee_email = $1 FOR UPDATE`,
		m.EmployeeEmail,
	))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		existing = nil
	}

	if existing != nil && c.ExpectedVersion > 0 && existing.Version != c.ExpectedVersion {
		return nil, domain.ErrStaleRegistration
	}

	var active int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM members WHERE on_waiting_list = false`).Scan(&active); err != nil {
		return nil, err
	}

	onWaitingList, err := c.Admit(active, existing)
	if err != nil {
		return nil, err
	}

	if m.TeamID != nil && !onWaitingList {
		if err := checkTeamCapacity(ctx, tx, *m.TeamID, m.EmployeeEmail, c.TeamCapacity); err != nil {
			return nil, err
		}
	}

	args := memberArgs(m, onWaitingList)
	var stored *domain.Member
	if existing == nil {
		stored, err = scanMember(tx.QueryRow(ctx, insertMemberSQL, args...))
	} else {
		args = append(args, existing.ID, existing.Version)
		stored, err = scanMember(tx.QueryRow(ctx, updateMemberSQL, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStaleRegistration
		}
	}
	if err != nil {
		return nil, translateMemberError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return stored, nil
}

func checkTeamCapacity(ctx context.Context, tx pgx.Tx, teamID int64, email string, capacity int) error {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM teams WHERE id = $1 FOR UPDATE`, teamID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTeamNotFound
		}
		return err
	}

	var others int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM members WHERE team_id = $1 AND on_waiting_list = false AND employee_email <> $2`,
		teamID, email,
	).Scan(&others)
	if err != nil {
		return err
	}

	if others >= capacity {
		return domain.ErrTeamFull
	}
	return nil
}

const insertMemberSQL = `
	INSERT INTO members AS m (
		employee_email, full_name, employee_id, organisation, mobile_number, forces_vet,
		team_id, team_choice, role, team_registered_at, preferred_route, individual_override,
		shirt_size, camping_fri, camping_sat, taking_car, travelling_from, notes,
		hiking_experience, on_waiting_list
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	RETURNING` + memberColumns

// team_id записывается всегда: NULL снимает прежнюю команду
const updateMemberSQL = `
	UPDATE members AS m
	SET employee_email = $1, full_name = $2, employee_id = $3, organisation = $4,
	    mobile_number = $5, forces_vet = $6, team_id = $7, team_choice = $8, role = $9,
	    team_registered_at = $10, preferred_route = $11, individual_override = $12,
	    shirt_size = $13, camping_fri = $14, camping_sat = $15, taking_car = $16,
	    travelling_from = $17, notes = $18, hiking_experience = $19, on_waiting_list = $20,
	    version = m.version + 1, updated_at = NOW()
	WHERE m.id = $21 AND m.version = $22
	RETURNING` + memberColumns

func memberArgs(m *domain.Member, onWaitingList bool) []any {
	return []any{
		m.EmployeeEmail, m.FullName, m.EmployeeID, m.Organisation, m.MobileNumber, m.ForcesVet,
		m.TeamID, m.TeamChoice, m.Role, m.TeamRegisteredAt, m.PreferredRoute, m.IndividualOverride,
		m.ShirtSize, m.CampingFri, m.CampingSat, m.TakingCar, m.TravellingFrom, m.Notes,
		m.HikingExperience, onWaitingList,
	}
}

// List возвращает участников по фильтру
func (r *MemberRepository) List(ctx context.Context, filter repository.MemberFilter) ([]*domain.Member, error) {
	var query string
	switch filter {
	case repository.MemberFilterWaitlist:
		query = `SELECT ` + memberColumns + ` FROM members m WHERE m.on_waiting_list = true ORDER BY m.created_at, m.id`
	case repository.MemberFilterUnassigned:
		// Без команды или со ссылкой на удаленную команду
		query = `SELECT ` + memberColumns + ` FROM members m
			LEFT JOIN teams t ON t.id = m.team_id
			WHERE t.id IS NULL
			ORDER BY m.created_at, m.id`
	default:
		query = `SELECT ` + memberColumns + ` FROM members m ORDER BY m.created_at, m.id`
	}

	return r.queryMembers(ctx, query)
}

// ListByTeam возвращает участников команды
func (r *MemberRepository) ListByTeam(ctx context.Context, teamID int64) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members m
		WHERE m.team_id = $1
		ORDER BY m.role DESC NULLS LAST, m.full_name`

	return r.queryMembers(ctx, query, teamID)
}

func (r *MemberRepository) queryMembers(ctx context.Context, query string, args ...any) ([]*domain.Member, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*domain.Member, 0)
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

// Update применяет частичное изменение из админ-панели
func (r *MemberRepository) Update(ctx context.Context, id int64, patch *domain.MemberPatch) (*domain.Member, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.FullName != nil {
		set("full_name", *patch.FullName)
	}
	if patch.EmployeeID != nil {
		set("employee_id", *patch.EmployeeID)
	}
	if patch.EmployeeEmail != nil {
		set("employee_email", *patch.EmployeeEmail)
	}
	if patch.MobileNumber != nil {
		set("mobile_number", *patch.MobileNumber)
	}
	if patch.Organisation != nil {
		set("organisation", *patch.Organisation)
	}
	if patch.PreferredRoute != nil {
		set("preferred_route", *patch.PreferredRoute)
	}
	if patch.OnWaitingList != nil {
		set("on_waiting_list", *patch.OnWaitingList)
	}
	if patch.Role != nil {
		set("role", *patch.Role)
	}
	if patch.ShirtSize != nil {
		set("shirt_size", *patch.ShirtSize)
	}
	if patch.ForcesVet != nil {
		set("forces_vet", *patch.ForcesVet)
	}
	if patch.CampingFri != nil {
		set("camping_fri", *patch.CampingFri)
	}
	if patch.CampingSat != nil {
		set("camping_sat", *patch.CampingSat)
	}
	if patch.TakingCar != nil {
		set("taking_car", *patch.TakingCar)
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.HikingExperience != nil {
		set("hiking_experience", *patch.HikingExperience)
	}
	if patch.TravellingFrom != nil {
		set("travelling_from", *patch.TravellingFrom)
	}
	switch {
	case patch.ClearTeam:
		set("team_id", nil)
	case patch.TeamID != nil:
		set("team_id", *patch.TeamID)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE members AS m SET %s, version = m.version + 1, updated_at = NOW()
		WHERE m.id = $%d
		RETURNING`+memberColumns, strings.Join(sets, ", "), len(args))

	member, err := scanMember(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, translateMemberError(err)
	}

	return member, nil
}

// Delete удаляет участника
func (r *MemberRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

// CountByRoute возвращает число активных участников по маршрутам
func (r *MemberRepository) CountByRoute(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT COALESCE(preferred_route, ''), COUNT(*)
		FROM members
		WHERE on_waiting_list = false
		GROUP BY 1
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			route string
			n     int
		)
		if err := rows.Scan(&route, &n); err != nil {
			return nil, err
		}
		counts[route] = n
	}

	return counts, rows.Err()
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.ID, &m.EmployeeEmail, &m.FullName, &m.EmployeeID, &m.Organisation, &m.MobileNumber,
		&m.ForcesVet, &m.TeamID, &m.TeamChoice, &m.Role, &m.TeamRegisteredAt, &m.PreferredRoute,
		&m.IndividualOverride, &m.ShirtSize, &m.CampingFri, &m.CampingSat, &m.TakingCar,
		&m.TravellingFrom, &m.Notes, &m.HikingExperience, &m.OnWaitingList, &m.Version,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func translateMemberError(err error) error {
	switch {
	case isPgError(err, codeForeignKeyViolation):
		return domain.ErrTeamNotFound
	case isPgError(err, codeUniqueViolation):
		return domain.NewValidationError("employee_email", "a registration with this email already exists")
	default:
		return err
	}
}
