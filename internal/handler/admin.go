package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aidar/challenge-portal/internal/domain"
	"github.com/aidar/challenge-portal/internal/repository"
	"github.com/aidar/challenge-portal/internal/service"
)

// xlsxContentType MIME тип выгрузки Excel
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminOperations операции админ-панели
type AdminOperations interface {
	ListMembers(ctx context.Context, filter repository.MemberFilter) ([]service.AdminMember, error)
	ListTeams(ctx context.Context) ([]service.AdminTeam, error)
	UpdateMember(ctx context.Context, id int64, update service.AdminMemberUpdate) (*domain.Member, error)
	DeleteMember(ctx context.Context, id int64) error
	DeleteTeam(ctx context.Context, id int64) error
	Export(ctx context.Context, w io.Writer) error
}

// AdminHandler обрабатывает эндпоинты админ-панели
type AdminHandler struct {
	adminService AdminOperations
	now          func() time.Time
}

// NewAdminHandler создает новый AdminHandler
func NewAdminHandler(adminService AdminOperations) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		now:          time.Now,
	}
}

// ListMembersResponse список участников
type ListMembersResponse struct {
	Members []service.AdminMember `json:"members"`
}

// ListAdminTeamsResponse список команд с участниками
type ListAdminTeamsResponse struct {
	Teams []service.AdminTeam `json:"teams"`
}

// ListMembers обрабатывает GET /admin/members?filter=all|waiting_list|unassigned
func (h *AdminHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	filter := repository.MemberFilter(r.URL.Query().Get("filter"))

	members, err := h.adminService.ListMembers(r.Context(), filter)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, ListMembersResponse{Members: members})
}

// UpdateMember обрабатывает PATCH /admin/members/{id}
func (h *AdminHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req service.AdminMemberUpdate
	if !decodeBody(w, r, &req) {
		return
	}

	member, err := h.adminService.UpdateMember(r.Context(), id, req)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, member)
}

// DeleteMember обрабатывает DELETE /admin/members/{id}
func (h *AdminHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.adminService.DeleteMember(r.Context(), id); err != nil {
		HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTeams обрабатывает GET /admin/teams
func (h *AdminHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.adminService.ListTeams(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, ListAdminTeamsResponse{Teams: teams})
}

// DeleteTeam обрабатывает DELETE /admin/teams/{id}
func (h *AdminHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.adminService.DeleteTeam(r.Context(), id); err != nil {
		HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export обрабатывает GET /admin/export (выгрузка .xlsx)
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	// Собираем файл целиком до отправки заголовков
	var buf bytes.Buffer
	if err := h.adminService.Export(r.Context(), &buf); err != nil {
		HandleError(w, r, err)
		return
	}

	filename := fmt.Sprintf("challenge-members-%s.xlsx", h.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// pathID читает числовой {id} из пути. При ошибке отправляет 400.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		RespondWithError(w, r, http.StatusBadRequest, "BAD_REQUEST", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
