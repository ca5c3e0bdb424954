package integration

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepResponse struct {
	NextStep      string `json:"next_step"`
	OnWaitingList bool   `json:"on_waiting_list"`
	Draft         struct {
		TeamID *int64 `json:"team_id"`
	} `json:"draft"`
}

type memberResponse struct {
	ID             int64   `json:"id"`
	EmployeeEmail  string  `json:"employee_email"`
	TeamID         *int64  `json:"team_id"`
	Role           *string `json:"role"`
	PreferredRoute *string `json:"preferred_route"`
	OnWaitingList  bool    `json:"on_waiting_list"`
	Version        int     `json:"version"`
}

func personalBody(email, id string) string {
	return fmt.Sprintf(`{"full_name":"Test Walker","employee_email":%q,"employee_id":%q,"organisation":"L-ES","agreed":true}`, email, id)
}

func (te *TestEnvironment) step(t *testing.T, token, path, body string) stepResponse {
	t.Helper()
	resp := te.MakeRequest(t, http.MethodPost, path, body, token)
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("%s: status %d: %s", path, resp.StatusCode, payload)
	}
	var out stepResponse
	DecodeJSON(t, resp, &out)
	return out
}

// TestE2E_RegistrationWorkflow проходит мастер регистрации целиком через HTTP API
func TestE2E_RegistrationWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := SetupTestEnvironment(t)
	defer env.Cleanup(t)

	env.WaitForHealthCheck(t)

	const janeEmail = "jane.doe@dxc.com"
	const bobEmail = "bob.smith@dxc.com"

	var teamID int64
	janeToken := env.Login(t, janeEmail, "Doe, Jane")

	t.Run("New user starts at personal step", func(t *testing.T) {
		resp := env.MakeRequest(t, http.MethodGet, "/registration/next", "", janeToken)
		var out stepResponse
		DecodeJSON(t, resp, &out)
		assert.Equal(t, "personal", out.NextStep)
	})

	t.Run("Leader completes the wizard", func(t *testing.T) {
		assert.Equal(t, "team", env.step(t, janeToken, "/registration/personal", personalBody(janeEmail, "JD1001")).NextStep)

		res := env.step(t, janeToken, "/registration/team", `{"choice":"created","team_name":"Fell Runners","route":"Tough"}`)
		assert.Equal(t, "route", res.NextStep)
		require.NotNil(t, res.Draft.TeamID)
		teamID = *res.Draft.TeamID

		assert.Equal(t, "logistics", env.step(t, janeToken, "/registration/route", `{"route":"Tough"}`).NextStep)
		assert.Equal(t, "review", env.step(t, janeToken, "/registration/logistics", `{"shirt_size":"m","travelling_from":"Leeds"}`).NextStep)

		resp := env.MakeRequest(t, http.MethodGet, "/registration/review", "", janeToken)
		var review struct {
			Complete  bool `json:"complete"`
			CanSubmit bool `json:"can_submit"`
		}
		DecodeJSON(t, resp, &review)
		assert.True(t, review.Complete)
		assert.True(t, review.CanSubmit)

		resp = env.MakeRequest(t, http.MethodPost, "/registration/submit", "", janeToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var submitted struct {
			Member   memberResponse `json:"member"`
			NextStep string         `json:"next_step"`
		}
		DecodeJSON(t, resp, &submitted)
		assert.Equal(t, "thanks", submitted.NextStep)
		assert.False(t, submitted.Member.OnWaitingList)
		assert.Equal(t, 1, submitted.Member.Version)
		require.NotNil(t, submitted.Member.Role)
		assert.Equal(t, "Leader", *submitted.Member.Role)
	})

	t.Run("Resubmission is throttled", func(t *testing.T) {
		resp := env.MakeRequest(t, http.MethodPost, "/registration/submit", "", janeToken)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("Teammate joins and diverges on route", func(t *testing.T) {
		bobToken := env.Login(t, bobEmail, "Bob Smith")

		env.step(t, bobToken, "/registration/personal", personalBody(bobEmail, "BS2002"))
		env.step(t, bobToken, "/registration/team", fmt.Sprintf(`{"choice":"joined","team_id":%d}`, teamID))

		resp := env.MakeRequest(t, http.MethodPost, "/registration/route", `{"route":"Peak"}`, bobToken)
		resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		env.step(t, bobToken, "/registration/route", `{"route":"Peak","confirm_individual":true}`)
		env.step(t, bobToken, "/registration/logistics", `{"shirt_size":"L"}`)

		resp = env.MakeRequest(t, http.MethodPost, "/registration/submit", "", bobToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.MakeRequest(t, http.MethodGet, "/teams", "", bobToken)
		var teams struct {
			Teams []struct {
				TeamName       string `json:"team_name"`
				ActiveMembers  int    `json:"active_members"`
				RemainingSlots int    `json:"remaining_slots"`
			} `json:"teams"`
		}
		DecodeJSON(t, resp, &teams)
		require.Len(t, teams.Teams, 1)
		assert.Equal(t, 2, teams.Teams[0].ActiveMembers)
		assert.Equal(t, 3, teams.Teams[0].RemainingSlots)
	})

	t.Run("Details show teammates", func(t *testing.T) {
		resp := env.MakeRequest(t, http.MethodGet, "/registration/details", "", janeToken)
		var details struct {
			Member    memberResponse   `json:"member"`
			Teammates []memberResponse `json:"teammates"`
		}
		DecodeJSON(t, resp, &details)
		require.Len(t, details.Teammates, 1)
		assert.Equal(t, bobEmail, details.Teammates[0].EmployeeEmail)
	})

	t.Run("Stored rows", func(t *testing.T) {
		var active, overrides int
		err := env.DB.QueryRow(env.ctx, `SELECT
			count(*) FILTER (WHERE NOT on_waiting_list),
			count(*) FILTER (WHERE individual_override)
			FROM members`).Scan(&active, &overrides)
		require.NoError(t, err)
		assert.Equal(t, 2, active)
		assert.Equal(t, 1, overrides)
	})

	t.Run("Admin surface", func(t *testing.T) {
		resp := env.MakeRequest(t, http.MethodGet, "/admin/members", "", janeToken)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		adminToken := env.Login(t, adminEmail, "Organiser")

		resp = env.MakeRequest(t, http.MethodGet, "/admin/stats", "", adminToken)
		var stats struct {
			Active    int `json:"active"`
			Remaining int `json:"remaining"`
		}
		DecodeJSON(t, resp, &stats)
		assert.Equal(t, 2, stats.Active)
		assert.Equal(t, 198, stats.Remaining)

		resp = env.MakeRequest(t, http.MethodGet, "/admin/export", "", adminToken)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))

		resp = env.MakeRequest(t, http.MethodDelete, fmt.Sprintf("/admin/teams/%d", teamID), "", adminToken)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = env.MakeRequest(t, http.MethodGet, "/admin/members?filter=unassigned", "", adminToken)
		var members struct {
			Members []memberResponse `json:"members"`
		}
		DecodeJSON(t, resp, &members)
		assert.Len(t, members.Members, 2)
	})

	t.Run("Logout ends the session", func(t *testing.T) {
		resp := env.MakeRequest(t, http.MethodPost, "/auth/logout", "", janeToken)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = env.MakeRequest(t, http.MethodGet, "/registration/next", "", janeToken)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
