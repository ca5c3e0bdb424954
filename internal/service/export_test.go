package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/aidar/challenge-portal/internal/domain"
)

func TestWriteMembersWorkbook(t *testing.T) {
	teamA, teamB, dangling := int64(1), int64(2), int64(99)
	route := "Peak"

	members := []*domain.Member{
		{ID: 1, FullName: "Unassigned Active", EmployeeEmail: "u@dxc.com"},
		{ID: 2, FullName: "Zed Waiting", EmployeeEmail: "z@dxc.com", TeamID: &teamB, OnWaitingList: true},
		{ID: 3, FullName: "Zed Active", EmployeeEmail: "za@dxc.com", TeamID: &teamB, PreferredRoute: &route, ForcesVet: true},
		{ID: 4, FullName: "Alpha Member", EmployeeEmail: "a@dxc.com", TeamID: &teamA},
		{ID: 5, FullName: "Dangling", EmployeeEmail: "d@dxc.com", TeamID: &dangling},
	}
	names := map[int64]string{teamA: "Alpha", teamB: "Zulu"}

	var buf bytes.Buffer
	require.NoError(t, WriteMembersWorkbook(&buf, members, names))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{ExportSheet}, f.GetSheetList())

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, ExportHeaders, rows[0])

	var order []string
	for _, row := range rows[1:] {
		order = append(order, row[2])
	}
	assert.Equal(t, []string{"Alpha Member", "Zed Active", "Zed Waiting", "Unassigned Active", "Dangling"}, order)

	assert.Equal(t, "Zulu", rows[2][0])
	assert.Equal(t, "No", rows[2][1])
	assert.Equal(t, "Peak", rows[2][5])
	assert.Equal(t, "TRUE", rows[2][9])
	assert.Equal(t, "Yes", rows[3][1])
	assert.Equal(t, domain.UnassignedTeamName, rows[5][0])
}

func TestWriteMembersWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMembersWorkbook(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(ExportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
