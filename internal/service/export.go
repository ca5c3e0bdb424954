package service

import (
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/aidar/challenge-portal/internal/domain"
)

// ExportSheet is the name of the worksheet holding every registration
const ExportSheet = "All Members"

// ExportHeaders are the column titles of the export
var ExportHeaders = []string{
	"Team Name", "On Waiting List", "Name", "Email", "Mobile Number", "Preferred Route", "Organisation",
	"Role", "Shirt Size", "Forces Veteran", "Camping Friday",
	"Camping Saturday", "Taking Car", "Hiking Experience",
	"Travelling From", "Notes",
}

const (
	minColumnWidth  = 15
	headerFillColor = "4F81BD"
)

// WriteMembersWorkbook writes the registrations as an .xlsx workbook sorted by
// team name with unassigned members last and active members before waiting ones
func WriteMembersWorkbook(w io.Writer, members []*domain.Member, teamNames map[int64]string) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	rows := make([][]any, 0, len(members)+1)
	header := make([]any, len(ExportHeaders))
	for i, h := range ExportHeaders {
		header[i] = h
	}
	rows = append(rows, header)

	for _, m := range sortForExport(members, teamNames) {
		rows = append(rows, exportRow(m, teamName(m, teamNames)))
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := styleSheet(f, rows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func sortForExport(members []*domain.Member, teamNames map[int64]string) []*domain.Member {
	sorted := make([]*domain.Member, len(members))
	copy(sorted, members)

	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := teamName(sorted[i], teamNames), teamName(sorted[j], teamNames)
		ui, uj := ti == domain.UnassignedTeamName, tj == domain.UnassignedTeamName
		if ui != uj {
			return !ui
		}
		if ti != tj {
			return ti < tj
		}
		return !sorted[i].OnWaitingList && sorted[j].OnWaitingList
	})
	return sorted
}

func teamName(m *domain.Member, teamNames map[int64]string) string {
	if m.TeamID == nil {
		return domain.UnassignedTeamName
	}
	if name, ok := teamNames[*m.TeamID]; ok {
		return name
	}
	return domain.UnassignedTeamName
}

func exportRow(m *domain.Member, team string) []any {
	waiting := "No"
	if m.OnWaitingList {
		waiting = "Yes"
	}
	return []any{
		team,
		waiting,
		m.FullName,
		m.EmployeeEmail,
		deref(m.MobileNumber),
		deref(m.PreferredRoute),
		m.Organisation,
		deref(m.Role),
		deref(m.ShirtSize),
		m.ForcesVet,
		m.CampingFri,
		m.CampingSat,
		m.TakingCar,
		deref(m.HikingExperience),
		deref(m.TravellingFrom),
		deref(m.Notes),
	}
}

func styleSheet(f *excelize.File, rows [][]any) error {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	bodyStyle, err := f.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return fmt.Errorf("failed to create body style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(ExportHeaders))
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(ExportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if len(rows) > 1 {
		if err := f.SetCellStyle(ExportSheet, "A2", fmt.Sprintf("%s%d", lastCol, len(rows)), bodyStyle); err != nil {
			return err
		}
	}

	for col := range ExportHeaders {
		width := minColumnWidth
		for _, row := range rows {
			if n := utf8.RuneCountInString(fmt.Sprint(row[col])) + 2; n > width {
				width = n
			}
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(ExportSheet, name, name, float64(width)); err != nil {
			return err
		}
	}

	return f.SetPanes(ExportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
