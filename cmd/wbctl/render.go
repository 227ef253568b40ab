package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/couchcryptid/water-budget-service/internal/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	droughtStyle = cellStyle.Foreground(lipgloss.Color("9"))
)

// renderReport formats a report as a summary block followed by the season
// table.
func renderReport(r domain.Report) string {
	var b strings.Builder
	unit := r.UnitLabel

	fmt.Fprintln(&b, titleStyle.Render("Irrigation plan "+r.RequestID))
	field := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-24s", label)), value)
	}
	field("Location", fmt.Sprintf("%.4f, %.4f", r.Location.Lat, r.Location.Lon))
	field("NDVI / crop coefficient", fmt.Sprintf("%.2f / %.3f", r.NDVI, r.CropCoefficient))
	rain := fmt.Sprintf("%.1f %s", r.AppliedRainfall, unit)
	if r.RainfallOverridden {
		rain += fmt.Sprintf(" (override; sensed %.1f)", r.SensedRainfall)
	}
	field("Winter rainfall", rain)
	field("Season ET0", fmt.Sprintf("%g %s", domain.RoundForDisplay(r.TotalET0, r.Units), unit))
	field("Recommended irrigation", fmt.Sprintf("%g %s", domain.RoundForDisplay(r.RecommendedIrrigation, r.Units), unit))
	if r.ScaleFactor != 1 {
		field("Allocated irrigation", fmt.Sprintf("%g %s (scale factor %.3f)",
			domain.RoundForDisplay(r.TotalIrrigation, r.Units), unit, r.ScaleFactor))
	}
	if r.Degenerate {
		field("Note", "no irrigation demand to scale")
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, scheduleTable(r))

	if len(r.DroughtMonths) == 0 {
		field("Drought months", "none")
	} else {
		names := make([]string, len(r.DroughtMonths))
		for i, m := range r.DroughtMonths {
			names[i] = monthName(m)
		}
		field("Drought months", strings.Join(names, ", "))
	}
	return b.String()
}

func scheduleTable(r domain.Report) string {
	rows := make([][]string, 0, len(r.Table))
	drought := make(map[int]bool)
	for i, row := range r.Table {
		rows = append(rows, []string{
			monthName(row.Month),
			fmt.Sprintf("%g", row.ET0),
			fmt.Sprintf("%g", row.Irrigation),
			string(row.Status),
		})
		drought[i] = row.Status == domain.StatusDrought
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Month", "ET0 ("+r.UnitLabel+")", "Irrigation ("+r.UnitLabel+")", "Soil").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case drought[row]:
				return droughtStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func monthName(m int) string {
	return time.Month(m).String()[:3]
}
