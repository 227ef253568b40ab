package domain

import "math"

// Status classifies a month of the soil water trace.
type Status string

const (
	StatusSafe    Status = "safe"
	StatusDrought Status = "drought"
)

// MonthRecord is one row of an irrigation schedule, in output units.
type MonthRecord struct {
	Month      int     `json:"month"`
	ET0        float64 `json:"et0"` // after season masking and unit scaling
	ActualET   float64 `json:"actual_et"`
	Irrigation float64 `json:"irrigation"`
	SoilWater  float64 `json:"soil_water"`
	Status     Status  `json:"status"`
}

// Schedule is the model output for one invocation. It is a value: every
// parameter change produces a new Schedule.
type Schedule struct {
	Months            [MonthsPerYear]MonthRecord `json:"months"`
	Units             UnitSystem                 `json:"units"`
	Season            SeasonBounds               `json:"season"`
	CropCoefficient   float64                    `json:"crop_coefficient"`
	EffectiveRainfall float64                    `json:"effective_rainfall"`
	SoilWaterIndex    float64                    `json:"soil_water_index"`
	ScaleFactor       float64                    `json:"scale_factor"`
}

// TotalIrrigation sums irrigation over all months in calendar order. Pairwise
// summation (as in numpy) can differ from this in the last bits.
func (s Schedule) TotalIrrigation() float64 {
	var total float64
	for _, m := range s.Months {
		total += m.Irrigation
	}
	return total
}

// TotalET0 sums the masked, scaled ET0.
func (s Schedule) TotalET0() float64 {
	var total float64
	for _, m := range s.Months {
		total += m.ET0
	}
	return total
}

// DroughtMonths lists months whose soil water pool is empty.
func (s Schedule) DroughtMonths() []int {
	var months []int
	for _, m := range s.Months {
		if m.Status == StatusDrought {
			months = append(months, m.Month)
		}
	}
	return months
}

// DisplayRow is a season month rounded for presentation.
type DisplayRow struct {
	Month      int     `json:"month"`
	ET0        float64 `json:"et0"`
	Irrigation float64 `json:"irrigation"`
	Status     Status  `json:"status"`
}

// Table returns the in-season months with ET0 and irrigation rounded for
// display.
func (s Schedule) Table() []DisplayRow {
	rows := make([]DisplayRow, 0, s.Season.Len())
	for _, m := range s.Months {
		if !s.Season.Contains(m.Month) {
			continue
		}
		rows = append(rows, DisplayRow{
			Month:      m.Month,
			ET0:        RoundForDisplay(m.ET0, s.Units),
			Irrigation: RoundForDisplay(m.Irrigation, s.Units),
			Status:     m.Status,
		})
	}
	return rows
}

// RoundForDisplay rounds metric depths to the nearest 5 mm and imperial
// depths to a tenth of an inch.
func RoundForDisplay(v float64, units UnitSystem) float64 {
	if units == Imperial {
		return math.RoundToEven(v*10) / 10
	}
	return math.RoundToEven(v/5) * 5
}
