package domain

import (
	"fmt"
	"math"
)

// Model constants. Each is applied exactly where the water-budget formulas
// name it; see doc.go.
const (
	maxCropCoefficient  = 0.8 // asymptote of the greenness curve
	greennessSteepness  = 3.0
	rainfallRetention   = 0.8 // retained fraction after runoff/drainage
	referenceCropCoeff  = 0.7 // normalizes Kc against the reference crop
	offSeasonReserveMM  = 50.0
	peakMonth           = 7 // July
	peakShare           = 0.2
	firstReceivingMonth = 8
	firstReceiveShare   = 0.4
	secondReceiveMonth  = 9
	secondReceiveShare  = 0.6
)

// CropCoefficient maps greenness in [0,1] to a crop coefficient in [0, 0.8)
// along a saturating exponential. Callers validate the domain first.
func CropCoefficient(greenness float64) float64 {
	return maxCropCoefficient * (1 - math.Exp(-greennessSteepness*greenness))
}

// EffectiveRainfall is the rainfall retained in the root zone plus winter
// pre-irrigation, in output units. It may be negative.
func EffectiveRainfall(rainfallMM, unitScale, winterIrrigation float64) float64 {
	return rainfallMM*unitScale*rainfallRetention + winterIrrigation
}

// ApplySeasonMask zeroes months outside both the March–October growing
// window and the irrigation season, then converts the rest to output units.
func ApplySeasonMask(et0 MonthlyETSeries, season SeasonBounds, unitScale float64) MonthlyETSeries {
	var out MonthlyETSeries
	for i, v := range et0 {
		month := i + 1
		if !growingWindow.Contains(month) && !season.Contains(month) {
			v = 0
		}
		out[i] = v * unitScale
	}
	return out
}

// ActualET scales masked ET0 by the crop coefficient relative to the
// reference crop.
func ActualET(maskedET0 MonthlyETSeries, cropCoefficient float64) MonthlyETSeries {
	var out MonthlyETSeries
	for i, v := range maskedET0 {
		out[i] = v * cropCoefficient / referenceCropCoeff
	}
	return out
}

// SoilWaterIndex amortizes the off-season balance across the irrigation
// season: effective rainfall minus off-season crop use minus the fixed soil
// reserve, per season month. Negative values are a deficit to make up.
func SoilWaterIndex(effectiveRainfall float64, actualET MonthlyETSeries, season SeasonBounds, unitScale float64) (float64, error) {
	n := season.Len()
	if n < 1 {
		return 0, fmt.Errorf("soil water index: %w", season.Validate())
	}

	var offSeason float64
	for i, v := range actualET {
		if !season.Contains(i + 1) {
			offSeason += v
		}
	}
	return (effectiveRainfall - offSeason - offSeasonReserveMM*unitScale) / float64(n), nil
}

// IrrigationDemand is crop use beyond the soil water index for each season
// month, times the global scale factor. Months outside the season get 0.
func IrrigationDemand(actualET MonthlyETSeries, swi float64, season SeasonBounds, scaleFactor float64) MonthlyETSeries {
	var out MonthlyETSeries
	for i, v := range actualET {
		if season.Contains(i + 1) {
			out[i] = math.Max(0, v-swi) * scaleFactor
		}
	}
	return out
}

// RedistributePeak moves a fifth of July's irrigation to August (40%) and
// September (60%). A July outside the season holds 0, so nothing moves.
func RedistributePeak(irrigation MonthlyETSeries) MonthlyETSeries {
	out := irrigation
	moved := out[peakMonth-1] * peakShare
	out[peakMonth-1] -= moved
	out[firstReceivingMonth-1] += moved * firstReceiveShare
	out[secondReceiveMonth-1] += moved * secondReceiveShare
	return out
}

// ComputeTrace runs the single-pool soil water balance: effective rainfall
// as an opening credit, depleted by cumulative crop use and replenished by
// cumulative irrigation, clipped at zero. A zero pool is drought.
func ComputeTrace(effectiveRainfall float64, actualET, irrigation MonthlyETSeries) (MonthlyETSeries, [MonthsPerYear]Status) {
	var (
		soilWater     MonthlyETSeries
		status        [MonthsPerYear]Status
		cumET, cumIrr float64
	)
	for i := range actualET {
		cumET += actualET[i]
		cumIrr += irrigation[i]
		soilWater[i] = math.Max(0, effectiveRainfall-cumET+cumIrr)
		status[i] = classify(soilWater[i])
	}
	return soilWater, status
}

func classify(soilWater float64) Status {
	if soilWater == 0 {
		return StatusDrought
	}
	return StatusSafe
}

// Compute runs the full water-budget model with the given scale factor
// (1 for the unconstrained recommendation). Inputs are validated first;
// a missing sensed value fails the whole computation with ErrNoData.
func Compute(in ModelInputs, scaleFactor float64) (Schedule, error) {
	if err := in.Validate(); err != nil {
		return Schedule{}, err
	}
	if scaleFactor < 0 || math.IsNaN(scaleFactor) || math.IsInf(scaleFactor, 0) {
		return Schedule{}, outOfRange("scale_factor", "%g is negative or not finite", scaleFactor)
	}

	unitScale := in.Units.Scale()
	greenness, _ := in.Greenness.Value()
	rainfall, _ := in.AppliedRainfall()

	kc := CropCoefficient(greenness)
	effRain := EffectiveRainfall(rainfall, unitScale, in.WinterIrrigation)
	masked := ApplySeasonMask(in.ET0, in.Season, unitScale)
	actual := ActualET(masked, kc)

	swi, err := SoilWaterIndex(effRain, actual, in.Season, unitScale)
	if err != nil {
		return Schedule{}, err
	}

	irrigation := RedistributePeak(IrrigationDemand(actual, swi, in.Season, scaleFactor))
	soilWater, status := ComputeTrace(effRain, actual, irrigation)

	s := Schedule{
		Units:             in.Units,
		Season:            in.Season,
		CropCoefficient:   kc,
		EffectiveRainfall: effRain,
		SoilWaterIndex:    swi,
		ScaleFactor:       scaleFactor,
	}
	for i := range s.Months {
		s.Months[i] = MonthRecord{
			Month:      i + 1,
			ET0:        masked[i],
			ActualET:   actual[i],
			Irrigation: irrigation[i],
			SoilWater:  soilWater[i],
			Status:     status[i],
		}
	}
	if err := s.checkFinite(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// checkFinite rejects a schedule whose arithmetic overflowed, typically
// from a scale factor large enough to push irrigation past float64 range.
func (s Schedule) checkFinite() error {
	finite := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	if !finite(s.EffectiveRainfall) || !finite(s.SoilWaterIndex) {
		return outOfRange("inputs", "water balance is not finite")
	}
	for _, m := range s.Months {
		if !finite(m.ET0) || !finite(m.ActualET) || !finite(m.Irrigation) || !finite(m.SoilWater) {
			return outOfRange("inputs", "month %d water balance is not finite", m.Month)
		}
	}
	if !finite(s.TotalIrrigation()) {
		return outOfRange("inputs", "total irrigation is not finite")
	}
	return nil
}
