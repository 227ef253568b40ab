package domain

import "time"

// DateRange is a half-open [Start, End) acquisition window in UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AcquisitionWindows are the date ranges the input adapter aggregates over.
type AcquisitionWindows struct {
	Greenness DateRange `json:"greenness"`
	Rainfall  DateRange `json:"rainfall"`
	ET0       DateRange `json:"et0"`
}

// ET0Window is the fixed climatology period for monthly mean PET.
var ET0Window = DateRange{
	Start: time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
}

// NDVIWindow is May of the current growing season. Before June the season's
// May composite is incomplete, so the previous year is used.
func NDVIWindow(now time.Time) DateRange {
	year := now.UTC().Year()
	if now.UTC().Month() < time.June {
		year--
	}
	return DateRange{
		Start: time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

// RainfallWindow is the cool season, November through March. Before March
// the current cool season is still open, so the previous one is used.
func RainfallWindow(now time.Time) DateRange {
	year := now.UTC().Year()
	if now.UTC().Month() < time.March {
		year--
	}
	return DateRange{
		Start: time.Date(year-1, time.November, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC),
	}
}

// CurrentWindows returns the acquisition windows as of the package clock.
func CurrentWindows() AcquisitionWindows {
	now := clock.Now()
	return AcquisitionWindows{
		Greenness: NDVIWindow(now),
		Rainfall:  RainfallWindow(now),
		ET0:       ET0Window,
	}
}
