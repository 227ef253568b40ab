// Package domain implements the seasonal irrigation water budget.
//
// # Inputs
//
// Three sensed quantities arrive per location from the input adapter:
//
//	NDVI (greenness):  median of a cloud-filtered May composite, in [0, 1].
//	Rainfall:          cumulative cool-season (November–March) depth, mm.
//	ET0:               12 monthly mean reference evapotranspiration depths, mm.
//
// Any of them may be absent (cloud cover, coverage gaps). Absence is carried
// as a missing [Reading] and fails the computation with [ErrNoData]; a sensed
// zero is a valid value. The user adds winter pre-irrigation (output units),
// the irrigation season bounds, an optional field-corrected rainfall total
// and an optional total water allocation.
//
// # Units
//
// Sensed depths are millimeters. The model applies the unit scale once:
// 1.0 for metric, 0.03937 for imperial (mm → in). Winter irrigation and the
// allocation target are already in output units.
//
// # Model
//
// For crop coefficient Kc, season S (inclusive months) and scale factor f:
//
//	Kc          = 0.8 · (1 − e^(−3·NDVI))
//	Reff        = rain · scale · 0.8 + winter
//	ET0'[m]     = ET0[m] · scale   if m ∈ [Mar, Oct] ∪ S, else 0
//	ETa[m]      = ET0'[m] · Kc / 0.7
//	SWI         = (Reff − Σ_{m∉S} ETa[m] − 50·scale) / |S|
//	I[m]        = max(0, ETa[m] − SWI) · f   for m ∈ S, else 0
//	v           = 0.2 · I[Jul];  I[Jul] −= v;  I[Aug] += 0.4·v;  I[Sep] += 0.6·v
//	SW[m]       = max(0, Reff − Σ_{k≤m} ETa[k] + Σ_{k≤m} I[k])
//	status[m]   = drought if SW[m] = 0, else safe
//
// The 0.8 retention models runoff and deep drainage, 0.7 normalizes Kc to
// the reference crop, and 50 mm is the soil reserve consumed before the
// season. The July shift moves peak demand later to ease equipment and labor
// load; the moved volume is returned in full.
//
// # Allocation
//
// [SolveForAllocation] runs the model at f = 1, then at
// f = target / total(f=1). A zero reference total yields f = 0 and a
// schedule with no irrigation; that is a result, not an error.
//
// # Display
//
// Tables round metric depths to the nearest 5 mm and imperial depths to
// 0.1 in. Only season months are tabulated.
package domain
