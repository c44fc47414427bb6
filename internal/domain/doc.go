// Package domain models the core concepts of the sea-ice forecasting
// pipeline: hemispheres, date windows, gridded fields and training samples.
//
// # Data layout conventions
//
// Raw source files are daily NetCDF grids named with a date suffix:
//
//	<source>/<identifier>/<hemisphere>/<var>/[<year>/]<var>_YYYYMMDD.nc
//
// The variable a file belongs to is taken from its parent directory name.
// Some producers interpose a bare year directory (e.g. osisaf/north/siconca/2020/),
// in which case the variable name sits one level further up.
//
// # Hemispheres
//
// Every producer instance is scoped to exactly one hemisphere. North and south
// use different grids, masks and source trees, so mixing them in one output
// tree is a configuration error, as is selecting neither.
//
// # Lag and lead windows
//
// A training sample for target date d consumes observations from d-lag..d
// (the input history) and d+1..d+lead (the forecast ground truth). When many
// target dates are processed the per-date windows overlap heavily; the
// working date set is their deduplicated union so each raw file is located
// and read once.
//
// # Samples
//
// A sample is three dense arrays:
//
//	x  (h, w, channels)       lagged input planes plus metadata channels
//	y  (h, w, leads, 1)       future SIC, one plane per forecast day
//	sw (h, w, leads, 1)       per-cell sample weights (active-cell mask,
//	                          zeroed where the observation is missing)
//
// Channel accounting: each variable contributes one plane per lag day, in
// lag order (oldest first), followed by the metadata channels (cos/sin of
// day-of-year, land mask).
package domain
