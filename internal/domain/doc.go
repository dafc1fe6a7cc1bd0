// Package domain models hourly PM2.5 readings for Chinese cities and the
// statistics derived from them.
//
// # Data Source
//
// Readings come from the "PM2.5 Data of Five Chinese Cities" hourly CSV files
// (one file per city, 2010-01-01 through 2015-12-31). Each row is one hour and
// carries the calendar fields (year, month, day, hour), a column per domestic
// monitoring station (e.g. "PM_Dongsi"), and the US embassy or consulate reading
// ("PM_US Post").
//
// # Conventions
//
// Missing values:
//
//	"NA" is the sentinel for an hour that a station did not report. A row with
//	any missing value among the selected columns is dropped entirely, so every
//	Record carries a full set of readings.
//
// Whole numbers:
//
//	Readings are truncated toward zero at load time. Averages computed from
//	them (station means, monthly means) are fractional.
//
// Domestic vs. reference:
//
//	The domestic value of an hour is the arithmetic mean of the city's station
//	readings. The reference value is the single US post reading. Both are fed to
//	the same classifier so the band boundaries cannot drift apart.
//
// Severity bands:
//
//	heavy   PM2.5 > 150
//	medium  75 < PM2.5 <= 150
//	light   35 < PM2.5 <= 75
//	good    PM2.5 <= 35
//
//	Bounds are upper-inclusive: a reading of exactly 150 is medium, 75 is light
//	and 35 is good.
//
// Monthly averages:
//
//	One entry per (year, month) actually observed, ordered by year then month.
//	Months without any surviving rows produce no entry. Labels are "YYYY-MM".
package domain
