// Package stats derives the dashboard figures from the activity history:
// totals, distance-over-time buckets, pace series and sport-type breakdowns.
// Everything here is a pure function over the fetched records.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/stridedash/stridedash/internal/feed"
)

// Summary holds the headline totals for a set of activities.
type Summary struct {
	Count             int           `json:"count"`
	TotalDistanceKm   float64       `json:"total_distance_km"`
	TotalElevationM   float64       `json:"total_elevation_m"`
	TotalMovingTime   time.Duration `json:"total_moving_time"`
	MeanPaceMinPerKm  float64       `json:"mean_pace_min_per_km"`
	LongestDistanceKm float64       `json:"longest_distance_km"`
}

// Summarize computes headline totals. Mean pace weights by distance, not by
// activity, so short strolls do not dominate.
func Summarize(records []feed.ActivityRecord) Summary {
	var s Summary
	var totalMinutes float64

	for _, r := range records {
		s.Count++
		km := r.DistanceMeters / 1000
		s.TotalDistanceKm += km
		s.TotalElevationM += r.ElevationGain
		s.TotalMovingTime += r.MovingTime
		totalMinutes += r.MovingTime.Minutes()
		if km > s.LongestDistanceKm {
			s.LongestDistanceKm = km
		}
	}

	if s.TotalDistanceKm > 0 {
		s.MeanPaceMinPerKm = totalMinutes / s.TotalDistanceKm
	}
	return s
}

// Bucket is one time bucket of aggregated distance.
type Bucket struct {
	Start      time.Time `json:"start"`
	DistanceKm float64   `json:"distance_km"`
	Count      int       `json:"count"`
}

// WeeklyDistance groups distance into ISO weeks (Monday start), ascending.
func WeeklyDistance(records []feed.ActivityRecord) []Bucket {
	return bucketize(records, weekStart)
}

// MonthlyDistance groups distance into calendar months, ascending.
func MonthlyDistance(records []feed.ActivityRecord) []Bucket {
	return bucketize(records, monthStart)
}

func bucketize(records []feed.ActivityRecord, truncate func(time.Time) time.Time) []Bucket {
	byStart := make(map[time.Time]*Bucket)
	for _, r := range records {
		if r.StartDate.IsZero() {
			continue
		}
		start := truncate(r.StartDate.UTC())
		b, ok := byStart[start]
		if !ok {
			b = &Bucket{Start: start}
			byStart[start] = b
		}
		b.DistanceKm += r.DistanceMeters / 1000
		b.Count++
	}

	buckets := make([]Bucket, 0, len(byStart))
	for _, b := range byStart {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Start.Before(buckets[j].Start) })
	return buckets
}

func weekStart(t time.Time) time.Time {
	day := t.Truncate(24 * time.Hour)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week started the previous Monday
	}
	return day.AddDate(0, 0, 1-weekday)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PacePoint is one activity's pace plotted over time.
type PacePoint struct {
	Date         time.Time `json:"date"`
	PaceMinPerKm float64   `json:"pace_min_per_km"`
	DistanceKm   float64   `json:"distance_km"`
}

// PaceSeries returns the pace of every distance-bearing activity of the given
// sport type, ascending by date. An empty sportType includes all types.
func PaceSeries(records []feed.ActivityRecord, sportType string) []PacePoint {
	var series []PacePoint
	for _, r := range records {
		if r.PaceMinPerKm <= 0 || r.StartDate.IsZero() {
			continue
		}
		if sportType != "" && r.SportType != sportType {
			continue
		}
		series = append(series, PacePoint{
			Date:         r.StartDate,
			PaceMinPerKm: r.PaceMinPerKm,
			DistanceKm:   r.DistanceMeters / 1000,
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

// TypeCount is one sport type's share of the history.
type TypeCount struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TypeHistogram counts activities per sport type, most frequent first.
// Unknown types keep their raw name as label.
func TypeHistogram(records []feed.ActivityRecord, labels map[string]string) []TypeCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.SportType]++
	}

	histogram := make([]TypeCount, 0, len(counts))
	for sport, count := range counts {
		label, ok := labels[sport]
		if !ok {
			label = sport
		}
		histogram = append(histogram, TypeCount{Type: sport, Label: label, Count: count})
	}
	sort.Slice(histogram, func(i, j int) bool {
		if histogram[i].Count != histogram[j].Count {
			return histogram[i].Count > histogram[j].Count
		}
		return histogram[i].Type < histogram[j].Type
	})
	return histogram
}

// workoutTypeRace is the provider's workout_type value for a race run.
const workoutTypeRace = 1

// Race distance categories, matched on the recorded distance with the usual
// course-measurement slack.
const (
	Race5k          = "5k"
	Race10k         = "10k"
	RaceHalf        = "Meia Maratona"
	RaceFull        = "Maratona"
	RaceNonStandard = "Distância não padrão"
)

// RaceCategory classifies a run as a race distance category. Races are runs
// flagged with the race workout type or carrying "prova" in the name. Returns
// an empty string for everything else.
func RaceCategory(r feed.ActivityRecord) string {
	isRace := r.WorkoutType == workoutTypeRace || strings.Contains(strings.ToLower(r.Name), "prova")
	if !isRace || r.SportType != "Run" {
		return ""
	}

	km := r.DistanceMeters / 1000
	switch {
	case km >= 4.9 && km < 5.2:
		return Race5k
	case km >= 9.9 && km < 10.2:
		return Race10k
	case km >= 21.0 && km < 21.3:
		return RaceHalf
	case km >= 42.0 && km < 42.4:
		return RaceFull
	default:
		return RaceNonStandard
	}
}

// RacePoint is one finished race.
type RacePoint struct {
	Date         time.Time     `json:"date"`
	Name         string        `json:"name"`
	DistanceKm   float64       `json:"distance_km"`
	MovingTime   time.Duration `json:"moving_time"`
	PaceMinPerKm float64       `json:"pace_min_per_km"`
}

// RaceSeries is the time evolution of one race distance category.
type RaceSeries struct {
	Category string      `json:"category"`
	Points   []RacePoint `json:"points"`
}

// RaceEvolution groups races by distance category with points ascending by
// date, so a falling moving time reads as improvement. Categories come out
// shortest distance first, non-standard last.
func RaceEvolution(records []feed.ActivityRecord) []RaceSeries {
	byCategory := make(map[string][]RacePoint)
	for _, r := range records {
		category := RaceCategory(r)
		if category == "" || r.StartDate.IsZero() {
			continue
		}
		byCategory[category] = append(byCategory[category], RacePoint{
			Date:         r.StartDate,
			Name:         r.Name,
			DistanceKm:   r.DistanceMeters / 1000,
			MovingTime:   r.MovingTime,
			PaceMinPerKm: r.PaceMinPerKm,
		})
	}

	series := make([]RaceSeries, 0, len(byCategory))
	for category, points := range byCategory {
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		series = append(series, RaceSeries{Category: category, Points: points})
	}
	sort.Slice(series, func(i, j int) bool {
		return raceCategoryRank(series[i].Category) < raceCategoryRank(series[j].Category)
	})
	return series
}

func raceCategoryRank(category string) int {
	switch category {
	case Race5k:
		return 0
	case Race10k:
		return 1
	case RaceHalf:
		return 2
	case RaceFull:
		return 3
	default:
		return 4
	}
}

// DistancePaceCorrelation is the Pearson correlation between activity
// distance and pace, NaN-free: zero when undefined (fewer than two points or
// zero variance).
func DistancePaceCorrelation(records []feed.ActivityRecord) float64 {
	var xs, ys []float64
	for _, r := range records {
		if r.PaceMinPerKm <= 0 {
			continue
		}
		xs = append(xs, r.DistanceMeters/1000)
		ys = append(ys, r.PaceMinPerKm)
	}
	if len(xs) < 2 {
		return 0
	}

	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
