package feed

import "time"

// ActivityRecord is one normalized row of the athlete's activity history.
// Rows are immutable and fetched fresh each session, never persisted.
type ActivityRecord struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	SportType       string        `json:"sport_type"`
	WorkoutType     int           `json:"workout_type"`
	StartDate       time.Time     `json:"start_date"`
	MovingTime      time.Duration `json:"moving_time"`
	ElapsedTime     time.Duration `json:"elapsed_time"`
	DistanceMeters  float64       `json:"distance_meters"`
	ElevationGain   float64       `json:"elevation_gain"`
	AverageSpeed    float64       `json:"average_speed"`
	PaceMinPerKm    float64       `json:"pace_min_per_km"`
	SummaryPolyline string        `json:"summary_polyline,omitempty"`
}

// Athlete is the authenticated user's profile.
type Athlete struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"firstname"`
	LastName  string  `json:"lastname"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Weight    float64 `json:"weight"`
}

// Split is one metric split of a detailed activity.
type Split struct {
	Number              int           `json:"split"`
	DistanceMeters      float64       `json:"distance"`
	MovingTime          time.Duration `json:"moving_time"`
	ElevationDifference float64       `json:"elevation_difference"`
	AverageSpeed        float64       `json:"average_speed"`
}

// ActivityDetail extends ActivityRecord with per-activity data only available
// from the single-activity endpoint.
type ActivityDetail struct {
	ActivityRecord
	Description      string  `json:"description,omitempty"`
	Calories         float64 `json:"calories"`
	AverageHeartrate float64 `json:"average_heartrate"`
	Polyline         string  `json:"polyline,omitempty"`
	Splits           []Split `json:"splits,omitempty"`
}

// apiActivity mirrors the provider's activity object. Durations arrive in
// seconds, distances in meters, timestamps in RFC 3339.
type apiActivity struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	SportType          string  `json:"sport_type"`
	WorkoutType        int     `json:"workout_type"`
	StartDate          string  `json:"start_date"`
	MovingTime         int64   `json:"moving_time"`
	ElapsedTime        int64   `json:"elapsed_time"`
	Distance           float64 `json:"distance"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
	AverageSpeed       float64 `json:"average_speed"`
	Map                struct {
		SummaryPolyline string `json:"summary_polyline"`
		Polyline        string `json:"polyline"`
	} `json:"map"`
}

type apiActivityDetail struct {
	apiActivity
	Description      string  `json:"description"`
	Calories         float64 `json:"calories"`
	AverageHeartrate float64 `json:"average_heartrate"`
	SplitsMetric     []struct {
		Split               int     `json:"split"`
		Distance            float64 `json:"distance"`
		MovingTime          int64   `json:"moving_time"`
		ElevationDifference float64 `json:"elevation_difference"`
		AverageSpeed        float64 `json:"average_speed"`
	} `json:"splits_metric"`
}

func (a apiActivity) normalize() ActivityRecord {
	start, _ := time.Parse(time.RFC3339, a.StartDate)
	sport := a.SportType
	if sport == "" {
		sport = a.Type
	}

	rec := ActivityRecord{
		ID:              a.ID,
		Name:            a.Name,
		SportType:       sport,
		WorkoutType:     a.WorkoutType,
		StartDate:       start,
		MovingTime:      time.Duration(a.MovingTime) * time.Second,
		ElapsedTime:     time.Duration(a.ElapsedTime) * time.Second,
		DistanceMeters:  a.Distance,
		ElevationGain:   a.TotalElevationGain,
		AverageSpeed:    a.AverageSpeed,
		SummaryPolyline: a.Map.SummaryPolyline,
	}
	rec.PaceMinPerKm = paceMinPerKm(a.MovingTime, a.Distance)
	return rec
}

func (a apiActivityDetail) normalize() ActivityDetail {
	detail := ActivityDetail{
		ActivityRecord:   a.apiActivity.normalize(),
		Description:      a.Description,
		Calories:         a.Calories,
		AverageHeartrate: a.AverageHeartrate,
		Polyline:         a.Map.Polyline,
	}
	for _, s := range a.SplitsMetric {
		detail.Splits = append(detail.Splits, Split{
			Number:              s.Split,
			DistanceMeters:      s.Distance,
			MovingTime:          time.Duration(s.MovingTime) * time.Second,
			ElevationDifference: s.ElevationDifference,
			AverageSpeed:        s.AverageSpeed,
		})
	}
	return detail
}

// paceMinPerKm derives pace in minutes per kilometer; zero when no distance
// was covered.
func paceMinPerKm(movingSeconds int64, distanceMeters float64) float64 {
	if distanceMeters <= 0 || movingSeconds <= 0 {
		return 0
	}
	return (float64(movingSeconds) / 60) / (distanceMeters / 1000)
}
