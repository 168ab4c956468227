package sysconfig

// Settings is the per-organization tuning row read by the presence and
// face-check subsystems. A missing row behaves like Defaults().
type Settings struct {
	LocationUpdateIntervalMins int `json:"locationUpdateIntervalMins"`
	FaceChecksPerDayMin        int `json:"faceChecksPerDayMin"`
	FaceChecksPerDayMax        int `json:"faceChecksPerDayMax"`
	IdleThresholdMins          int `json:"idleThresholdMins"`
	IdleDistanceMeters         int `json:"idleDistanceMeters"`
	DataRetentionDays          int `json:"dataRetentionDays"`
}

func Defaults() Settings {
	return Settings{
		LocationUpdateIntervalMins: 30,
		FaceChecksPerDayMin:        2,
		FaceChecksPerDayMax:        4,
		IdleThresholdMins:          35,
		IdleDistanceMeters:         50,
		DataRetentionDays:          30,
	}
}

// Normalize fills non-positive fields with defaults so callers never
// divide by zero or compare against a zero threshold.
func (s Settings) Normalize() Settings {
	def := Defaults()
	if s.LocationUpdateIntervalMins <= 0 {
		s.LocationUpdateIntervalMins = def.LocationUpdateIntervalMins
	}
	if s.FaceChecksPerDayMin < 0 {
		s.FaceChecksPerDayMin = def.FaceChecksPerDayMin
	}
	if s.FaceChecksPerDayMax <= 0 {
		s.FaceChecksPerDayMax = def.FaceChecksPerDayMax
	}
	if s.FaceChecksPerDayMax < s.FaceChecksPerDayMin {
		s.FaceChecksPerDayMax = s.FaceChecksPerDayMin
	}
	if s.IdleThresholdMins <= 0 {
		s.IdleThresholdMins = def.IdleThresholdMins
	}
	if s.IdleDistanceMeters <= 0 {
		s.IdleDistanceMeters = def.IdleDistanceMeters
	}
	if s.DataRetentionDays <= 0 {
		s.DataRetentionDays = def.DataRetentionDays
	}
	return s
}
