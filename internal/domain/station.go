package domain

// Station identifies the physical preparation station a task is routed to
type Station string

const (
	StationFood     Station = "food"
	StationBeverage Station = "beverage"
)

// IsValid checks if the station is valid
func (s Station) IsValid() bool {
	switch s {
	case StationFood, StationBeverage:
		return true
	default:
		return false
	}
}

// AllStations returns every routable station
func AllStations() []Station {
	return []Station{StationFood, StationBeverage}
}
