package entity

// Weather is a current-conditions reading for one city.
type Weather struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"` // Celsius
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
}

// DailyMax is the highest forecast temperature for one UTC calendar date.
type DailyMax struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	Temperature float64 `json:"temperature"`
}

// KelvinToCelsius converts the upstream Kelvin readings.
func KelvinToCelsius(k float64) float64 {
	return k - 273.15
}
