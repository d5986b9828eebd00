package serving

import "github.com/agri-advisor/platform/pkg/recommend"

const (
	advisoryWindow   = 3
	rainPopThreshold = 0.6

	AdvisoryRain   = "Rain is expected in the next 3 days. Consider delaying irrigation."
	AdvisoryDry    = "No significant rain expected soon. Monitor soil moisture."
	AdvisoryNoData = "Could not fetch weather data."
)

// Advisory gives irrigation guidance from the first three forecast days.
func Advisory(days []recommend.ForecastDay) string {
	if len(days) == 0 {
		return AdvisoryNoData
	}
	n := advisoryWindow
	if len(days) < n {
		n = len(days)
	}
	for _, d := range days[:n] {
		if d.PrecipitationProbability > rainPopThreshold {
			return AdvisoryRain
		}
	}
	return AdvisoryDry
}
