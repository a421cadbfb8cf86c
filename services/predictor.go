package services

import (
	"math"
	"time"

	"waitline/models"
)

const (
	baseWaitPerParty    = 15
	partySizeMultiplier = 1.2

	empiricalPartyFactor = 1.15
	minSamplesForHistory = 10
	proximityWindow      = 3
	minimumWaitMinutes   = 5
)

// Estimate predicts the wait in minutes for a party joining at the given
// queue position. Pure function of its inputs; samples are expected to
// already be filtered to those with a recorded actual wait.
//
// With fewer than ten usable samples it falls back to a load heuristic.
// Otherwise it averages the actual waits of samples recorded at a similar
// queue depth and scales by service-rate seasonality and party size.
func Estimate(partySize, queuePosition int, samples []models.WaitTimeSample, now time.Time) int {
	if len(samples) < minSamplesForHistory {
		return heuristicEstimate(partySize, queuePosition)
	}

	var sum, matched int
	for _, s := range samples {
		if s.ActualWait == nil {
			continue
		}
		diff := s.QueueLength - queuePosition
		if diff < 0 {
			diff = -diff
		}
		if diff <= proximityWindow {
			sum += *s.ActualWait
			matched++
		}
	}
	if matched == 0 {
		return heuristicEstimate(partySize, queuePosition)
	}

	avgActual := float64(sum) / float64(matched)
	sizeFactor := math.Pow(empiricalPartyFactor, float64(partySize-2))
	predicted := int(math.Round(avgActual * timeOfDayFactor(now.Hour()) * sizeFactor))

	return max(predicted, minimumWaitMinutes)
}

func heuristicEstimate(partySize, queuePosition int) int {
	sizeFactor := math.Pow(partySizeMultiplier, float64(partySize-2))
	estimated := int(math.Round(float64(queuePosition) * baseWaitPerParty * sizeFactor))

	return max(estimated, minimumWaitMinutes)
}

// timeOfDayFactor encodes known service-rate seasonality: lunch and dinner
// rushes slow the table turnover, mid-afternoon speeds it up.
func timeOfDayFactor(hour int) float64 {
	switch {
	case hour >= 12 && hour <= 13:
		return 1.4
	case hour >= 18 && hour <= 20:
		return 1.5
	case hour >= 14 && hour <= 17:
		return 0.8
	case hour >= 21 && hour <= 22:
		return 0.9
	default:
		return 1.0
	}
}
