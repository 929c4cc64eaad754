// Package grass summarises the grass-condition tags reviewers attach to a field.
//
// Four of the eight tags describe a problem a player should prepare for
// (hard, short, slippery, bumpy); the field page shows their relative share
// as a donut chart. The other four tags (soft, long, well maintained, good
// drainage) are shown as plain labels on each review and are left out here.
package grass

import (
	"math"

	"github.com/sakif/fieldfinder/internal/model"
)

// Summarize returns the percentage share of each summarised bucket.
//
// Only the four bucket tags are counted, so the total is the number of bucket-tag
// occurrences and the four values describe one whole chart. Each share is rounded
// to the nearest integer. With no bucket tags every share is 0.
func Summarize(tags []model.GrassCondition) model.ConditionSummary {
	var hard, short, slippery, bumpy int
	for _, tag := range tags {
		switch tag {
		case model.ConditionHard:
			hard++
		case model.ConditionShort:
			short++
		case model.ConditionSlippery:
			slippery++
		case model.ConditionBumpy:
			bumpy++
		}
	}

	total := hard + short + slippery + bumpy
	if total == 0 {
		return model.ConditionSummary{}
	}

	return model.ConditionSummary{
		Hard:     percent(hard, total),
		Short:    percent(short, total),
		Slippery: percent(slippery, total),
		Bumpy:    percent(bumpy, total),
	}
}

// SummarizeReviews summarises every tag across the given reviews.
func SummarizeReviews(reviews []model.Review) model.ConditionSummary {
	var tags []model.GrassCondition
	for _, r := range reviews {
		tags = append(tags, r.GrassConditions...)
	}
	return Summarize(tags)
}

func percent(n, total int) int {
	return int(math.Round(float64(n) / float64(total) * 100))
}
