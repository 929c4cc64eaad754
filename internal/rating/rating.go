// Package rating maintains the five-bucket star histogram of a field and
// derives the displayed average from it.
//
// COUNTS, NOT A RUNNING AVERAGE:
// An average alone cannot be updated when a review is removed, and rounding it on
// every update accumulates error. Keeping the count per star value lets us add and
// remove reviews exactly and recompute the average from scratch each time:
//
//	average = round( Σ star × count(star) / Σ count(star), 1 decimal )
package rating

import (
	"fmt"
	"math"

	"github.com/sakif/fieldfinder/internal/model"
)

const (
	MinStars = 1
	MaxStars = 5
)

// Histogram holds the number of reviews per star value; index 0 is one star.
// The zero value is an empty histogram ready to use.
type Histogram [MaxStars]int

// ValidStars reports whether stars is in [MinStars, MaxStars].
func ValidStars(stars int) bool {
	return stars >= MinStars && stars <= MaxStars
}

// Add counts one more review with the given star value.
// An out-of-range value is rejected and the histogram is left unchanged.
func (h *Histogram) Add(stars int) error {
	if !ValidStars(stars) {
		return fmt.Errorf("rating: stars must be between %d and %d, got %d", MinStars, MaxStars, stars)
	}
	h[stars-1]++
	return nil
}

// Remove un-counts one review with the given star value. A bucket never goes
// below zero, so removing from an empty bucket is a no-op.
func (h *Histogram) Remove(stars int) error {
	if !ValidStars(stars) {
		return fmt.Errorf("rating: stars must be between %d and %d, got %d", MinStars, MaxStars, stars)
	}
	if h[stars-1] > 0 {
		h[stars-1]--
	}
	return nil
}

// Count returns the number of reviews with the given star value.
func (h Histogram) Count(stars int) int {
	if !ValidStars(stars) {
		return 0
	}
	return h[stars-1]
}

// Total returns the number of reviews counted.
func (h Histogram) Total() int {
	total := 0
	for _, n := range h {
		total += n
	}
	return total
}

// Average returns the mean star value rounded to one decimal, or 0 when empty.
func (h Histogram) Average() float64 {
	total := h.Total()
	if total == 0 {
		return 0
	}
	sum := 0
	for i, n := range h {
		sum += (i + 1) * n
	}
	return math.Round(float64(sum)/float64(total)*10) / 10
}

// Percentages returns each bucket's share of the total, rounded to whole percent.
// All zero when the histogram is empty.
func (h Histogram) Percentages() [MaxStars]int {
	var out [MaxStars]int
	total := h.Total()
	if total == 0 {
		return out
	}
	for i, n := range h {
		out[i] = int(math.Round(float64(n) / float64(total) * 100))
	}
	return out
}

// Rating converts the histogram to the wire form sent to and from the API.
func (h Histogram) Rating() model.Rating {
	dist := make(map[int]int, MaxStars)
	for i, n := range h {
		dist[i+1] = n
	}
	return model.Rating{Average: h.Average(), Distribution: dist}
}

// FromRating rebuilds a histogram from the wire form, ignoring keys outside 1..5.
func FromRating(r model.Rating) Histogram {
	var h Histogram
	for stars, n := range r.Distribution {
		if ValidStars(stars) && n > 0 {
			h[stars-1] = n
		}
	}
	return h
}

// FromRatings builds a histogram from individual star values.
// Out-of-range values are skipped.
func FromRatings(stars []int) Histogram {
	var h Histogram
	for _, s := range stars {
		_ = h.Add(s)
	}
	return h
}

// FromCounts builds a histogram from per-star counts such as the result of
// "SELECT rating, COUNT(*) ... GROUP BY rating".
func FromCounts(counts map[int]int) Histogram {
	var h Histogram
	for stars, n := range counts {
		if ValidStars(stars) && n > 0 {
			h[stars-1] += n
		}
	}
	return h
}
