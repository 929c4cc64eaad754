package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/sakif/fieldfinder/internal/model"
	"github.com/sakif/fieldfinder/internal/rating"
	"github.com/sakif/fieldfinder/internal/thread"
)

const barWidth = 20

func bar(percent int) string {
	n := percent * barWidth / 100
	return strings.Repeat("#", n) + strings.Repeat(".", barWidth-n)
}

func stars(n int) string {
	if !rating.ValidStars(n) {
		return strings.Repeat("-", rating.MaxStars)
	}
	return strings.Repeat("*", n) + strings.Repeat("-", rating.MaxStars-n)
}

func renderFields(w io.Writer, fields []model.FieldDetail) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tGRASS\tRATING\tREVIEWS")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%d\n",
			f.ID, f.Name, f.Address, f.GrassType, f.Rating.Average, f.ReviewCount)
	}
	return tw.Flush()
}

func renderPending(w io.Writer, fields []model.Field) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tGRASS\tSUBMITTED")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Name, f.Address, f.GrassType, humanize.Time(f.CreatedAt))
	}
	return tw.Flush()
}

// renderField prints the header, the star distribution and the grass
// condition breakdown of a field.
func renderField(w io.Writer, f model.FieldDetail, h rating.Histogram) {
	fmt.Fprintf(w, "%s\n%s\n", f.Name, f.Address)
	fmt.Fprintf(w, "Grass: %s (%s)   Shoes: %s (%s)\n",
		f.GrassType, f.GrassType.Description(), f.ShoeType, f.ShoeType.Description())
	if f.Image != "" {
		fmt.Fprintf(w, "Photo: %s\n", f.Image)
	}

	fmt.Fprintf(w, "\nRating %.1f from %s\n", h.Average(), plural(h.Total(), "review"))
	pct := h.Percentages()
	for s := rating.MaxStars; s >= rating.MinStars; s-- {
		fmt.Fprintf(w, "  %d %s %3d%%  (%d)\n", s, bar(pct[s-1]), pct[s-1], h.Count(s))
	}

	c := f.GrassCondition
	fmt.Fprintln(w, "\nGrass condition")
	for _, row := range []struct {
		label   string
		percent int
	}{
		{"hard", c.Hard},
		{"short", c.Short},
		{"slippery", c.Slippery},
		{"bumpy", c.Bumpy},
	} {
		fmt.Fprintf(w, "  %-8s %s %3d%%\n", row.label, bar(row.percent), row.percent)
	}
}

// renderReviews prints reviews newest first; the caller's own are marked.
func renderReviews(w io.Writer, reviews []model.Review, me string) {
	if len(reviews) == 0 {
		fmt.Fprintln(w, "No reviews yet.")
		return
	}
	for i, rv := range reviews {
		if i > 0 {
			fmt.Fprintln(w)
		}
		mine := ""
		if me != "" && rv.UserID == me {
			mine = " (you)"
		}
		fmt.Fprintf(w, "%s  %s%s  %s  [%s]\n", stars(rv.Rating), rv.Author, mine, humanize.Time(rv.CreatedAt), rv.ID)
		fmt.Fprintf(w, "  %s\n", rv.Content)

		tags := make([]string, len(rv.GrassConditions))
		for i, c := range rv.GrassConditions {
			tags[i] = strings.ToLower(string(c))
		}
		fmt.Fprintf(w, "  grass %s, shoes %s", rv.GrassType, rv.RecommendedShoe)
		if len(tags) > 0 {
			fmt.Fprintf(w, ", %s", strings.Join(tags, ", "))
		}
		fmt.Fprintln(w)
		if rv.ShoeLink != "" {
			fmt.Fprintf(w, "  %s\n", rv.ShoeLink)
		}
	}
}

// renderThread prints comments as an indented tree. Anything below a reply
// is drawn at reply level.
func renderThread(w io.Writer, roots []*model.Comment) {
	if len(roots) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return
	}
	thread.Walk(roots, func(c *model.Comment, depth int) {
		indent := strings.Repeat("    ", thread.DisplayDepth(depth))
		marker := ""
		if depth > 0 {
			marker = "> "
		}
		fmt.Fprintf(w, "%s%s%s: %s  [%s]\n", indent, marker, c.Author, c.Content, c.ID)
	})
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
