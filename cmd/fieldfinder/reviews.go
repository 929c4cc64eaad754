package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/fieldfinder/internal/client"
)

func loadAllReviews(cmd *cobra.Command, a *app) error {
	for a.store.HasMoreReviews() {
		if err := a.store.LoadMoreReviews(cmd.Context()); err != nil {
			return err
		}
	}
	return nil
}

func newReviewsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reviews",
		Aliases: []string{"review"},
		Short:   "Read and write reviews",
	}
	cmd.AddCommand(
		newReviewsListCmd(a),
		newReviewsAddCmd(a),
		newReviewsEditCmd(a),
		newReviewsDeleteCmd(a),
	)
	return cmd
}

func newReviewsListCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list FIELD_ID",
		Short: "List a field's reviews, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.SelectField(cmd.Context(), args[0]); err != nil {
				return err
			}
			if all {
				if err := loadAllReviews(cmd, a); err != nil {
					return err
				}
			}
			renderReviews(a.out, a.store.Reviews(), a.session.UserID())
			if a.store.HasMoreReviews() {
				fmt.Fprintln(a.out, "\n(more reviews: use --all)")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "load every page")
	return cmd
}

func newReviewsAddCmd(a *app) *cobra.Command {
	var in client.ReviewRequest

	cmd := &cobra.Command{
		Use:   "add FIELD_ID",
		Short: "Review a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.SelectField(cmd.Context(), args[0]); err != nil {
				return err
			}
			rv, err := a.store.SubmitReview(cmd.Context(), in)
			if err != nil {
				return err
			}

			f, _ := a.store.Selected()
			fmt.Fprintf(a.out, "Posted review %s. %s is now rated %.1f from %d reviews.\n",
				rv.ID, f.Name, f.Rating.Average, f.ReviewCount)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&in.Rating, "rating", 0, "stars, 1 to 5")
	flags.StringVar(&in.Content, "content", "", "review text")
	flags.StringVar(&in.GrassType, "grass", "", "grass type you played on: AG, FG, MG or TF")
	flags.StringSliceVar(&in.GrassConditions, "condition", nil, "grass condition tag, repeatable (HARD, SOFT, LONG, SHORT, BUMPY, WELL_MAINTAINED, GOOD_DRAINAGE, SLIPPERY)")
	flags.StringVar(&in.RecommendedShoe, "shoe", "", "recommended shoe: AG, FG, MG or TF")
	flags.StringVar(&in.ShoeLink, "shoe-link", "", "link to the recommended shoe")
	return cmd
}

func newReviewsEditCmd(a *app) *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "edit REVIEW_ID",
		Short: "Change the text of your review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rv, err := a.store.EditReview(cmd.Context(), args[0], content)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated review %s.\n", rv.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new review text")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newReviewsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete REVIEW_ID",
		Short: "Delete your review and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteReview(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted review %s.\n", args[0])
			return nil
		},
	}
}
