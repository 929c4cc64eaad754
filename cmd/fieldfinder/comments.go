package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Read and write comments on a review",
	}

	list := &cobra.Command{
		Use:   "list REVIEW_ID",
		Short: "Show a review's comment thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.LoadComments(cmd.Context(), args[0]); err != nil {
				return err
			}
			renderThread(a.out, a.store.Thread(args[0]))
			return nil
		},
	}

	var content, replyTo string
	add := &cobra.Command{
		Use:   "add REVIEW_ID",
		Short: "Comment on a review, or reply to a comment with --reply-to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID := args[0]
			if replyTo != "" {
				// The reply depth check needs the current thread.
				if err := a.store.LoadComments(cmd.Context(), reviewID); err != nil {
					return err
				}
			}
			if err := a.store.SubmitComment(cmd.Context(), reviewID, content, replyTo); err != nil {
				return err
			}
			renderThread(a.out, a.store.Thread(reviewID))
			return nil
		},
	}
	add.Flags().StringVar(&content, "content", "", "comment text")
	add.Flags().StringVar(&replyTo, "reply-to", "", "ID of the top-level comment to reply to")
	_ = add.MarkFlagRequired("content")

	var newContent string
	edit := &cobra.Command{
		Use:   "edit REVIEW_ID COMMENT_ID",
		Short: "Change the text of your comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.EditComment(cmd.Context(), args[0], args[1], newContent); err != nil {
				return err
			}
			renderThread(a.out, a.store.Thread(args[0]))
			return nil
		},
	}
	edit.Flags().StringVar(&newContent, "content", "", "new comment text")
	_ = edit.MarkFlagRequired("content")

	del := &cobra.Command{
		Use:   "delete REVIEW_ID COMMENT_ID",
		Short: "Delete your comment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteComment(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted comment %s.\n", args[1])
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, del)
	return cmd
}
