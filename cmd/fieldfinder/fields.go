package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/fieldfinder/internal/client"
)

func newFieldsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List approved fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.LoadFields(cmd.Context()); err != nil {
				return err
			}
			return renderFields(a.out, a.store.Fields())
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "search KEYWORD",
		Short: "Find fields by name or address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				if _, err := a.store.SearchRemote(cmd.Context(), args[0]); err != nil {
					return err
				}
			} else {
				if err := a.store.LoadFields(cmd.Context()); err != nil {
					return err
				}
				a.store.SearchLocal(args[0])
			}

			results := a.store.SearchResults()
			if len(results) == 0 {
				fmt.Fprintln(a.out, "No fields match.")
				return nil
			}
			return renderFields(a.out, results)
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "let the server do the search")
	return cmd
}

func newFieldCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Show or submit a field",
	}
	cmd.AddCommand(newFieldShowCmd(a), newFieldAddCmd(a))
	return cmd
}

func newFieldShowCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "show FIELD_ID",
		Short: "Show a field with its rating, grass conditions and reviews",
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

			f, _ := a.store.Selected()
			renderField(a.out, f, a.store.Histogram())
			fmt.Fprintln(a.out)
			renderReviews(a.out, a.store.Reviews(), a.session.UserID())
			if a.store.HasMoreReviews() {
				fmt.Fprintln(a.out, "\n(more reviews: use --all)")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "load every page of reviews")
	return cmd
}

func newFieldAddCmd(a *app) *cobra.Command {
	var in client.CreateFieldRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a new field for approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.store.CreateField(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Submitted %s (%s), status %s.\n", f.Name, f.ID, f.Status)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&in.Name, "name", "", "field name")
	flags.StringVar(&in.Address, "address", "", "street address")
	flags.Float64Var(&in.Lat, "lat", 0, "latitude")
	flags.Float64Var(&in.Lng, "lng", 0, "longitude")
	flags.StringVar(&in.Image, "image", "", "image URL")
	flags.StringVar(&in.GrassType, "grass", "", "grass type: AG, FG, MG or TF")
	flags.StringVar(&in.ShoeType, "shoe", "", "recommended shoe type: AG, FG, MG or TF")
	return cmd
}

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Review submitted fields (administrators only)",
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List fields waiting for approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.LoadPendingFields(cmd.Context()); err != nil {
				return err
			}
			list := a.store.Pending()
			if len(list) == 0 {
				fmt.Fprintln(a.out, "Nothing waiting for approval.")
				return nil
			}
			return renderPending(a.out, list)
		},
	}

	approve := &cobra.Command{
		Use:   "approve FIELD_ID...",
		Short: "Approve one or more pending fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, id := range args {
				if err := a.store.ApproveField(cmd.Context(), id); err != nil {
					failed++
					continue
				}
				fmt.Fprintf(a.out, "Approved %s.\n", id)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d approvals failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.AddCommand(pending, approve)
	return cmd
}
