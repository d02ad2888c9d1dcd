package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

func (c *cli) wishlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Show or edit saved products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				view, err := s.wishlists.GetWishlist(ctx, c.userID)
				if err != nil {
					return err
				}
				printWishlist(ctx, c.out, s.catalog, view)
				return nil
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <product-id>",
			Short: "Save a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, s *session) error {
					if _, err := s.catalog.Product(ctx, args[0]); err != nil {
						return err
					}
					view, err := s.wishlists.AddItem(ctx, c.userID, service.AddWishlistItemInput{ProductID: args[0]})
					if err != nil {
						return err
					}
					printWishlist(ctx, c.out, s.catalog, view)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Forget a saved product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, s *session) error {
					view, err := s.wishlists.RemoveItem(ctx, c.userID, args[0])
					if err != nil {
						return err
					}
					printWishlist(ctx, c.out, s.catalog, view)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget every saved product",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.run(cmd, func(ctx context.Context, s *session) error {
					view, err := s.wishlists.Clear(ctx, c.userID)
					if err != nil {
						return err
					}
					printWishlist(ctx, c.out, s.catalog, view)
					return nil
				})
			},
		},
	)
	return cmd
}

func printWishlist(ctx context.Context, w io.Writer, cat catalog.Catalog, view *service.WishlistView) {
	if len(view.ProductIDs) == 0 {
		fmt.Fprintln(w, "wishlist is empty")
		return
	}
	for _, id := range view.ProductIDs {
		fmt.Fprintf(w, "  %s  %s\n", id, catalog.DisplayName(ctx, cat, id))
	}
}
