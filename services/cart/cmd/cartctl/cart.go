package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront/services/cart/internal/domain"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

func lineKey(args []string) domain.Key {
	return domain.Key{ProductID: args[0], ColorName: args[1], SizeLabel: args[2]}
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart with totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				view, err := s.carts.GetCart(ctx, c.userID)
				if err != nil {
					return err
				}
				printCart(c.out, view)
				return nil
			})
		},
	}
}

func (c *cli) addCmd() *cobra.Command {
	var (
		qty   int
		price string
	)
	cmd := &cobra.Command{
		Use:   "add <product-id> <color> <size>",
		Short: "Add a product selection to the cart",
		Long:  "Add a product selection to the cart. The catalog retail price is used unless --price is given.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				p, err := s.catalog.Product(ctx, args[0])
				if err != nil {
					return err
				}
				if err := p.CheckSelection(args[1], args[2]); err != nil {
					return err
				}
				view, err := s.carts.AddItem(ctx, c.userID, service.AddItemInput{
					ProductID: args[0],
					ColorName: args[1],
					SizeLabel: args[2],
					UnitPrice: price,
					Quantity:  qty,
				})
				if err != nil {
					return err
				}
				printCart(c.out, view)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&qty, "qty", "q", 1, "quantity to add")
	cmd.Flags().StringVar(&price, "price", "", "unit price override")
	return cmd
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id> <color> <size>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				view, err := s.carts.RemoveItem(ctx, c.userID, lineKey(args))
				if err != nil {
					return err
				}
				printCart(c.out, view)
				return nil
			})
		},
	}
}

func (c *cli) setQtyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-qty <product-id> <color> <size> <quantity>",
		Short: "Set the quantity of a line; zero or less removes it",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("quantity %q is not a whole number", args[3])
			}
			return c.run(cmd, func(ctx context.Context, s *session) error {
				view, err := s.carts.UpdateQuantity(ctx, c.userID, lineKey(args), service.UpdateQuantityInput{Quantity: &qty})
				if err != nil {
					return err
				}
				printCart(c.out, view)
				return nil
			})
		},
	}
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *session) error {
				if err := s.carts.ClearCart(ctx, c.userID); err != nil {
					return err
				}
				fmt.Fprintln(c.out, "cart cleared")
				return nil
			})
		},
	}
}

func (c *cli) productsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(_ context.Context, s *session) error {
				printProducts(c.out, s.catalog.List())
				return nil
			})
		},
	}
}
