// Command cartctl is a terminal storefront over a local SQLite slot store.
// It drives the same cart engine as the HTTP service, so a cart saved here
// survives restarts exactly as it would in the browser.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/notify"
	"github.com/utafrali/storefront/services/cart/internal/pricing"
	"github.com/utafrali/storefront/services/cart/internal/repository/sqlite"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

// cli holds the persistent flags shared by every subcommand.
type cli struct {
	dbPath      string
	catalogPath string
	userID      string
	logLevel    string

	out io.Writer
}

// session is an open slot store plus the services built on it.
type session struct {
	carts     *service.CartService
	wishlists *service.WishlistService
	catalog   *catalog.Static
	logger    *slog.Logger
	close     func(context.Context) error
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "cartctl",
		Short: "Manage a storefront cart from the terminal",
		Long: `cartctl keeps a cart and wishlist in a local SQLite file.

Lines are identified by product, color and size. Adding the same
selection twice merges the quantities; setting a quantity of zero
removes the line.`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVar(&c.dbPath, "db", "cart.db", "SQLite file holding the cart")
	root.PersistentFlags().StringVar(&c.catalogPath, "catalog", "services/cart/configs/catalog.yaml", "product catalog YAML")
	root.PersistentFlags().StringVarP(&c.userID, "user", "u", "local", "shopper identity")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "error", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.showCmd(),
		c.addCmd(),
		c.removeCmd(),
		c.setQtyCmd(),
		c.clearCmd(),
		c.productsCmd(),
		c.wishlistCmd(),
	)
	return root
}

// open builds a session. Notifications are printed as they happen.
func (c *cli) open(ctx context.Context) (*session, error) {
	cat, err := catalog.LoadStatic(c.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	slot, err := sqlite.Open(ctx, c.dbPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewText(c.logLevel, os.Stderr)
	printer := notify.NotifierFunc(func(_ context.Context, n notify.Notification) {
		fmt.Fprintf(c.out, "* %s: %s\n", n.Title, n.Description)
	})

	carts := service.NewCartService(slot, cat, printer, nil, log, service.Options{
		Shipping: pricing.DefaultShippingPolicy(),
	})
	return &session{
		carts:     carts,
		wishlists: service.NewWishlistService(slot, cat, printer, log, 0),
		catalog:   cat,
		logger:    log,
		close: func(ctx context.Context) error {
			if err := carts.Close(ctx); err != nil {
				log.WarnContext(ctx, "failed to flush cart", slog.String("error", err.Error()))
			}
			if err := slot.Close(); err != nil {
				return fmt.Errorf("close %s: %w", c.dbPath, err)
			}
			return nil
		},
	}, nil
}

// run opens a session for the duration of fn.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { err = s.finish(ctx, err) }()
	return fn(ctx, s)
}

// finish closes the session. A close failure is logged and returned unless
// the command already failed.
func (s *session) finish(ctx context.Context, err error) error {
	cerr := s.close(ctx)
	if cerr == nil {
		return err
	}
	s.logger.ErrorContext(ctx, "failed to close session", slog.String("error", cerr.Error()))
	if err != nil {
		return err
	}
	return cerr
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
