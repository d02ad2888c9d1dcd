package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/utafrali/storefront/services/cart/internal/catalog"
	"github.com/utafrali/storefront/services/cart/internal/pricing"
	"github.com/utafrali/storefront/services/cart/internal/service"
)

func printCart(w io.Writer, view *service.CartView) {
	if len(view.Items) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tCOLOR\tSIZE\tQTY\tPRICE\tTOTAL")
	for _, it := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			it.Name, it.ColorName, it.SizeLabel, it.Quantity,
			pricing.Format(it.UnitPrice), pricing.Format(it.LineTotal))
	}
	tw.Flush()

	s := view.Summary
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Items:     %d\n", s.ItemCount)
	fmt.Fprintf(w, "Subtotal:  %s\n", pricing.Format(s.Subtotal))
	fmt.Fprintf(w, "GST:       %s\n", pricing.Format(s.Tax))
	if s.FreeShipping {
		fmt.Fprintln(w, "Shipping:  free")
	} else {
		fmt.Fprintf(w, "Shipping:  %s (add %s for free shipping)\n",
			pricing.Format(s.Shipping), pricing.Format(s.FreeShippingRemaining))
	}
	fmt.Fprintf(w, "Total:     %s\n", pricing.Format(s.GrandTotal))
}

func printProducts(w io.Writer, products []catalog.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCOLORS\tSIZES")
	for _, p := range products {
		colors := make([]string, len(p.Colors))
		for i, c := range p.Colors {
			colors[i] = c.Name
		}
		sizes := make([]string, len(p.Sizes))
		for i, s := range p.Sizes {
			sizes[i] = s.Label
		}
		name := p.Name
		if !p.IsActive() {
			name += " (unavailable)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, name, pricing.Format(p.RetailPrice),
			strings.Join(colors, ", "), strings.Join(sizes, ", "))
	}
	tw.Flush()
}
