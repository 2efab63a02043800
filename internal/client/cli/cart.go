package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/storefront/internal/client/cart"
	"github.com/dmitrijs2005/storefront/internal/client/models"
)

// Add prompts for a product and adds one unit of it to the cart.
func (a *App) Add(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Product id", a.out)
	if err != nil {
		return err
	}
	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	rawPrice, err := getSimpleText(a.reader, "Price (e.g. 19.99)", a.out)
	if err != nil {
		return err
	}
	price, err := parsePrice(rawPrice)
	if err != nil {
		return err
	}
	lines, err := GetMetadata(a.reader, a.out)
	if err != nil {
		return err
	}
	md, err := models.MetadataFromString(lines)
	if err != nil {
		return err
	}

	item := models.CartItem{ProductID: id, Title: title, Price: price, Metadata: md}
	if err := a.cart.AddItem(ctx, item); err != nil {
		return err
	}
	a.printf("Added %s\n", id)
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: remove <id>", errUsage)
	}
	return a.cart.RemoveItem(ctx, args[0])
}

func (a *App) Qty(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: qty <id> <n>", errUsage)
	}
	n, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	return a.cart.UpdateQuantity(ctx, args[0], n)
}

// List prints the cart. Degraded lines are marked with '*'.
func (a *App) List(ctx context.Context) error {
	items := a.cart.Items()
	if len(items) == 0 {
		a.printf("Cart is empty (%s)\n", a.cart.Mode())
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range items {
		mark := ""
		if a.cart.IsDegraded(it.ProductID) {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", mark, it.ProductID, it.Title, it.Quantity,
			models.FormatPrice(it.Price), models.FormatPrice(it.Subtotal()))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	a.printf("Total: %s (%s)\n", models.FormatPrice(a.cart.Total()), a.cart.Mode())
	if n := len(a.cart.Degraded()); n > 0 || a.cart.PendingClear() {
		a.printf("* not yet saved to the store; run 'sync' to retry\n")
	}
	return nil
}

func (a *App) Clear(ctx context.Context) error {
	a.cart.Clear(ctx)
	a.printf("Cart cleared\n")
	return nil
}

// Merge reruns the anonymous cart merge. It is a no-op once the merge has
// run for the current session.
func (a *App) Merge(ctx context.Context) error {
	if a.cart.Mode() != cart.ModeAuthenticated {
		return fmt.Errorf("merge needs an online session (cart is %s)", a.cart.Mode())
	}
	a.cart.MergeAnonymousCart(ctx)
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if a.cart.Mode() != cart.ModeAuthenticated {
		return fmt.Errorf("sync needs an online session (cart is %s)", a.cart.Mode())
	}
	if err := a.cart.Sync(ctx); err != nil {
		return err
	}
	a.printf("Cart is in sync\n")
	return nil
}
