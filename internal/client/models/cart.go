package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/storefront/internal/common"
)

var ErrIncorrectMetadata = errors.New("metadata item must be name=value")

// Metadata is a free-form name/value pair attached to a cart item.
type Metadata struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MetadataFromString parses "name=value" items. The value is everything
// after the first '=', so it may itself contain '='. An item without '=' or
// with an empty name is rejected.
func MetadataFromString(s []string) ([]Metadata, error) {
	data := make([]Metadata, len(s))
	for n, item := range s {
		name, value, ok := strings.Cut(item, "=")
		if !ok || name == "" {
			return nil, ErrIncorrectMetadata
		}
		data[n] = Metadata{Name: name, Value: value}
	}
	return data, nil
}

// CartItem is one cart line, keyed by ProductID. Price is in minor currency
// units (cents).
type CartItem struct {
	ProductID string     `json:"product_id"`
	Title     string     `json:"title"`
	Price     int64      `json:"price"`
	Quantity  int        `json:"quantity"`
	Metadata  []Metadata `json:"metadata,omitempty"`
}

// Validate checks the fields a caller supplies. Quantity is owned by the
// reconciler and is not checked here.
func (i CartItem) Validate() error {
	switch {
	case strings.TrimSpace(i.ProductID) == "":
		return fmt.Errorf("%w: product id is empty", common.ErrDataIntegrity)
	case strings.TrimSpace(i.Title) == "":
		return fmt.Errorf("%w: title is empty", common.ErrDataIntegrity)
	case i.Price < 0:
		return fmt.Errorf("%w: negative price %d", common.ErrDataIntegrity, i.Price)
	}
	return nil
}

// Subtotal is Price × Quantity.
func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// FormatPrice renders minor units as a decimal amount, e.g. 1999 -> "19.99".
func FormatPrice(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
