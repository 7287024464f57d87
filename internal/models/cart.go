package models

import "github.com/shopspring/decimal"

// CartLine is one row of the cart as the client shows it.
type CartLine struct {
	ProductID string              `json:"productId"`
	Name      string              `json:"name"`
	Price     decimal.NullDecimal `json:"price"`
	Quantity  int                 `json:"quantity"`
	Image     string              `json:"image,omitempty"`
}

// Subtotal is price × quantity; a line without a price counts as zero.
func (l CartLine) Subtotal() decimal.Decimal {
	if !l.Price.Valid {
		return decimal.Zero
	}
	return l.Price.Decimal.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartItem is the server representation: the product is populated inline.
type CartItem struct {
	Product  Product `json:"productId"`
	Quantity int     `json:"quantity"`
}

type Cart struct {
	UserID string     `json:"userId,omitempty"`
	Items  []CartItem `json:"items"`
}

func (i CartItem) Line() CartLine {
	return CartLine{
		ProductID: i.Product.ID,
		Name:      i.Product.Name,
		Price:     i.Product.Price,
		Quantity:  i.Quantity,
		Image:     i.Product.Thumbnail(),
	}
}

// Lines flattens the server cart into display lines.
func (c Cart) Lines() []CartLine {
	lines := make([]CartLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, it.Line())
	}
	return lines
}

// Total sums the line subtotals.
func Total(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
