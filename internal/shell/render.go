package shell

import (
	"fmt"
	"text/tabwriter"

	"techworld_client/internal/utils"
)

func (s *Shell) renderProducts() {
	list := s.Catalog.Filtered()
	if q := s.Catalog.Query(); q != "" {
		fmt.Fprintf(s.Out, "search: %q\n", q)
	}
	if len(list) == 0 {
		fmt.Fprintln(s.Out, "No products found.")
		return
	}
	tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
	for i, p := range list {
		fmt.Fprintf(tw, "%d.\t%s\t%s\n", i+1, p.Name, utils.FormatPrice(p.Price))
	}
	tw.Flush()
}

func (s *Shell) renderDetail() {
	p, ok := s.Detail.Product()
	if !ok {
		return
	}
	fmt.Fprintf(s.Out, "\n== %s ==\n%s\n", p.Name, utils.FormatPrice(p.Price))
	if p.Description != "" {
		fmt.Fprintf(s.Out, "\n%s\n", p.Description)
	}

	fmt.Fprintln(s.Out, "\nSpecifications")
	rows := s.Detail.SpecRows()
	if !p.HasKeySpecs() || len(rows) == 0 {
		fmt.Fprintln(s.Out, "  No detailed specifications.")
	} else {
		tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
		for _, r := range rows {
			fmt.Fprintf(tw, "  %s\t%s\n", r.Label, r.Value)
		}
		tw.Flush()
	}
	fmt.Fprintln(s.Out, "\n(add, share, back)")
}

func (s *Shell) renderCart() {
	lines := s.Cart.Lines()
	fmt.Fprintln(s.Out, "\n== Cart ==")
	if len(lines) == 0 {
		fmt.Fprintln(s.Out, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
	for i, l := range lines {
		fmt.Fprintf(tw, "%d.\t%s\t%s\tx%d\n", i+1, l.Name, utils.FormatPrice(l.Price), l.Quantity)
	}
	tw.Flush()
	fmt.Fprintf(s.Out, "Total: %s\n(inc|dec|rm <n>, checkout, back)\n", utils.FormatVND(s.Cart.Total()))
}
