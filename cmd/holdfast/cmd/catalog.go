package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newCatalogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show the accepted brokers, categories and markets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg.Catalog
			return a.render(cmd, c, func(w io.Writer) {
				fmt.Fprintf(w, "brokers:\t%s\n", strings.Join(c.Brokers, ", "))
				fmt.Fprintf(w, "categories:\t%s (default %s)\n", strings.Join(c.Categories, ", "), c.DefaultCategory)
				fmt.Fprintf(w, "bibliography:\t%s\n", strings.Join(c.BibliographyCategories, ", "))
				for _, m := range c.Markets {
					suffix := m.Suffix
					if suffix == "" {
						suffix = "none"
					}
					fmt.Fprintf(w, "market %s:\t%s, suffix %s\n", m.Code, m.Name, suffix)
				}
			})
		},
	}
}
