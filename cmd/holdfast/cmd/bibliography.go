package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/spf13/cobra"
)

func newBibliographyCmd(a *app) *cobra.Command {
	bibCmd := &cobra.Command{
		Use:     "bibliography",
		Aliases: []string{"bib"},
		Short:   "Manage the reading list",
	}

	var category string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List reading-list entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.container.BibliographyService.List(a.context(cmd), category)
			if err != nil {
				return err
			}
			return a.render(cmd, items, func(w io.Writer) {
				row(w, "ID", "TITLE", "AUTHOR", "YEAR", "CATEGORY")
				for _, it := range items {
					year := "-"
					if it.Year != nil {
						year = strconv.Itoa(*it.Year)
					}
					row(w, strconv.FormatInt(it.ID, 10), it.Title, it.Author, year, it.Category)
				}
			})
		},
	}
	listCmd.Flags().StringVar(&category, "category", "", "only this category")

	var (
		item domain.BibliographyItem
		year int
	)
	addCmd := &cobra.Command{
		Use:   "add <title> <author>",
		Short: "Add a reading-list entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item.Title, item.Author = args[0], args[1]
			if cmd.Flags().Changed("year") {
				item.Year = &year
			}
			saved, err := a.container.BibliographyService.Add(a.context(cmd), item)
			if err != nil {
				return err
			}
			return a.render(cmd, saved, func(w io.Writer) {
				fmt.Fprintf(w, "added #%d %s\n", saved.ID, saved.Title)
			})
		},
	}
	addCmd.Flags().StringVar(&item.Category, "category", "", "entry category")
	addCmd.Flags().StringVar(&item.Link, "link", "", "where to find it")
	addCmd.Flags().StringVar(&item.Description, "description", "", "short note")
	addCmd.Flags().IntVar(&year, "year", 0, "publication year")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a reading-list entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			if err := a.container.BibliographyService.Delete(a.context(cmd), id); err != nil {
				return err
			}
			return a.render(cmd, map[string]int64{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted #%d\n", id)
			})
		},
	}

	bibCmd.AddCommand(listCmd, addCmd, deleteCmd)
	return bibCmd
}
