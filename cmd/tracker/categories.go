package main

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"media-tracker/internal/pipeline"
)

func newCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the category mapping in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats, err := loadCategories(viper.GetString("category_file"))
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Category", "Keywords"})
			for i, c := range cats {
				t.AppendRow(table.Row{i + 1, c.Label, strings.Join(c.Keywords, ", ")})
			}
			t.AppendFooter(table.Row{"", "default", pipeline.DefaultCategory})
			t.Render()
			return nil
		},
	}
}
