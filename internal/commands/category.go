package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

func newCategoryCommand() *cobra.Command {
	categoryCmd := &cobra.Command{
		Use:   "category",
		Short: "Manage the category catalog",
	}
	categoryCmd.AddCommand(newCategoryListCommand())
	categoryCmd.AddCommand(newCategoryAddCommand())
	return categoryCmd
}

func newCategoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			cats, err := rt.store.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Println("No categories defined yet. Add one with `bankfeed category add`.")
				return nil
			}
			for _, cat := range cats {
				fmt.Printf("%-20s %s\n", cat.ID, cat.Name)
			}
			return nil
		},
	}
}

func newCategoryAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Add a category to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			cat := model.Category{ID: args[0], Name: args[1]}
			if err := rt.store.AddCategory(cmd.Context(), cat); err != nil {
				return err
			}
			fmt.Printf("Added category %s (%s)\n", cat.ID, cat.Name)
			return nil
		},
	}
}
