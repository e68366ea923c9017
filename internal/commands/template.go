package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTemplateCommand() *cobra.Command {
	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Manage stored mapping templates",
	}
	templateCmd.AddCommand(newTemplateListCommand())
	return templateCmd
}

func newTemplateListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored mapping templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, done, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer done()

			templates, err := rt.store.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				fmt.Println("No mapping templates stored yet.")
				return nil
			}
			for _, tmpl := range templates {
				fmt.Printf("%-16s %-32s used %3d  last %s\n",
					tmpl.Fingerprint, tmpl.Name, tmpl.UseCount,
					tmpl.LastUsedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}
