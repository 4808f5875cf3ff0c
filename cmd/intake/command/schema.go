package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidepool-org/intake/intake"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the intake form schema",
	Long:  "The schema command prints the ordered list of fields which are provisioned as sheet columns",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(printSchema) },
}

func printSchema(schema intake.Schema) error {
	for i, field := range schema {
		kind := ""
		switch {
		case field.Upload:
			kind = " (upload)"
		case field.Attachment:
			kind = " (attachment)"
		}
		fmt.Printf("%d %s %q%s\n", i+1, field.Key, field.Label, kind)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
