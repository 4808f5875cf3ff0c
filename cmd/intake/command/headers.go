package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidepool-org/intake/intake"
	"github.com/tidepool-org/intake/sheets"
)

var headersCmd = &cobra.Command{
	Use:   "headers",
	Short: "Spreadsheet headers",
	Long:  "The headers command is used to inspect and provision the header row of the intake sheet",
}

var headersShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current header row",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(showHeaders) },
}

var headersSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add missing headers to the sheet",
	Long:  "The sync command provisions the header row the same way a submission does, without appending a row",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(syncHeaders) },
}

func showHeaders(gateway sheets.Gateway) error {
	headers, err := gateway.ReadHeader(context.TODO())
	if err != nil {
		return err
	}

	headers = intake.TrimHeaders(headers)
	for i, header := range headers {
		fmt.Printf("%d %s\n", i+1, header)
	}
	fmt.Printf("Found %v headers\n", len(headers))

	return nil
}

func syncHeaders(service intake.Service) error {
	headers, updated, err := service.SyncHeaders(context.TODO())
	if err != nil {
		return err
	}

	if updated {
		fmt.Printf("Updated header row: %s\n", strings.Join(headers, ", "))
	} else {
		fmt.Println("Header row is up to date")
	}

	return nil
}

func init() {
	headersCmd.AddCommand(headersShowCmd)
	headersCmd.AddCommand(headersSyncCmd)
	rootCmd.AddCommand(headersCmd)
}
