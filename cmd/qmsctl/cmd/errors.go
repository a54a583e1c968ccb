package cmd

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var errorsFlags struct {
	json bool
}

var errorsCmd = &cobra.Command{
	Use:   "errors [path...]",
	Short: "Restore the session, request paths and show the classified errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeClient, err := openClient()
		if err != nil {
			return err
		}
		defer closeClient()

		if _, err := restore(cmd.Context(), client); err != nil {
			return err
		}
		for _, path := range args {
			_ = client.HTTP().JSON(cmd.Context(), http.MethodGet, path, nil, nil)
		}

		log := client.ErrorLog()
		if errorsFlags.json {
			return log.Export(os.Stdout, time.Now())
		}
		entries := log.Entries()
		if len(entries) == 0 {
			pterm.Success.Println("No errors recorded")
			return nil
		}
		rows := pterm.TableData{{"KIND", "STATUS", "METHOD", "URL", "RETRY", "MESSAGE"}}
		for _, e := range entries {
			d := e.Descriptor
			rows = append(rows, []string{
				string(d.Kind),
				strconv.Itoa(d.StatusCode),
				d.Method,
				d.URL,
				strconv.Itoa(e.RetryCount),
				d.UserMessage,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	errorsCmd.Flags().BoolVar(&errorsFlags.json, "json", false, "export the log as JSON")
}
