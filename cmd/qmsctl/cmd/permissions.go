package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var permissionsFlags struct {
	refresh bool
	check   []string
}

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List or check the session's permissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeClient, err := openClient()
		if err != nil {
			return err
		}
		defer closeClient()

		if _, err := requireSession(cmd.Context(), client); err != nil {
			return err
		}
		if permissionsFlags.refresh {
			if err := client.RefreshRBAC(cmd.Context()); err != nil {
				return err
			}
		}
		s := client.Session()

		if len(permissionsFlags.check) > 0 {
			var missing []string
			for _, code := range permissionsFlags.check {
				if !s.HasPermission(code) {
					missing = append(missing, code)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing permissions: %s", strings.Join(missing, ", "))
			}
			pterm.Success.Println("All permissions granted")
			return nil
		}

		resources := make([]string, 0, len(s.PermissionsByResource))
		for r := range s.PermissionsByResource {
			resources = append(resources, r)
		}
		sort.Strings(resources)

		rows := pterm.TableData{{"RESOURCE", "ACTIONS"}}
		for _, r := range resources {
			rows = append(rows, []string{r, strings.Join(s.ResourcePermissions(r), ", ")})
		}
		pterm.DefaultSection.Println("Permissions")
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
		pterm.Info.Printfln("Roles: %s", strings.Join(s.Roles.Sorted(), ", "))
		return nil
	},
}

func init() {
	permissionsCmd.Flags().BoolVar(&permissionsFlags.refresh, "refresh", false, "ignore the cache and fetch from the backend")
	permissionsCmd.Flags().StringSliceVar(&permissionsFlags.check, "check", nil, "fail unless every listed code is granted")
}
