package cmd

import (
	"strings"
	"time"

	"github.com/MrEthical07/qmsauth/jwt"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeClient, err := openClient()
		if err != nil {
			return err
		}
		defer closeClient()

		s, err := restore(cmd.Context(), client)
		if err != nil {
			return err
		}
		if !s.IsAuthenticated {
			pterm.Info.Println("Not logged in")
			return nil
		}

		pterm.DefaultSection.Println("Session")
		rows := pterm.TableData{
			{"User", s.User.FullName()},
			{"Email", s.User.Email},
			{"Roles", strings.Join(s.Roles.Sorted(), ", ")},
			{"Remember me", yesNo(client.Store().RememberMe(cmd.Context()))},
		}
		if info, err := jwt.Inspect(s.Tokens.Access); err == nil {
			rows = append(rows, []string{"Token expires", info.ExpiresAt.Local().Format(time.RFC1123)})
		}
		if !s.RBACLastUpdated.IsZero() {
			rows = append(rows, []string{"Permissions loaded", s.RBACLastUpdated.Local().Format(time.RFC1123)})
		}
		if s.RBACError != "" {
			rows = append(rows, []string{"Permissions error", s.RBACError})
		}
		return pterm.DefaultTable.WithData(rows).Render()
	},
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
