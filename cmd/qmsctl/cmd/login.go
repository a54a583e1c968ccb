package cmd

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/qmsauth"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var loginFlags struct {
	email    string
	username string
	password string
	remember bool
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := qmsauth.Credentials{
			Email:      strings.TrimSpace(loginFlags.email),
			Username:   strings.TrimSpace(loginFlags.username),
			Password:   loginFlags.password,
			RememberMe: loginFlags.remember,
		}
		if creds.Email == "" && creds.Username == "" {
			email, err := pterm.DefaultInteractiveTextInput.Show("Email")
			if err != nil {
				return err
			}
			creds.Email = strings.TrimSpace(email)
		}
		if creds.Password == "" {
			password, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
			if err != nil {
				return err
			}
			creds.Password = password
		}

		client, closeClient, err := openClient()
		if err != nil {
			return err
		}
		defer closeClient()

		s, err := client.Login(cmd.Context(), creds)
		if err != nil {
			if s.Error != "" {
				return fmt.Errorf("%s", s.Error)
			}
			return err
		}

		pterm.Success.Printfln("Logged in as %s", s.User.FullName())
		if s.RBACError != "" {
			pterm.Warning.Printfln("Permissions could not be loaded: %s", s.RBACError)
		} else {
			pterm.Info.Printfln("%d permissions, %d roles", s.Permissions.Len(), s.Roles.Len())
		}
		return nil
	},
}

func init() {
	f := loginCmd.Flags()
	f.StringVar(&loginFlags.email, "email", "", "account email")
	f.StringVar(&loginFlags.username, "username", "", "account username")
	f.StringVar(&loginFlags.password, "password", "", "password (prompted when omitted)")
	f.BoolVar(&loginFlags.remember, "remember", false, "remember this device")
}
