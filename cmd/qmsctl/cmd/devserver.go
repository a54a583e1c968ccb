package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/qmsauth/internal/fakeapi"
	"github.com/MrEthical07/qmsauth/model"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var devServerFlags struct {
	addr      string
	email     string
	password  string
	accessTTL time.Duration
	rotate    bool
}

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Serve an in-memory QMS auth backend for local development",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, err := fakeapi.NewHandler(fakeapi.Config{
			Accounts: []fakeapi.Account{{
				User: model.User{
					ID:        1,
					Email:     devServerFlags.email,
					Username:  "demo",
					FirstName: "Demo",
					LastName:  "QMS",
					IsActive:  true,
				},
				Password: devServerFlags.password,
				RBAC: map[string]any{
					"permissions": []any{"audits.view", "audits.create", "documents.view"},
					"roles":       []any{map[string]any{"code": "auditor"}},
				},
			}},
			AccessTTL:     devServerFlags.accessTTL,
			RotateRefresh: devServerFlags.rotate,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:              devServerFlags.addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()

		pterm.Info.Printfln("dev backend on %s (login %s / %s)", devServerFlags.addr, devServerFlags.email, devServerFlags.password)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	f := devServerCmd.Flags()
	f.StringVar(&devServerFlags.addr, "addr", "127.0.0.1:8000", "listen address")
	f.StringVar(&devServerFlags.email, "email", "demo@qms.local", "demo account email")
	f.StringVar(&devServerFlags.password, "password", "demo", "demo account password")
	f.DurationVar(&devServerFlags.accessTTL, "access-ttl", 5*time.Minute, "access token lifetime")
	f.BoolVar(&devServerFlags.rotate, "rotate-refresh", false, "issue a new refresh token on every refresh")
}
