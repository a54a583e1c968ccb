package cmd

import (
	"context"
	"errors"
	stdlog "log"
	"os"

	"github.com/MrEthical07/qmsauth"
	"github.com/MrEthical07/qmsauth/broadcast/redisbus"
	"github.com/MrEthical07/qmsauth/notify/termui"
	"github.com/MrEthical07/qmsauth/storage"
	"github.com/MrEthical07/qmsauth/storage/file"
	"github.com/MrEthical07/qmsauth/storage/redisstore"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/pterm/pterm"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

func newLogger() logr.Logger {
	stdr.SetVerbosity(viper.GetInt("verbose"))
	return stdr.New(stdlog.New(os.Stderr, "", stdlog.LstdFlags)).WithName("qmsctl")
}

func clientConfig() qmsauth.Config {
	cfg := qmsauth.DefaultConfig()
	cfg.Transport.BaseURL = viper.GetString("server")
	cfg.Transport.Timeout = viper.GetDuration("timeout")
	cfg.Transport.UserAgent = "qmsctl"
	cfg.Retry.MaxRetries = viper.GetInt("retries")
	// One-shot commands never live long enough to need background refresh.
	cfg.Session.AutoRefreshInterval = 0
	cfg.CrossTab.Disabled = viper.GetString("redis-addr") == ""
	return cfg
}

// openClient builds a client over the configured store. The returned close
// function releases the client and any Redis connection.
func openClient() (*qmsauth.Client, func(), error) {
	log := newLogger()
	cfg := clientConfig()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	for _, w := range cfg.Lint().BySeverity(qmsauth.LintHigh) {
		pterm.Warning.Println(w.Message)
	}

	b := qmsauth.New().
		WithConfig(cfg).
		WithLogger(log).
		WithPresenter(termui.New(os.Stderr))

	var (
		backend storage.Backend
		rdb     redis.UniversalClient
	)
	if addr := viper.GetString("redis-addr"); addr != "" {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		backend = redisstore.New(rdb, viper.GetString("redis-namespace"), 0)
		b = b.WithBroadcaster(redisbus.New(rdb, "", log.WithName("redisbus")))
	} else {
		var (
			fb  *file.Backend
			err error
		)
		if path := viper.GetString("credentials"); path != "" {
			fb, err = file.New(path)
		} else {
			fb, err = file.NewDefault()
		}
		if err != nil {
			return nil, nil, err
		}
		backend = fb
	}

	client, err := b.WithStorage(backend).Build()
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, nil, err
	}
	closeFn := func() {
		_ = client.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return client, closeFn, nil
}

// restore loads the stored session. An unusable stored session is reported
// as a warning; the caller continues signed out.
func restore(ctx context.Context, client *qmsauth.Client) (qmsauth.Session, error) {
	s, err := client.Initialize(ctx)
	if errors.Is(err, qmsauth.ErrSessionNotRestored) {
		pterm.Warning.Println("stored session expired; log in again")
		return s, nil
	}
	return s, err
}

var errNotLoggedIn = errors.New("not logged in")

func requireSession(ctx context.Context, client *qmsauth.Client) (qmsauth.Session, error) {
	s, err := restore(ctx, client)
	if err != nil {
		return s, err
	}
	if !s.IsAuthenticated {
		return s, errNotLoggedIn
	}
	return s, nil
}
