// Command local-jira runs the caching proxy: it loads configuration,
// opens the local store, bootstraps or resumes synchronisation against
// one Jira Cloud tenant, and speaks the line protocol over standard
// input/output to a single attached client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr/funcr"

	"github.com/s-d-m/local-jira/internal/adf"
	"github.com/s-d-m/local-jira/internal/config"
	"github.com/s-d-m/local-jira/internal/credential"
	"github.com/s-d-m/local-jira/internal/logging"
	"github.com/s-d-m/local-jira/internal/protocol"
	"github.com/s-d-m/local-jira/internal/remote"
	"github.com/s-d-m/local-jira/internal/render"
	"github.com/s-d-m/local-jira/internal/store"
	"github.com/s-d-m/local-jira/internal/sync"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "path to the YAML configuration file")
	flag.Parse()

	log := logging.FromLogr(funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, funcr.Options{}))

	if err := run(*configPath, log); err != nil {
		log.Error(err, "local-jira exited with an error")
		os.Exit(1)
	}
}

func run(configPath string, log logging.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	apiToken := cfg.APIToken
	if fromKeyring, err := credential.Get(credential.KeyAPIToken); err == nil && fromKeyring != "" {
		apiToken = fromKeyring
	}
	sessionCookie := cfg.SessionCookie
	if fromKeyring, err := credential.Get(credential.KeySessionCookie); err == nil && fromKeyring != "" {
		sessionCookie = fromKeyring
	}

	st, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	client := remote.NewClient(cfg.JiraBaseURL, cfg.UserEmail, apiToken, sessionCookie, cfg.MaxConcurrentRequests)
	synch := sync.New(st, client, cfg.Projects, log.With("component", "sync"))
	synch.SetMaxAttachmentBytes(cfg.MaxAttachmentBytes)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	keys, err := st.ListIssueKeys(ctx, "")
	if err != nil {
		return fmt.Errorf("checking store emptiness: %w", err)
	}
	if len(keys) == 0 {
		if err := synch.Bootstrap(ctx); err != nil {
			return fmt.Errorf("bootstrapping: %w", err)
		}
	}

	go synch.Run(ctx, time.Duration(cfg.SyncIntervalSeconds)*time.Second)
	defer synch.Stop()

	renderer := render.New(st, adf.Render)
	dispatcher := protocol.New(st, synch, renderer, cfg.Projects, log.With("component", "protocol"))

	return dispatcher.Run(ctx, os.Stdin, os.Stdout)
}
