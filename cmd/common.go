package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"bonelab-mod-manager/archive"
	"bonelab-mod-manager/config"
	"bonelab-mod-manager/history"
	"bonelab-mod-manager/inventory"
	"bonelab-mod-manager/ledger"
	"bonelab-mod-manager/logger"
	"bonelab-mod-manager/modio"
	"bonelab-mod-manager/retry"
	"bonelab-mod-manager/syncer"
)

// app bundles everything a sync command needs after bootstrap.
type app struct {
	cfg       config.Config
	client    *modio.Client
	led       *ledger.Ledger
	items     []inventory.Item
	installer *syncer.Installer
}

// bootstrap handles shared initialization logic for commands: configuration,
// history database, authentication, ledger and the local inventory scan.
// Setup failures are fatal; nothing remote has been mutated at that point.
func bootstrap(ctx context.Context) *app {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}

	history.Init(cfg.DatabasePath)
	logger.Log.Infow("History database initialized", zap.String("path", cfg.DatabasePath))

	if cfg.ModioAPIKey == "" {
		logger.Log.Fatal("Error: MODIO_API_KEY must be set (flag, environment or api key file).")
	}

	client, err := modio.NewClient(cfg.ModioAPIKey, cfg.UserAgent)
	if err != nil {
		logger.Log.Fatalw("Failed to create mod.io client", zap.Error(err))
	}

	authenticate(ctx, client, cfg)

	led, err := ledger.Load(cfg.LedgerPath)
	if err != nil {
		logger.Log.Fatalw("Failed to load subscription ledger", zap.Error(err))
	}

	items, err := inventory.Scan(cfg.ModFolder)
	if err != nil {
		// Malformed local state cannot be trusted for reconciliation.
		logger.Log.Fatalw("Failed to scan mod folder", zap.Error(err))
	}
	logger.Log.Infof("Found %d installed mods in %s", len(items), cfg.ModFolder)

	installer := &syncer.Installer{
		Client:       client,
		Extractor:    archive.Zip{},
		ModDir:       cfg.ModFolder,
		StagingRoot:  cfg.StagingRoot,
		CacheDir:     cfg.CacheDir,
		KeepArchives: cfg.KeepOldArchives,
		Log:          logger.Log,
	}

	return &app{cfg: cfg, client: client, led: led, items: items, installer: installer}
}

// authenticate attaches a bearer token to the client, preferring the
// persisted token and falling back to the interactive email code flow.
// The token is only persisted after a successful exchange.
func authenticate(ctx context.Context, client *modio.Client, cfg config.Config) {
	if data, err := os.ReadFile(cfg.TokenPath); err == nil {
		logger.Log.Info("Using persisted access token")
		client.SetToken(string(data))
	} else {
		if cfg.ModioEmail == "" {
			logger.Log.Fatal("Error: no access token found and MODIO_EMAIL is not set.")
		}
		if err := client.RequestEmailCode(ctx, cfg.ModioEmail); err != nil {
			logger.Log.Fatalw("Failed to request security code", zap.Error(err))
		}
		code, err := prompt("security code: ")
		if err != nil {
			logger.Log.Fatalw("Failed to read security code", zap.Error(err))
		}
		token, err := client.ExchangeEmailCode(ctx, code)
		if err != nil {
			logger.Log.Fatalw("Failed to log in", zap.Error(err))
		}
		if err := os.WriteFile(cfg.TokenPath, []byte(token.AccessToken), 0600); err != nil {
			logger.Log.Warnw("Failed to persist access token", zap.Error(err))
		}
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		logger.Log.Fatalw("Authentication failed", zap.Error(err))
	}
	logger.Log.Infof("Logged in as %s", user.Username)
	fmt.Printf("logged in as %s\n", user.Username)
}

// remoteView fetches the remote state the reconciler diffs against: the
// subscription listing, plus the catalog entries of installed mods the
// listing does not cover (needed so update-all sees unsubscribed installs).
func (a *app) remoteView(ctx context.Context, includeInstalled bool) ([]modio.Mod, error) {
	var remote []modio.Mod
	err := retry.Do(ctx, func() error {
		var listErr error
		remote, listErr = a.client.ListSubscriptions(ctx, syncer.GameID)
		return listErr
	}, modio.IsRateLimited)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if !includeInstalled {
		return remote, nil
	}

	seen := make(map[uint64]struct{}, len(remote))
	for _, mod := range remote {
		seen[mod.ID] = struct{}{}
	}
	for _, item := range a.items {
		modID, ok := item.ModID()
		if !ok {
			continue
		}
		if _, done := seen[modID]; done {
			continue
		}
		var mod modio.Mod
		err := retry.Do(ctx, func() error {
			var getErr error
			mod, getErr = a.client.GetMod(ctx, syncer.GameID, modID)
			return getErr
		}, modio.IsRateLimited)
		if err != nil {
			// Terminal remote error: abandon this item, keep going.
			logger.Log.Warnw("Skipping installed mod, catalog lookup failed",
				zap.String("barcode", item.Barcode()), zap.Error(err))
			continue
		}
		remote = append(remote, mod)
	}
	return remote, nil
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
