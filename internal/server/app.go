// Package server wires the bulletin server together: it validates the
// startup directory, unlocks the server key pair, opens the packet store,
// builds the services and runs the gRPC listener next to the lifecycle
// monitors until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
	"github.com/dmitrijs2005/bulletinkeeper/internal/netx"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/access"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/config"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/download"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/lifecycle"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/mirror"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/news"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/packetdb"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/services"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/store"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/summary"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/upload"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/bulletinkeeper/internal/server/grpc"
)

// Process exit codes.
const (
	ExitCryptoInit            = 1
	ExitKeyPairMissing        = 2
	ExitUnexpected            = 3
	ExitUnexpectedStartupFile = 4
	ExitStartupDirNotEmpty    = 5
	ExitNoListeners           = 20
	ExitInvalidAddress        = 23
	ExitInvalidPassword       = 73
)

// ExitError is a fatal startup failure carrying the process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit %d: %v", e.Code, e.Err) }

func (e *ExitError) Unwrap() error { return e.Err }

func exitf(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// PassphraseFunc supplies the key pair passphrase when none is configured.
type PassphraseFunc func() ([]byte, error)

var logOutput io.Writer = os.Stdout

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        packetdb.Database
	lifecycle *lifecycle.Lifecycle
	gate      *access.Gate
	publisher *mirror.Publisher
	clients   *services.ClientService
	admin     *services.AdminService
}

func NewApp(c *config.Config, passphrase PassphraseFunc) (*App, error) {

	logger := logging.NewJSONLogger(logOutput, slog.LevelInfo)
	ctx := context.Background()

	startupDir := c.ResolvedStartupDir()
	for _, dir := range []string{c.DataDir, startupDir, c.DataFile("adminTriggers")} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, exitf(ExitUnexpected, "create %s: %w", dir, err)
		}
	}

	if err := checkStartupDir(startupDir); err != nil {
		return nil, err
	}

	security, err := unlockKeyPair(c, passphrase)
	if err != nil {
		return nil, err
	}
	code, _ := cryptox.PublicCode(security.AccountID())
	logger.Info(ctx, "Server key pair loaded", "public_code", code)

	compliance, err := news.LoadCompliance(c.StartupFile(config.ComplianceFile))
	if err != nil {
		return nil, exitf(ExitUnexpected, "%w", err)
	}

	db, err := openDatabase(ctx, c, logger)
	if err != nil {
		return nil, exitf(ExitUnexpected, "%w", err)
	}

	app, err := build(ctx, c, logger, db, security, compliance)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if c.SecureMode {
		if err := deleteStartupFiles(startupDir); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info(ctx, "Startup files deleted", "dir", startupDir)
	}

	if c.EndpointAddrGRPC == "" {
		_ = db.Close()
		return nil, exitf(ExitNoListeners, "no listeners enabled")
	}
	if err := netx.ValidateListenAddress(c.EndpointAddrGRPC); err != nil {
		_ = db.Close()
		return nil, &ExitError{Code: ExitInvalidAddress, Err: err}
	}

	return app, nil
}

func build(ctx context.Context, c *config.Config, logger logging.Logger, db packetdb.Database, security *cryptox.Security, compliance string) (*App, error) {
	st, err := store.New(db, security, c.DataFile("interim"), logger)
	if err != nil {
		return nil, exitf(ExitUnexpected, "store init: %w", err)
	}

	gate := access.NewGate(c.DataFile("clientsWhoCanUpload.txt"), c.MaxFailedUploadRequests, logger)
	files := services.ConfigFiles{
		Banned:       c.StartupFile(config.BannedFile),
		TestAccounts: c.StartupFile(config.TestAccountsFile),
		MagicWords:   c.StartupFile(config.MagicWordsFile),
	}
	board := news.NewBoard(c.DataFile("news"), logger)
	admin := services.NewAdminService(gate, board, files, logger)
	if err := admin.ReloadConfiguration(ctx); err != nil {
		return nil, exitf(ExitUnexpected, "configuration: %w", err)
	}
	logger.Info(ctx, "Access lists loaded", "test_accounts", gate.NumberOfTestAccounts())

	life := lifecycle.New(filepath.Join(c.DataFile("adminTriggers"), "exit"), logger)
	finalizer := upload.NewFinalizer(st, logger)

	clients := services.NewClientService(services.Deps{
		Gate:       gate,
		Lifecycle:  life,
		Store:      st,
		Uploads:    upload.NewAssembler(gate, life, st, finalizer, logger),
		Downloads:  download.NewServer(gate, life, st, security, logger),
		Summaries:  summary.NewCollector(st, logger),
		News:       board,
		Compliance: compliance,
		Security:   security,
	}, logger)

	publisher := mirror.NewPublisher(mirror.Config{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
	}, st, logger)

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		lifecycle: life,
		gate:      gate,
		publisher: publisher,
		clients:   clients,
		admin:     admin,
	}, nil
}

func openDatabase(ctx context.Context, c *config.Config, logger logging.Logger) (packetdb.Database, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "No database DSN configured, packets are kept in memory")
		return packetdb.NewMemoryDatabase(), nil
	}
	db, err := packetdb.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return db, nil
}

// checkStartupDir refuses to start when the startup directory holds anything
// besides the known startup files.
func checkStartupDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return exitf(ExitUnexpected, "read startup dir: %w", err)
	}
	known := config.StartupFiles()
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(known, e.Name()) {
			return exitf(ExitUnexpectedStartupFile, "unexpected entry in startup dir: %s", e.Name())
		}
	}
	return nil
}

func deleteStartupFiles(dir string) error {
	for _, name := range config.StartupFiles() {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return exitf(ExitStartupDirNotEmpty, "delete %s: %w", name, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return exitf(ExitUnexpected, "read startup dir: %w", err)
	}
	if len(entries) != 0 {
		return exitf(ExitStartupDirNotEmpty, "files still exist in %s", dir)
	}
	return nil
}

func unlockKeyPair(c *config.Config, passphrase PassphraseFunc) (*cryptox.Security, error) {
	f, err := os.Open(c.StartupFile(config.KeyPairFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, exitf(ExitKeyPairMissing, "key pair file not found: %s", c.StartupFile(config.KeyPairFile))
	}
	if err != nil {
		return nil, exitf(ExitUnexpected, "open key pair: %w", err)
	}
	defer f.Close()

	var pw []byte
	if c.Passphrase != "" {
		pw = []byte(c.Passphrase)
	} else {
		if passphrase == nil {
			return nil, exitf(ExitInvalidPassword, "no passphrase available")
		}
		if pw, err = passphrase(); err != nil {
			return nil, exitf(ExitUnexpected, "read passphrase: %w", err)
		}
	}
	defer common.WipeByteArray(pw)

	security, err := cryptox.ReadKeyPair(f, pw)
	switch {
	case errors.Is(err, common.ErrInvalidPassphrase):
		return nil, &ExitError{Code: ExitInvalidPassword, Err: err}
	case err != nil:
		return nil, &ExitError{Code: ExitCryptoInit, Err: err}
	}
	return security, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a signal arrives, the operator's exit trigger is honoured
// or a component fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	s, err := gs.NewgGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.clients, app.admin, app.config.SecretKey)
	if err != nil {
		return err
	}

	tasks := app.lifecycle.Tasks(lifecycle.Intervals{
		ShutdownPoll:   app.config.ShutdownPollInterval,
		UploadDecay:    app.config.UploadDecayInterval,
		SyncRequest:    app.config.SyncInterval,
		BackgroundTick: app.config.BackgroundInterval,
	}, app.gate.DecayFailedUploadRequests, app.publisher.Sync)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Run(gctx)
	})
	g.Go(func() error {
		return app.lifecycle.Run(gctx, tasks...)
	})

	err = g.Wait()
	if errors.Is(err, common.ErrShutdownRequested) {
		app.logger.Info(ctx, "Server exited on operator request")
		return nil
	}
	return err
}
