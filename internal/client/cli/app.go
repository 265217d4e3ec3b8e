package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/rechub/internal/client/client"
	"github.com/dmitrijs2005/rechub/internal/client/config"
	"github.com/dmitrijs2005/rechub/internal/client/services"
	"github.com/dmitrijs2005/rechub/internal/client/session"
	"github.com/dmitrijs2005/rechub/internal/filex"
	"github.com/dmitrijs2005/rechub/internal/logging"
)

type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// pingTimeout bounds each reachability probe.
const pingTimeout = 3 * time.Second

type App struct {
	auth      services.AuthService
	programs  services.ProgramService
	favorites services.FavoriteService
	notes     services.NoteService

	db       *sql.DB
	reader   *bufio.Reader
	out      io.Writer
	readFile func(string) ([]byte, error)
	log      logging.Logger

	mode atomic.Value
}

// NewApp opens the local database, restores the saved session and wires the
// services.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	dir, err := filex.EnsureDataDir(filepath.Dir(c.DatabasePath))
	if err != nil {
		return nil, fmt.Errorf("error preparing data directory: %w", err)
	}
	db, err := client.InitDatabase(ctx, filepath.Join(dir, filepath.Base(c.DatabasePath)))
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	repos := client.NewRepositories(db)

	store := session.NewStore(repos.Metadata)
	if _, err := store.Load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, store)
	caller := services.NewCaller(api, store, log)
	programs := services.NewProgramService(api, caller)

	a := &App{
		auth:      services.NewAuthService(api, store, log),
		programs:  programs,
		favorites: services.NewFavoriteService(programs, repos.Favorites),
		notes:     services.NewNoteService(repos.Notes),
		db:        db,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		readFile:  readUpload,
		log:       log,
	}
	a.mode.Store(ModeOffline)
	return a, nil
}

func readUpload(path string) ([]byte, error) {
	return filex.ReadUpload(path, services.MaxUploadSize)
}

func (a *App) Mode() Mode {
	m, _ := a.mode.Load().(Mode)
	return m
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if old := a.mode.Swap(mode); old != mode {
		a.log.Info(ctx, "connectivity changed", "mode", mode)
	}
}

func (a *App) isLoggedIn() bool {
	return a.auth.Current().Authenticated()
}

func (a *App) status() string {
	sess := a.auth.Current()
	who := session.RoleGuest
	if sess.Authenticated() {
		who = fmt.Sprintf("%s (%s)", sess.Email, sess.EffectiveRole())
	}
	return fmt.Sprintf("%s, %s", who, a.Mode())
}

// Run blocks in the REPL until the user exits or ctx is canceled.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.db.Close(); err != nil {
			a.log.Warn(ctx, "failed to close local database", "error", err)
		}
	}()

	a.probe(ctx)
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, 30*time.Second)

	printlnFn("Welcome to RecHub. Type 'help' for commands.")
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := a.auth.Ping(ctx); err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartOnlineStatusWatcher pings the server every interval and records the
// result in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
