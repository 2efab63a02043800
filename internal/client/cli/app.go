package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/storefront/internal/client/cart"
	"github.com/dmitrijs2005/storefront/internal/client/client"
	"github.com/dmitrijs2005/storefront/internal/client/config"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/session"
	"github.com/dmitrijs2005/storefront/internal/client/validity"
	"github.com/dmitrijs2005/storefront/internal/clock"
	"github.com/dmitrijs2005/storefront/internal/identity"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/remote/repomanager"
)

// pingTimeout bounds one probe of the remote store.
const pingTimeout = 3 * time.Second

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// sessionService is the part of session.Machine the shell drives.
type sessionService interface {
	SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error)
	SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error)
	SignOut(ctx context.Context) error
	EnsureFresh(ctx context.Context)
	Snapshot() session.Snapshot
}

// cartService is the part of cart.Reconciler the shell drives.
type cartService interface {
	AddItem(ctx context.Context, item models.CartItem) error
	RemoveItem(ctx context.Context, productID string) error
	UpdateQuantity(ctx context.Context, productID string, qty int) error
	Clear(ctx context.Context)
	MergeAnonymousCart(ctx context.Context)
	Sync(ctx context.Context) error
	Items() []models.CartItem
	Total() int64
	IsDegraded(productID string) bool
	Degraded() []string
	PendingClear() bool
	Mode() cart.Mode
}

type App struct {
	config  *config.Config
	log     logging.Logger
	session sessionService
	cart    cartService
	ping    func(ctx context.Context) error
	reader  *bufio.Reader
	out     io.Writer

	mu   sync.Mutex
	mode Mode

	closers []func()
}

// NewApp opens the stores and starts the session machine and the cart
// reconciler. The remote store is opened lazily, so the shell starts even
// when it is unreachable.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, c.LogFormat, c.LogLevel)

	local, closeLocal, err := client.OpenLocalStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	db, err := sql.Open("pgx", c.RemoteDSN)
	if err != nil {
		_ = closeLocal()
		return nil, fmt.Errorf("open remote store: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	provider := identity.NewProvider(db, repos, local, identity.Config{
		Clock:           clock.Real(),
		Logger:          logger,
		Secret:          []byte(c.JWTSecret),
		AccessTokenTTL:  c.AccessTokenTTL,
		RefreshTokenTTL: c.RefreshTokenTTL,
	})
	machine := session.NewMachine(provider, repos.Profiles(db), repos.Roles(db), local, session.Config{
		Clock:          clock.Real(),
		Logger:         logger,
		DebounceWindow: c.DebounceWindow,
		StableTimeout:  c.StableTimeout,
		CacheTTL:       validity.DefaultTTL,
	})
	reconciler := cart.NewReconciler(local, repos.Carts(db), logger)

	a := &App{
		config:  c,
		log:     logger,
		session: machine,
		cart:    reconciler,
		ping:    db.PingContext,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		mode:    ModeOnline,
	}
	a.closers = []func(){
		func() { _ = closeLocal() },
		func() { _ = db.Close() },
		provider.Close,
		machine.Dispose,
		reconciler.Dispose,
	}

	if err := reconciler.Init(ctx, machine); err != nil {
		a.Close()
		return nil, err
	}
	if err := machine.Init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases everything NewApp opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Run starts the online watcher and blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.printf("Welcome to the storefront shell (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) isLoggedIn() bool {
	return a.session.Snapshot().IsAuthenticated
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// setMode records mode and reports whether it changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	return true
}

func (a *App) getStatus() string {
	snap := a.session.Snapshot()
	s := string(a.currentMode())
	if snap.IsAuthenticated {
		s = snap.Email + " " + s
	}
	if snap.IsLoading {
		s += " loading"
	}
	return fmt.Sprintf("(%s)", s)
}

// StartOnlineStatusWatcher probes the remote store every interval until ctx is
// done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// checkOnline runs one probe. Coming back online with a degraded cart
// triggers reconciliation.
func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.ping(pctx)
	cancel()

	if err != nil {
		if a.setMode(ModeOffline) {
			a.log.Warn(ctx, "remote store unreachable", "err", err)
		}
		return
	}
	if !a.setMode(ModeOnline) {
		return
	}
	a.log.Info(ctx, "remote store reachable again")

	if a.cart.Mode() == cart.ModeOffline {
		a.printf("\nThe store is reachable again. Log in to upload your offline cart changes.\n")
		return
	}
	if len(a.cart.Degraded()) > 0 || a.cart.PendingClear() {
		if err := a.cart.Sync(ctx); err != nil {
			a.log.Warn(ctx, "cart reconciliation failed", "err", err)
		}
	}
}
