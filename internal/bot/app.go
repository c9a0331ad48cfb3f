// Package bot is the account-management application: command handlers,
// onboarding wiring, and lifecycle glue on top of the core runtime.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/sessionvault/accountbot/core/bootstrap"
	coreconfig "github.com/sessionvault/accountbot/core/config"
	"github.com/sessionvault/accountbot/core/logger"
	coretelegram "github.com/sessionvault/accountbot/core/telegram"
	tghelpers "github.com/sessionvault/accountbot/core/telegram/helpers"
	"github.com/sessionvault/accountbot/core/telegram/router"
	"github.com/sessionvault/accountbot/internal/authclient"
	"github.com/sessionvault/accountbot/internal/domain"
	"github.com/sessionvault/accountbot/internal/onboarding"
	"github.com/sessionvault/accountbot/internal/storage"
	"github.com/sessionvault/accountbot/internal/vault"
	"log/slog"
)

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// App wires storage, the vault, and the onboarding machine to the bot
// runtime.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	accounts *storage.Accounts
	users    *storage.Users
	machine  *onboarding.Machine
	sessions onboarding.Store
}

// New bootstraps infrastructure and builds the application. The dialer
// connects onboarding to the external verification network; pass nil
// for deployments without one (every /add will fail at the dial step).
func New(cfg *Config, dialer authclient.Dialer) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	v, err := vault.New(cfg.Vault.Key)
	if err != nil {
		return nil, fmt.Errorf("bot: vault init: %w", err)
	}
	if cfg.Vault.Key == devVaultKey {
		logger.Vault.Warn("vault",
			slog.String("event", "dev_key"),
			slog.String("status", "warn"),
		)
	}

	if dialer == nil {
		dialer = authclient.Unconfigured()
		logger.FSM.Warn("fsm",
			slog.String("event", "dialer.unconfigured"),
			slog.String("status", "warn"),
		)
	}

	accounts := storage.NewAccounts(res.DB)
	users := storage.NewUsers(res.DB)
	sessions := onboarding.NewMemoryStore()

	machine := onboarding.NewMachine(onboarding.Options{
		Sessions:      sessions,
		Accounts:      accounts,
		Dialer:        dialer,
		Sealer:        v,
		RemoteTimeout: time.Duration(cfg.Onboarding.RemoteTimeoutSeconds) * time.Second,
	})

	return &App{
		cfg:      cfg,
		db:       res.DB,
		accounts: accounts,
		users:    users,
		machine:  machine,
		sessions: sessions,
	}, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	a.registerAdminCommands(reg)
	if err := a.registerCallbacks(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}
	reg.SetTextFallback(func(c tele.Context) error {
		return tghelpers.SendText(c, textUnknown)
	})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(fsmAdapter{machine: a.machine}, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      routes,
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}

// userDirectory adapts the user repository to the helpers.CurrentUser
// service shape.
type userDirectory struct {
	users *storage.Users
}

func (d userDirectory) GetUserByTelegramID(ctx context.Context, tgID int64) (*domain.User, error) {
	return d.users.GetByTelegramID(ctx, tgID)
}
