package devserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Logger matches the leveled methods of glog loggers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server is a development implementation of the storefront auth API.
type Server struct {
	cfg    Config
	db     *bun.DB
	repo   *Repository
	tokens *TokenService
	logger Logger
	now    func() time.Time
	app    *fiber.App
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects the clock used for token and cookie lifetimes.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDB uses an already opened database instead of Config.DSN.
func WithDB(db *bun.DB) Option {
	return func(s *Server) {
		if db != nil {
			s.db = db
		}
	}
}

// New opens the database, migrates it, seeds the administrator account when
// configured and registers the routes.
func New(ctx context.Context, cfg Config, opts ...Option) (*Server, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return nil, withSource(ErrInvalidConfig, nil, map[string]any{
			"field": "signing_key",
		})
	}

	s := &Server{
		cfg:    cfg,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.db == nil {
		db, err := OpenDB(cfg.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
		}
		s.db = db
	}

	s.repo = NewRepository(s.db)
	if err := s.repo.Migrate(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to migrate database")
	}

	s.tokens = NewTokenService([]byte(cfg.SigningKey), cfg.Issuer, cfg.TokenTTL)

	if err := s.seedAdmin(ctx); err != nil {
		return nil, err
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "storefront-authd",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.routes()

	return s, nil
}

// App returns the fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Repository returns the server storage.
func (s *Server) Repository() *Repository {
	return s.repo
}

// Run serves on Config.Addr until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("auth server listening", "addr", s.cfg.Addr)
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

func (s *Server) routes() {
	api := s.app.Group("/api/auth")
	api.Post("/register", s.register)
	api.Post("/login", s.login)
	api.Post("/refresh", s.refresh)
	api.Post("/logout", s.logout)
	api.Get("/me", s.requireBearer, s.me)
}

func (s *Server) seedAdmin(ctx context.Context) error {
	if s.cfg.SeedAdminUsername == "" || s.cfg.SeedAdminPassword == "" {
		return nil
	}

	if _, err := s.repo.AccountByUsername(ctx, s.cfg.SeedAdminUsername); err == nil {
		return nil
	} else if !IsNotFound(err) {
		return err
	}

	hash, err := HashPassword(s.cfg.SeedAdminPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	email := s.cfg.SeedAdminEmail
	if email == "" {
		email = s.cfg.SeedAdminUsername + "@localhost"
	}

	account, err := s.repo.CreateAccount(ctx, &Account{
		Username:     s.cfg.SeedAdminUsername,
		Email:        email,
		Role:         RoleAdministrator,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return err
	}

	s.logger.Info("seeded administrator account", "username", account.Username, "id", account.ID)
	return nil
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(MessageResponse{Message: fiberErr.Message})
		}
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, MessageInternal).
			WithCode(goerrors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	message := richErr.Message
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("auth server error",
			"error", err,
			"path", c.Path(),
		)
		message = MessageInternal
	} else {
		s.logger.Debug("auth request rejected",
			"text_code", richErr.TextCode,
			"path", c.Path(),
		)
	}

	return c.Status(status).JSON(MessageResponse{Message: message})
}

func (s *Server) setRefreshCookie(c *fiber.Ctx, id uuid.UUID, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id.String(),
		Path:     s.cfg.CookiePath,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: "Lax",
	})
}

func (s *Server) deleteRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     s.cfg.CookiePath,
		Expires:  s.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: "Lax",
	})
}

type defLogger struct{}

func (defLogger) Debug(msg string, args ...any) {}

func (defLogger) Info(msg string, args ...any) {
	fmt.Println(append([]any{"[INF] AUTHD " + msg}, args...)...)
}

func (defLogger) Warn(msg string, args ...any) {
	fmt.Println(append([]any{"[WRN] AUTHD " + msg}, args...)...)
}

func (defLogger) Error(msg string, args ...any) {
	fmt.Println(append([]any{"[ERR] AUTHD " + msg}, args...)...)
}
