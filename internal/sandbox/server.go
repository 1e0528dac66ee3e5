// Package sandbox serves a local stand-in for the Bankin API, shaped like the
// upstream test server, so the collector can be exercised end to end.
package sandbox

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/bankin"
	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

// Server wires the sandbox handlers onto a fiber app.
type Server struct {
	logger *zap.Logger
	fx     Fixtures
	app    *fiber.App
}

// New builds a sandbox server over fx.
func New(logger *zap.Logger, fx Fixtures) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger: logger,
		fx:     fx,
		app:    fiber.New(fiber.Config{DisableStartupMessage: true}),
	}
	s.registerRoutes()
	return s
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) registerRoutes() {
	s.app.Use(recover.New())
	s.app.Use(s.logRequest)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("ok")
	})

	s.app.Post("/login", basicauth.New(basicauth.Config{
		Users: map[string]string{s.fx.ClientID: s.fx.ClientSecret},
		Unauthorized: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnauthorized).JSON(bankin.ErrorResponse{Error: "invalid client credentials"})
		},
	}), s.login)
	s.app.Post("/token", s.token)

	s.app.Get("/accounts", s.requireBearer, s.listAccounts)
	s.app.Get("/accounts/:acc_number/transactions", s.requireBearer, s.listTransactions)
}

// Listen serves on ln until ctx is done.
func (s *Server) Listen(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	s.logger.Info("sandbox.listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("sandbox shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequest(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("sandbox.request",
		zap.String("method", c.Method()),
		zap.String("path", c.OriginalURL()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)))
	return err
}

func (s *Server) login(c *fiber.Ctx) error {
	var req bankin.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(bankin.ErrorResponse{Error: "invalid body"})
	}
	if req.User != s.fx.User || req.Password != s.fx.Password {
		return c.Status(fiber.StatusUnauthorized).JSON(bankin.ErrorResponse{Message: "invalid user or password"})
	}
	return c.JSON(bankin.LoginResponse{RefreshToken: s.fx.RefreshToken})
}

func (s *Server) token(c *fiber.Ctx) error {
	if c.FormValue("grant_type") != "refresh_token" {
		return c.Status(fiber.StatusBadRequest).JSON(bankin.ErrorResponse{Error: "unsupported_grant_type"})
	}
	if c.FormValue("refresh_token") != s.fx.RefreshToken {
		return c.Status(fiber.StatusUnauthorized).JSON(bankin.ErrorResponse{Error: "invalid_grant"})
	}
	return c.JSON(bankin.TokenResponse{
		AccessToken: s.fx.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	})
}

func (s *Server) requireBearer(c *fiber.Ctx) error {
	token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || token != s.fx.AccessToken {
		return c.Status(fiber.StatusUnauthorized).JSON(bankin.ErrorResponse{Error: "invalid access token"})
	}
	return c.Next()
}

func (s *Server) listAccounts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 || page > len(s.fx.AccountPages) {
		return c.Status(fiber.StatusNotFound).JSON(bankin.ErrorResponse{Error: "page not found"})
	}
	items := s.fx.AccountPages[page-1]
	if items == nil {
		items = []model.Account{}
	}
	return c.JSON(bankin.AccountsPage{
		Account: &items,
		Link:    pageLink(bankin.AccountsPath, page, len(s.fx.AccountPages)),
	})
}

func (s *Server) listTransactions(c *fiber.Ctx) error {
	acc := c.Params("acc_number")
	pages, ok := s.fx.TransactionPages[acc]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(bankin.ErrorResponse{Error: "account not found"})
	}
	page := c.QueryInt("page", 1)
	if page < 1 || page > len(pages) {
		return c.Status(fiber.StatusNotFound).JSON(bankin.ErrorResponse{Error: "page not found"})
	}
	items := pages[page-1]
	if items == nil {
		items = []model.Transaction{}
	}
	return c.JSON(bankin.TransactionsPage{
		Transactions: &items,
		Link:         pageLink(bankin.TransactionsPath(acc), page, len(pages)),
	})
}

// pageLink points at the following page, or carries a null next on the last one.
func pageLink(path string, page, total int) *bankin.Link {
	if page >= total {
		return &bankin.Link{}
	}
	next := fmt.Sprintf("%s?page=%d", path, page+1)
	return &bankin.Link{Next: &next}
}
