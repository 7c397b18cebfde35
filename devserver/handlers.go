package devserver

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

func (s *Server) register(c *fiber.Ctx) error {
	payload := RegisterRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return withSource(ErrInvalidPayload, err, nil)
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(MessageResponse{Message: err.Error()})
	}

	hash, err := HashPassword(payload.Password, s.cfg.BcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	account, err := s.repo.CreateAccount(c.UserContext(), &Account{
		Username:     payload.Username,
		Email:        payload.Email,
		Role:         RoleUser,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return err
	}

	s.logger.Info("account registered", "username", account.Username, "id", account.ID)

	return c.Status(fiber.StatusCreated).JSON(MessageResponse{Message: MessageRegistered})
}

func (s *Server) login(c *fiber.Ctx) error {
	payload := LoginRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return withSource(ErrInvalidPayload, err, nil)
	}

	if err := payload.Validate(); err != nil {
		return ErrInvalidCredentials
	}

	ctx := c.UserContext()

	account, err := s.repo.AccountByUsername(ctx, payload.Username)
	if err != nil {
		if IsNotFound(err) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := ComparePasswordAndHash(payload.Password, account.PasswordHash); err != nil {
		return err
	}

	return s.issue(c, account)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	ctx := c.UserContext()

	id, err := uuid.Parse(c.Cookies(s.cfg.CookieName))
	if err != nil {
		return ErrRefreshExpired
	}

	current, err := s.repo.RefreshSessionByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			s.deleteRefreshCookie(c)
			return ErrRefreshExpired
		}
		return err
	}

	// refresh credentials are single use
	if err := s.repo.DeleteRefreshSession(ctx, current.ID); err != nil {
		return err
	}

	if current.Expired(s.now()) {
		s.deleteRefreshCookie(c)
		return withSource(ErrRefreshExpired, nil, map[string]any{
			"expired_at": current.ExpiresAt,
		})
	}

	account, err := s.repo.AccountByID(ctx, current.AccountID)
	if err != nil {
		if IsNotFound(err) {
			s.deleteRefreshCookie(c)
			return ErrRefreshExpired
		}
		return err
	}

	return s.issue(c, account)
}

func (s *Server) logout(c *fiber.Ctx) error {
	if id, err := uuid.Parse(c.Cookies(s.cfg.CookieName)); err == nil {
		if err := s.repo.DeleteRefreshSession(c.UserContext(), id); err != nil {
			return err
		}
	}

	s.deleteRefreshCookie(c)
	return c.Status(fiber.StatusOK).JSON(MessageResponse{Message: MessageLoggedOut})
}

func (s *Server) me(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return ErrUnauthorized
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ErrUnauthorized
	}

	account, err := s.repo.AccountByID(c.UserContext(), id)
	if err != nil {
		if IsNotFound(err) {
			return ErrUnauthorized
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(ProfileResponse{
		ID:       account.ID.String(),
		Username: account.Username,
		Email:    account.Email,
		Role:     account.Role,
	})
}

// issue mints an access token and rotates the refresh cookie.
func (s *Server) issue(c *fiber.Ctx, account *Account) error {
	now := s.now()

	token, err := s.tokens.Mint(account, now)
	if err != nil {
		return err
	}

	refresh, err := s.repo.CreateRefreshSession(c.UserContext(), account.ID, now, s.cfg.RefreshTTL)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create refresh session")
	}

	s.setRefreshCookie(c, refresh.ID, refresh.ExpiresAt)

	return c.Status(fiber.StatusOK).JSON(TokenResponse{Token: token})
}
