package devserver

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// claimsKey is the fiber local holding verified AccessClaims.
const claimsKey = "access_claims"

const authScheme = "Bearer"

// bearerFromHeader extracts the token from an "Authorization: Bearer" header.
func bearerFromHeader(c *fiber.Ctx) (string, bool) {
	a := c.Get(fiber.HeaderAuthorization)
	l := len(authScheme)
	if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
		token := strings.TrimSpace(a[l:])
		return token, token != ""
	}
	return "", false
}

// requireBearer rejects requests without a valid access token and stores the
// verified claims under claimsKey.
func (s *Server) requireBearer(c *fiber.Ctx) error {
	raw, ok := bearerFromHeader(c)
	if !ok {
		return ErrUnauthorized
	}

	claims, err := s.tokens.Verify(raw, s.now())
	if err != nil {
		return err
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

func claimsFrom(c *fiber.Ctx) (*AccessClaims, bool) {
	claims, ok := c.Locals(claimsKey).(*AccessClaims)
	return claims, ok && claims != nil
}
