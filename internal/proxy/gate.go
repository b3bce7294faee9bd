package proxy

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// clientIdentity is the marker the editor client puts in its User-Agent.
const clientIdentity = "CodeTime Client"

const rejectionBody = "Unsupported client"

// Gate admits only requests carrying the client identity marker. Rejected
// requests are answered immediately and leave no audit trace: nothing is
// forwarded, extracted or persisted for them.
func Gate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !strings.Contains(c.Get(fiber.HeaderUserAgent), clientIdentity) {
			return c.Status(fiber.StatusForbidden).SendString(rejectionBody)
		}
		return c.Next()
	}
}
