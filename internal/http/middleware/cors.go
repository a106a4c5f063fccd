package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows browser calls from the given comma-separated origins. Credentials are only
// allowed for an explicit origin list, never for "*".
func CORS(origins string) fiber.Handler {
	list := make([]string, 0)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, strings.TrimSuffix(o, "/"))
		}
	}
	allow := strings.Join(list, ",")
	if allow == "" {
		allow = "*"
	}

	return cors.New(cors.Config{
		AllowOrigins:     allow,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Content-Type,Authorization," + RequestIDHeader,
		ExposeHeaders:    RequestIDHeader,
		AllowCredentials: allow != "*",
	})
}
