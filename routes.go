package accounts

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the user routes. Order matters: the session
// gate protects everything registered after it, and the role
// restriction fences off the admin block.
func RegisterRoutes(app *fiber.App, auth *AuthController, users *UsersController, gate *SessionGate) {
	api := app.Group("/api/v1/users")

	api.Post("/signup", auth.Signup)
	api.Post("/login", auth.Login)
	api.Get("/logout", auth.Logout)
	api.Post("/forgotPassword", auth.ForgotPassword)
	api.Patch("/resetPassword/:token", auth.ResetPassword)

	api.Use(gate.Protect())

	api.Patch("/updateMyPassword", auth.UpdatePassword)
	api.Get("/me", users.Me)
	api.Patch("/updateMe", users.UpdateMe)
	api.Delete("/deleteMe", users.DeleteMe)

	api.Use(RestrictTo(RoleAdmin))

	api.Get("/", users.List)
	api.Post("/", users.Create)
	api.Get("/:id", users.Get)
	api.Patch("/:id", users.Update)
	api.Delete("/:id", users.Delete)
}
