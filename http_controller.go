package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/oops"
)

type AuthControllerRoutes struct {
	Signup         string
	Login          string
	ForgotPassword string
	ResetPassword  string
	UpdatePassword string
	Me             string
	UpdateMe       string
	DeleteMe       string
	Users          string
}

type AuthController struct {
	Logger Logger
	Auther *Auther
	Routes *AuthControllerRoutes
	// ListUsers serves the admin only user listing when set.
	ListUsers fiber.Handler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithListUsersHandler mounts handler on the admin only listing route.
func WithListUsersHandler(handler fiber.Handler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ListUsers = handler
		return c
	}
}

func NewAuthController(auther *Auther, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defaultLogger(),
		Auther: auther,
		Routes: &AuthControllerRoutes{
			Signup:         "/signup",
			Login:          "/login",
			ForgotPassword: "/forgotPassword",
			ResetPassword:  "/resetPassword/:token",
			UpdatePassword: "/updateMyPassword",
			Me:             "/me",
			UpdateMe:       "/updateMe",
			DeleteMe:       "/deleteMe",
			Users:          "/",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// RegisterAuthRoutes mounts the user routes on router, usually a group at
// /api/v1/users.
func RegisterAuthRoutes(router fiber.Router, auther *Auther, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(auther, opts...)
	routes := controller.Routes

	router.Post(routes.Signup, controller.Signup).Name("users.signup")
	router.Post(routes.Login, controller.Login).Name("users.login")
	router.Post(routes.ForgotPassword, controller.ForgotPassword).Name("users.forgot_password")
	router.Patch(routes.ResetPassword, controller.ResetPassword).Name("users.reset_password")

	protect := auther.Protect()
	router.Patch(routes.UpdatePassword, protect, controller.UpdatePassword).Name("users.update_password")
	router.Get(routes.Me, protect, controller.Me).Name("users.me")
	router.Patch(routes.UpdateMe, protect, controller.UpdateMe).Name("users.update_me")
	router.Delete(routes.DeleteMe, protect, controller.DeleteMe).Name("users.delete_me")

	if controller.ListUsers != nil {
		router.Get(routes.Users, auther.RestrictTo(RoleAdmin), controller.ListUsers).Name("users.list")
	}

	return controller
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordPayload struct {
	Email string `json:"email"`
}

type passwordPayload struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (a *AuthController) Signup(c *fiber.Ctx) error {
	var payload SignupInput
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	result, err := a.Auther.Signup(c.UserContext(), payload)
	if err != nil {
		return err
	}
	return sendToken(c, fiber.StatusCreated, result)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	var payload loginPayload
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	result, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}
	return sendToken(c, fiber.StatusOK, result)
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	var payload forgotPasswordPayload
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	if err := a.Auther.ForgotPassword(c.UserContext(), payload.Email); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "If an account exists for this email, a reset link has been sent.",
	})
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	var payload passwordPayload
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	result, err := a.Auther.ResetPassword(c.UserContext(), c.Params("token"), payload.Password, payload.PasswordConfirm)
	if err != nil {
		return err
	}
	return sendToken(c, fiber.StatusOK, result)
}

func (a *AuthController) UpdatePassword(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var payload passwordPayload
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	result, err := a.Auther.UpdatePassword(c.UserContext(), identity, payload.PasswordCurrent, payload.Password, payload.PasswordConfirm)
	if err != nil {
		return err
	}
	return sendToken(c, fiber.StatusOK, result)
}

func (a *AuthController) Me(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	user, err := a.Auther.Me(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return sendUser(c, fiber.StatusOK, user)
}

func (a *AuthController) UpdateMe(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var payload ProfileInput
	if err := parseBody(c, &payload); err != nil {
		return err
	}

	user, err := a.Auther.UpdateProfile(c.UserContext(), identity, payload)
	if err != nil {
		return err
	}
	return sendUser(c, fiber.StatusOK, user)
}

func (a *AuthController) DeleteMe(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	if err := a.Auther.Deactivate(c.UserContext(), identity); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return oops.Code(textCodeValidation).Wrap(NewValidationError(err))
	}
	return nil
}

func requireIdentity(c *fiber.Ctx) (Identity, error) {
	identity, ok := IdentityFromFiber(c)
	if !ok {
		return nil, oops.Code(textCodeUnauthorized).Wrap(ErrMissingToken)
	}
	return identity, nil
}

func sendToken(c *fiber.Ctx, status int, result *AuthResult) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"token":  result.Token,
		"data": fiber.Map{
			"user": result.User,
		},
	})
}

func sendUser(c *fiber.Ctx, status int, user *User) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"user": user,
		},
	})
}
