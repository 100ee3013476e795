package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortcutURL/internal/app/repository"
	"github.com/sifan077/ShortcutURL/internal/app/service"
	"github.com/sifan077/ShortcutURL/internal/http/view"
	"github.com/sifan077/ShortcutURL/internal/infra/prometheus"
	"go.uber.org/zap"
)

// LinkPasswordHeader carries the password for protected links on API calls.
const LinkPasswordHeader = "X-Link-Password"

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger    *zap.Logger
	Redirects service.RedirectService
}

// RedirectHandler resolves short codes for browsers and API clients.
type RedirectHandler struct {
	logger    *zap.Logger
	redirects service.RedirectService
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:    logger,
		redirects: deps.Redirects,
	}
}

// Register wires the health and redirect routes. It must run after every
// other route because /:code matches any single path segment.
func (h *RedirectHandler) Register(router fiber.Router, limit fiber.Handler) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/:code", limit, h.Resolve)
	router.Post("/:code", limit, h.Unlock)
}

// Health is a simple endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "shortcuturl",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /:code. Protected links read the password from the
// X-Link-Password header; browsers without it get the password page.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	return h.serve(c, c.Get(LinkPasswordHeader), acceptsHTML(c))
}

// Unlock handles POST /:code submitted by the password page.
func (h *RedirectHandler) Unlock(c *fiber.Ctx) error {
	password := c.FormValue("password")
	if password == "" {
		password = c.Get(LinkPasswordHeader)
	}
	return h.serve(c, password, acceptsHTML(c) || isForm(c))
}

func (h *RedirectHandler) serve(c *fiber.Ctx, password string, html bool) error {
	code := c.Params("code")

	link, err := h.redirects.Resolve(c.UserContext(), service.RedirectRequest{
		Code:      code,
		Password:  password,
		Referrer:  c.Get(fiber.HeaderReferer),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IP:        c.IP(),
	})
	prometheus.RedirectsTotal.WithLabelValues(redirectOutcome(err)).Inc()
	if err != nil {
		if html && isPasswordError(err) {
			return h.renderPasswordPage(c, code, err)
		}
		return writeError(c, h.logger, err)
	}

	h.logger.Debug("redirecting short link", zap.String("code", code), zap.String("target", link.URL))
	return c.Redirect(link.URL, fiber.StatusFound)
}

func (h *RedirectHandler) renderPasswordPage(c *fiber.Ctx, code string, cause error) error {
	data := view.PasswordPageData{Code: code}
	if errors.Is(cause, service.ErrPasswordMismatch) {
		data.Error = "Incorrect password, please try again."
	}

	html, err := view.RenderPasswordPage(data)
	if err != nil {
		h.logger.Error("failed to render password page", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to render page",
		})
	}

	return c.
		Status(fiber.StatusUnauthorized).
		Type("html", "utf-8").
		SendString(html)
}

func redirectOutcome(err error) string {
	switch {
	case err == nil:
		return "redirected"
	case errors.Is(err, repository.ErrLinkNotFound):
		return "not_found"
	case errors.Is(err, service.ErrLinkExpired):
		return "expired"
	case errors.Is(err, service.ErrPasswordRequired):
		return "password_required"
	case errors.Is(err, service.ErrPasswordMismatch):
		return "password_mismatch"
	default:
		return "error"
	}
}

func isPasswordError(err error) bool {
	return errors.Is(err, service.ErrPasswordRequired) || errors.Is(err, service.ErrPasswordMismatch)
}

func acceptsHTML(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML)
}

func isForm(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationForm)
}
