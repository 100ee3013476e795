package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortcutURL/internal/app/service"
	"github.com/sifan077/ShortcutURL/internal/http/middleware"
	"github.com/sifan077/ShortcutURL/internal/infra/prometheus"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	qrCodeSize       = 256
)

// LinkDeps groups dependencies required by the link API.
type LinkDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	BaseURL     string
}

// LinkHandler implements the /api/urls endpoints.
type LinkHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	baseURL     string
}

// NewLinkHandler creates a link handler with the provided dependencies.
func NewLinkHandler(deps LinkDeps) *LinkHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkHandler{
		logger:      logger,
		linkService: deps.LinkService,
		baseURL:     deps.BaseURL,
	}
}

// Register wires link routes onto router. createLimit guards link creation.
func (h *LinkHandler) Register(router fiber.Router, auth *middleware.Auth, createLimit fiber.Handler) {
	urls := router.Group("/urls")
	{
		urls.Post("/", createLimit, auth.Optional(), h.Create)
		urls.Get("/", auth.Required(), h.List)
		urls.Get("/stats", h.Stats)
		urls.Get("/:code/analytics", auth.Required(), h.Analytics)
		urls.Get("/:code/qrcode", h.QRCode)
		urls.Delete("/:code", auth.Required(), h.Delete)
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	OriginalURL  string `json:"originalUrl"`
	CustomAlias  string `json:"customAlias,omitempty"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
	Password     string `json:"password,omitempty"`
	CaptchaToken string `json:"captchaToken,omitempty"`
}

// Create handles POST /api/urls
func (h *LinkHandler) Create(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.OriginalURL == "" {
		return badRequest(c, "originalUrl is required")
	}

	link, err := h.linkService.Create(c.UserContext(), service.CreateLinkInput{
		URL:           req.OriginalURL,
		Account:       middleware.AccountFrom(c),
		Alias:         req.CustomAlias,
		ExpiresInDays: req.ExpiresIn,
		Password:      req.Password,
		CaptchaToken:  req.CaptchaToken,
		RemoteIP:      c.IP(),
	})
	if err != nil {
		prometheus.LinksCreatedTotal.WithLabelValues(createOutcome(err)).Inc()
		return writeError(c, h.logger, err)
	}
	prometheus.LinksCreatedTotal.WithLabelValues("created").Inc()

	h.logger.Debug("link created", zap.String("code", link.Code), zap.Bool("custom", link.Custom))
	return c.Status(fiber.StatusCreated).JSON(newLinkResponse(h.baseURL, link))
}

func createOutcome(err error) string {
	if service.IsUpsell(err) {
		return "upsell"
	}
	if m, ok := lookupError(err); ok && m.status < fiber.StatusInternalServerError {
		return "rejected"
	}
	return "error"
}

// List handles GET /api/urls
func (h *LinkHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	account := middleware.AccountFrom(c)
	links, err := h.linkService.List(c.UserContext(), account.ID, limit, offset)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	response := make([]LinkResponse, len(links))
	for i := range links {
		response[i] = newLinkResponse(h.baseURL, &links[i])
	}

	return c.JSON(fiber.Map{
		"urls":   response,
		"limit":  limit,
		"offset": offset,
		"count":  len(response),
	})
}

// Stats handles GET /api/urls/stats
func (h *LinkHandler) Stats(c *fiber.Ctx) error {
	totals, err := h.linkService.Totals(c.UserContext(), nil)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(totals)
}

// Analytics handles GET /api/urls/:code/analytics
func (h *LinkHandler) Analytics(c *fiber.Ctx) error {
	link, err := h.linkService.Analytics(c.UserContext(), middleware.AccountFrom(c), c.Params("code"))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(AnalyticsResponse{
		ShortCode: link.Code,
		Clicks:    link.Clicks,
		Analytics: link.Analytics,
	})
}

// QRCode handles GET /api/urls/:code/qrcode and renders the short URL as PNG.
func (h *LinkHandler) QRCode(c *fiber.Ctx) error {
	link, err := h.linkService.Get(c.UserContext(), c.Params("code"))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	png, err := qrcode.Encode(shortURL(h.baseURL, link.Code), qrcode.Medium, qrCodeSize)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	c.Type("png")
	return c.Send(png)
}

// Delete handles DELETE /api/urls/:code
func (h *LinkHandler) Delete(c *fiber.Ctx) error {
	account := middleware.AccountFrom(c)
	code := c.Params("code")
	if err := h.linkService.Delete(c.UserContext(), account.ID, code); err != nil {
		return writeError(c, h.logger, err)
	}
	h.logger.Info("link deleted", zap.String("code", code), zap.String("account_id", account.ID))
	return c.JSON(fiber.Map{"message": "URL removed"})
}
