package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/blueprint-paywall/internal/catalog"
	"github.com/iliyamo/blueprint-paywall/internal/logger"
	"github.com/iliyamo/blueprint-paywall/internal/service"
)

// PageHandler serves the blueprint pages, the checkout return pages and the
// public catalog.
type PageHandler struct {
	Catalog   *catalog.Catalog
	Gate      *service.Gate
	Confirmer *service.Confirmer
	Cookie    CookieOptions
	Log       *zap.Logger
}

func NewPageHandler(cat *catalog.Catalog, g *service.Gate, cf *service.Confirmer, cookie CookieOptions, log *zap.Logger) *PageHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageHandler{Catalog: cat, Gate: g, Confirmer: cf, Cookie: cookie, Log: log.Named("pages")}
}

type blueprintPage struct {
	Title     string
	Role      string
	Blueprint catalog.Blueprint
	Unlocked  bool
}

type blueprintSummary struct {
	Role    string `json:"role"`
	Title   string `json:"title"`
	Subhead string `json:"subhead"`
}

type blueprintResp struct {
	blueprintSummary
	Unlocked bool              `json:"unlocked"`
	Method   string            `json:"method,omitempty"`
	Sections []catalog.Section `json:"sections,omitempty"`
}

// decide runs the access gate for the current request.
func (h *PageHandler) decide(c echo.Context, role string) service.Decision {
	var raw string
	if ck, err := c.Cookie(AccessCookie); err == nil {
		raw = ck.Value
	}
	return h.Gate.Decide(c.Request().Context(), role, raw, c.QueryParam("session_id"))
}

// Blueprint: GET /blueprint/:role
// Renders the full blueprint when the gate grants access, the upsell otherwise.
func (h *PageHandler) Blueprint(c echo.Context) error {
	role := strings.ToLower(c.Param("role"))
	bp, ok := h.Catalog.Get(role)
	if !ok {
		return c.Render(http.StatusNotFound, "message", messagePage{
			Title:   "Blueprint not found",
			Message: "There is no blueprint for this role.",
			Error:   true,
		})
	}
	d := h.decide(c, role)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
	return c.Render(http.StatusOK, "blueprint", blueprintPage{
		Title:     catalog.Title(role),
		Role:      role,
		Blueprint: bp,
		Unlocked:  d.Granted,
	})
}

// BlueprintJSON: GET /api/blueprints/:role
func (h *PageHandler) BlueprintJSON(c echo.Context) error {
	role := strings.ToLower(c.Param("role"))
	bp, ok := h.Catalog.Get(role)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "blueprint not found"})
	}
	d := h.decide(c, role)
	resp := blueprintResp{
		blueprintSummary: blueprintSummary{Role: role, Title: catalog.Title(role), Subhead: bp.Subhead},
		Unlocked:         d.Granted,
		Method:           d.Method,
	}
	if d.Granted {
		resp.Sections = bp.Sections
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
	return c.JSON(http.StatusOK, resp)
}

// ListBlueprints: GET /api/blueprints
// Public teaser data only; no gated sections.
func (h *PageHandler) ListBlueprints(c echo.Context) error {
	roles := h.Catalog.Roles()
	out := make([]blueprintSummary, 0, len(roles))
	for _, r := range roles {
		bp, _ := h.Catalog.Get(r)
		out = append(out, blueprintSummary{Role: r, Title: catalog.Title(r), Subhead: bp.Subhead})
	}
	return c.JSON(http.StatusOK, echo.Map{"blueprints": out})
}

// Success: GET /success?session_id=
// The hosted checkout returns here.  On confirmation the cookie is set and
// the buyer is sent to the unlocked blueprint.
func (h *PageHandler) Success(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.Render(http.StatusBadRequest, "message", messagePage{
			Title:    "Payment Verification Failed",
			Message:  "No session found. Payment may not have completed.",
			Error:    true,
			RetryURL: "/stripe/cancel",
		})
	}

	res, err := h.Confirmer.Confirm(ctx, sessionID)
	if err != nil {
		status, msg := http.StatusInternalServerError, "We could not verify your payment. Please try again."
		if errors.Is(err, service.ErrPaymentIncomplete) {
			status, msg = http.StatusPaymentRequired, "Your payment has not completed yet."
		} else {
			h.Log.Error("success page confirmation failed", logger.CtxField(ctx), zap.Error(err))
		}
		return c.Render(status, "message", messagePage{
			Title:    "Payment Verification Failed",
			Message:  msg,
			Error:    true,
			RetryURL: "/success?session_id=" + url.QueryEscape(sessionID),
		})
	}
	c.SetCookie(h.Cookie.access(res.Token))
	return c.Redirect(http.StatusSeeOther, "/blueprint/"+url.PathEscape(res.Role))
}

// Cancel: GET /stripe/cancel
func (h *PageHandler) Cancel(c echo.Context) error {
	return c.Render(http.StatusOK, "message", messagePage{
		Title:   "Payment Cancelled",
		Message: "Your payment was not completed. You can try again whenever you're ready.",
	})
}
