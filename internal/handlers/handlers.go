package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"memetokenhub/internal/errs"
	"memetokenhub/internal/models"
	"memetokenhub/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HeaderCallerID carries the pre-authenticated caller id set by the session
// provider in front of this service.
const HeaderCallerID = "X-Caller-Id"

type ClaimHandler struct {
	coordinator  *services.Coordinator
	challenges   *services.ChallengeService
	profiles     *services.ProfileStore
	approvers    map[string]bool
	mediaBaseURL string
	log          *zap.Logger
}

func NewClaimHandler(coordinator *services.Coordinator, challenges *services.ChallengeService, profiles *services.ProfileStore, approvers map[string]bool, mediaBaseURL string, log *zap.Logger) *ClaimHandler {
	return &ClaimHandler{
		coordinator:  coordinator,
		challenges:   challenges,
		profiles:     profiles,
		approvers:    approvers,
		mediaBaseURL: mediaBaseURL,
		log:          log,
	}
}

// RegisterRoutes wires the claim API. submitLimiter, when non-nil, throttles
// only the intake routes; reads and decisions stay unthrottled.
func RegisterRoutes(e *echo.Echo, api *echo.Group, h *ClaimHandler, submitLimiter echo.MiddlewareFunc) {
	// Public read path and health, no identity required.
	e.GET("/healthz", h.Health)
	e.GET("/api/tokens/:chain/:address/profile", h.GetTokenProfile)

	var intake []echo.MiddlewareFunc
	if submitLimiter != nil {
		intake = append(intake, submitLimiter)
	}

	api.Use(h.CallerID)
	api.POST("/claims/challenge", h.IssueChallenge, intake...)
	api.POST("/claims", h.SubmitClaim, intake...)
	api.POST("/claims/:id/approve", h.Approve, h.RequireApprover)
	api.POST("/claims/:id/reject", h.Reject, h.RequireApprover)
	api.POST("/claims/:id/reevaluate", h.Reevaluate)
	api.GET("/claims/mine", h.ListMyClaims)
	api.GET("/claims/pending", h.ListPending, h.RequireApprover)
	api.GET("/claims/:id", h.GetClaim)
}

func (h *ClaimHandler) CallerID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		callerID := strings.TrimSpace(c.Request().Header.Get(HeaderCallerID))
		if callerID == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing caller identity"})
		}
		c.Set("callerID", callerID)
		return next(c)
	}
}

func (h *ClaimHandler) RequireApprover(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.approvers[caller(c)] {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "approver role required"})
		}
		return next(c)
	}
}

func caller(c echo.Context) string {
	id, _ := c.Get("callerID").(string)
	return id
}

func (h *ClaimHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type challengeRequest struct {
	Strategy     string `json:"strategy"`
	Chain        string `json:"chain"`
	TokenAddress string `json:"token_address"`
}

func (h *ClaimHandler) IssueChallenge(c echo.Context) error {
	var req challengeRequest
	if err := c.Bind(&req); err != nil {
		return h.writeError(c, errs.Validation("malformed request body"))
	}
	if strings.TrimSpace(req.Chain) == "" || strings.TrimSpace(req.TokenAddress) == "" {
		return h.writeError(c, errs.Validation("chain and token_address are required"))
	}

	ch, err := h.challenges.Issue(models.ProofStrategy(req.Strategy), req.Chain, req.TokenAddress, caller(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, ch)
}

type submitRequest struct {
	Chain        string `json:"chain"`
	TokenAddress string `json:"token_address"`

	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Website     string   `json:"website"`
	Twitter     string   `json:"twitter"`
	Discord     string   `json:"discord"`
	Telegram    string   `json:"telegram"`
	Reddit      string   `json:"reddit"`
	Other       string   `json:"other"`
	MediaRefs   []string `json:"media_refs"`

	Strategy  string `json:"strategy"`
	Signature string `json:"signature"`
	Domain    string `json:"domain"`
	PostURL   string `json:"post_url"`
}

func (r *submitRequest) validate() error {
	if strings.TrimSpace(r.Chain) == "" || strings.TrimSpace(r.TokenAddress) == "" {
		return errs.Validation("chain and token_address are required")
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		return errs.Validation("display_name is required")
	}

	strategy := models.ProofStrategy(r.Strategy)
	if !strategy.Valid() {
		return errs.Validation("unknown proof strategy %q", r.Strategy)
	}
	switch strategy {
	case models.StrategySignedMessage:
		if strings.TrimSpace(r.Signature) == "" {
			return errs.Validation("strategy SignedMessage requires a signature")
		}
	case models.StrategyDnsTxtRecord:
		domain := strings.TrimSpace(r.Domain)
		if domain == "" {
			return errs.Validation("strategy DnsTxtRecord requires a domain")
		}
		if strings.ContainsAny(domain, "/ ") || strings.Contains(domain, "://") {
			return errs.Validation("domain must be a bare hostname")
		}
	case models.StrategySocialPost:
		if !validHTTPURL(r.PostURL) {
			return errs.Validation("strategy SocialPost requires a public post URL")
		}
	}

	for name, value := range map[string]string{
		"website": r.Website, "twitter": r.Twitter, "discord": r.Discord,
		"telegram": r.Telegram, "reddit": r.Reddit,
	} {
		if value != "" && !validHTTPURL(value) {
			return errs.Validation("%s must be an http(s) URL", name)
		}
	}
	return nil
}

func validHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (h *ClaimHandler) SubmitClaim(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return h.writeError(c, errs.Validation("malformed request body"))
	}
	if err := req.validate(); err != nil {
		return h.writeError(c, err)
	}

	claim, err := h.coordinator.Submit(c.Request().Context(), services.SubmitInput{
		SubmitterID:  caller(c),
		Chain:        req.Chain,
		TokenAddress: req.TokenAddress,
		DisplayName:  req.DisplayName,
		Description:  req.Description,
		Website:      req.Website,
		Twitter:      req.Twitter,
		Discord:      req.Discord,
		Telegram:     req.Telegram,
		Reddit:       req.Reddit,
		Other:        req.Other,
		MediaRefs:    req.MediaRefs,
		Strategy:     models.ProofStrategy(req.Strategy),
		Signature:    req.Signature,
		Domain:       req.Domain,
		PostURL:      req.PostURL,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"claim_id":   claim.ID,
		"status":     claim.Status,
		"evaluation": claim.Proof.Evaluation,
	})
}

func (h *ClaimHandler) Approve(c echo.Context) error {
	claim, err := h.coordinator.Approve(c.Request().Context(), c.Param("id"), caller(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"claim_id":   claim.ID,
		"status":     claim.Status,
		"decided_at": claim.DecidedAt,
	})
}

func (h *ClaimHandler) Reject(c echo.Context) error {
	claim, err := h.coordinator.Reject(c.Request().Context(), c.Param("id"), caller(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"claim_id":   claim.ID,
		"status":     claim.Status,
		"decided_at": claim.DecidedAt,
	})
}

func (h *ClaimHandler) Reevaluate(c echo.Context) error {
	callerID := caller(c)
	claim, err := h.coordinator.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	if !h.approvers[callerID] && claim.SubmitterID != callerID {
		return h.writeError(c, errs.NotFound("claim %s", c.Param("id")))
	}

	claim, err = h.coordinator.Reevaluate(c.Request().Context(), claim.ID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"claim_id":    claim.ID,
		"status":      claim.Status,
		"evaluation":  claim.Proof.Evaluation,
		"eval_reason": claim.Proof.EvalReason,
	})
}

func (h *ClaimHandler) GetClaim(c echo.Context) error {
	callerID := caller(c)
	claim, err := h.coordinator.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	// Claims are visible to their submitter and to approvers only; everyone
	// else gets the same answer as for an unknown id.
	if !h.approvers[callerID] && claim.SubmitterID != callerID {
		return h.writeError(c, errs.NotFound("claim %s", c.Param("id")))
	}
	return c.JSON(http.StatusOK, h.claimView(*claim, callerID))
}

func (h *ClaimHandler) ListMyClaims(c echo.Context) error {
	claims, err := h.coordinator.ListBySubmitter(c.Request().Context(), caller(c))
	if err != nil {
		return h.writeError(c, err)
	}
	views := make([]models.Claim, 0, len(claims))
	for _, cl := range claims {
		views = append(views, h.claimView(cl, caller(c)))
	}
	return c.JSON(http.StatusOK, views)
}

func (h *ClaimHandler) ListPending(c echo.Context) error {
	claims, err := h.coordinator.ListPendingApproval(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, claims)
}

func (h *ClaimHandler) GetTokenProfile(c echo.Context) error {
	profile, err := h.profiles.Get(c.Request().Context(), c.Param("chain"), c.Param("address"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"profile":    profile,
		"media_urls": h.mediaURLs(profile.MediaRefs),
	})
}

// claimView redacts raw proof evidence for non-approvers.
func (h *ClaimHandler) claimView(claim models.Claim, callerID string) models.Claim {
	if !h.approvers[callerID] {
		claim.Proof.Signature = ""
	}
	return claim
}

func (h *ClaimHandler) mediaURLs(refs []string) []string {
	if h.mediaBaseURL == "" || len(refs) == 0 {
		return nil
	}
	base := strings.TrimSuffix(h.mediaBaseURL, "/")
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		urls = append(urls, base+"/"+strings.TrimPrefix(ref, "/"))
	}
	return urls
}

func (h *ClaimHandler) writeError(c echo.Context, err error) error {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, errs.ErrValidation):
		status, code = http.StatusBadRequest, "validation"
	case errors.Is(err, errs.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrStaleState):
		status, code = http.StatusConflict, "stale_state"
	case errors.Is(err, errs.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, errs.ErrEvaluatorUnavailable):
		status, code = http.StatusServiceUnavailable, "retry_later"
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
	return c.JSON(status, map[string]string{
		"error":      err.Error(),
		"code":       code,
		"request_id": requestID,
	})
}
