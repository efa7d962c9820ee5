package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raduhhr/contact-api/config"
	apperrors "github.com/raduhhr/contact-api/errors"
	"github.com/raduhhr/contact-api/logger"
	"github.com/raduhhr/contact-api/pkg/turnstile"
	"github.com/raduhhr/contact-api/services"
	"github.com/raduhhr/contact-api/types"
)

// ContactHandler handles contact-form submissions. One request runs a fixed
// pipeline: rate-limit pre-check, body-size guard, JSON decode, field
// validation, token verification, email dispatch, rate-limit commit. Each
// step attaches a typed AppError and returns on failure; the error-handler
// middleware turns it into the JSON response.
type ContactHandler struct {
	cfg         *config.Config
	limiter     services.RateLimiterInterface
	verifier    turnstile.Verifier
	sender      services.EmailSender
	submissions *prometheus.CounterVec
}

// Submission outcome label values.
const (
	outcomeAccepted           = "accepted"
	outcomeRateLimited        = "rate_limited"
	outcomeInvalid            = "invalid"
	outcomeVerificationFailed = "verification_failed"
	outcomeDispatchFailed     = "dispatch_failed"
)

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(cfg *config.Config, limiter services.RateLimiterInterface, verifier turnstile.Verifier, sender services.EmailSender, reg prometheus.Registerer) *ContactHandler {
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_api_submissions_total",
		Help: "Contact form submissions by outcome",
	}, []string{"outcome"})
	reg.MustRegister(submissions)

	return &ContactHandler{
		cfg:         cfg,
		limiter:     limiter,
		verifier:    verifier,
		sender:      sender,
		submissions: submissions,
	}
}

// SubmitContact godoc
// @Summary      Submit the contact form
// @Description  Validates a contact-form submission, verifies the Turnstile token, and forwards it by email
// @Tags         contact
// @Accept       json
// @Produce      json
// @Param        body  body      types.ContactRequest  true  "Contact payload"
// @Success      200   {object}  types.SuccessResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      403   {object}  types.ErrorResponse
// @Failure      413   {object}  types.ErrorResponse
// @Failure      429   {object}  types.ErrorResponse
// @Failure      500   {object}  types.ErrorResponse
// @Router       /contact [post]
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	log := logger.GetLogger()
	ctx := c.Request.Context()

	// Startup validation already guarantees these; the guard keeps the
	// invariant when a handler is wired directly (tests, future routes).
	if h.cfg == nil || h.limiter == nil || h.verifier == nil || h.sender == nil ||
		h.cfg.Turnstile.Secret == "" {
		_ = c.Error(apperrors.Misconfigured("handler dependencies missing"))
		return
	}

	clientIP := clientIdentity(c)
	window := time.Duration(h.cfg.RateLimit.WindowSeconds) * time.Second

	// Rate-limit pre-check before touching the body, to reject abusive
	// callers cheaply. A store read failure fails open: availability of the
	// form wins over strictness of the counter.
	count, err := h.limiter.Count(ctx, clientIP)
	if err != nil {
		log.Warnw("Rate limit lookup failed, allowing request",
			"error", err, "client_ip", clientIP)
	} else if count >= int64(h.cfg.RateLimit.MaxSubmissions) {
		retryAfter := int(h.limiter.RetryAfter(ctx, clientIP, window).Seconds())
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		h.submissions.WithLabelValues(outcomeRateLimited).Inc()
		_ = c.Error(apperrors.RateLimitExceeded(retryAfter))
		return
	}

	// Body-size guard before JSON parsing to bound parse cost. The declared
	// length catches honest clients; MaxBytesReader catches the rest.
	maxBody := h.cfg.Server.MaxBodyBytes
	if c.Request.ContentLength > maxBody {
		h.submissions.WithLabelValues(outcomeInvalid).Inc()
		_ = c.Error(apperrors.PayloadTooLarge(maxBody))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	var req types.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.submissions.WithLabelValues(outcomeInvalid).Inc()
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			_ = c.Error(apperrors.PayloadTooLarge(maxBody))
			return
		}
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	req.Trim()
	if !req.HasAllFields() {
		// Single generic message on purpose: which field is missing is not
		// the caller's business beyond "all of them are required".
		h.submissions.WithLabelValues(outcomeInvalid).Inc()
		_ = c.Error(apperrors.ValidationFailed("All fields are required.", "missing fields"))
		return
	}
	if vErr := req.Validate(); vErr != nil {
		h.submissions.WithLabelValues(outcomeInvalid).Inc()
		_ = c.Error(vErr)
		return
	}

	// Token verification. Transport errors, non-2xx verifier replies, and
	// success=false all collapse into the same generic rejection.
	result, err := h.verifier.Verify(ctx, req.TurnstileToken, clientIP)
	if err != nil {
		log.Warnw("Turnstile verification error",
			"error", err, "client_ip", clientIP)
		h.submissions.WithLabelValues(outcomeVerificationFailed).Inc()
		_ = c.Error(apperrors.VerificationFailed(err))
		return
	}
	if !result.Success {
		log.Infow("Turnstile verification rejected token",
			"error_codes", result.ErrorCodes, "client_ip", clientIP)
		h.submissions.WithLabelValues(outcomeVerificationFailed).Inc()
		_ = c.Error(apperrors.VerificationFailed(nil))
		return
	}
	if !hostnameAllowed(h.cfg.Turnstile.AllowedHostnames, result.Hostname) {
		// A valid token for the wrong site means replay across sites
		// sharing the verification secret.
		log.Warnw("Turnstile token issued for unexpected hostname",
			"hostname", result.Hostname, "client_ip", clientIP)
		h.submissions.WithLabelValues(outcomeVerificationFailed).Inc()
		_ = c.Error(apperrors.VerificationContextInvalid(result.Hostname))
		return
	}

	data := types.ContactEmailData{
		Name:        req.Name,
		Email:       req.Email,
		Message:     req.Message,
		SubmittedAt: time.Now().UTC(),
		ClientIP:    clientIP,
		UserAgent:   c.Request.UserAgent(),
	}

	if err := h.sender.SendContactEmail(ctx, data); err != nil {
		h.submissions.WithLabelValues(outcomeDispatchFailed).Inc()
		_ = c.Error(apperrors.DispatchFailed(err))
		return
	}

	// Commit only after the send succeeded: rejected submissions never
	// consume quota. The increment resets the TTL, so the window slides
	// with the most recent accepted submission.
	if err := h.limiter.Increment(ctx, clientIP, window); err != nil {
		// The email is already out; surface nothing to the caller.
		log.Warnw("Rate limit increment failed",
			"error", err, "client_ip", clientIP)
	}

	h.submissions.WithLabelValues(outcomeAccepted).Inc()
	c.JSON(http.StatusOK, types.SuccessResponse{Success: "Email sent successfully!"})
}

// clientIdentity derives the rate-limit key for a request. It trusts the
// proxy-supplied headers in order of specificity and falls back to the
// sentinel "unknown" when no address can be determined.
func clientIdentity(c *gin.Context) string {
	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		// First hop in the chain is the original client.
		if ips := strings.Split(forwarded, ","); len(ips) > 0 {
			if ip := strings.TrimSpace(ips[0]); ip != "" {
				return ip
			}
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func hostnameAllowed(allowed []string, hostname string) bool {
	for _, h := range allowed {
		if h == hostname {
			return true
		}
	}
	return false
}
