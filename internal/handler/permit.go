package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solperp/permitgate/internal/middleware"
	"github.com/solperp/permitgate/internal/model"
	"github.com/solperp/permitgate/internal/pkg/apperrors"
	"github.com/solperp/permitgate/internal/service"
)

type PermitHandler struct {
	svc *service.GatewayService
}

func NewPermitHandler(svc *service.GatewayService) *PermitHandler {
	return &PermitHandler{svc: svc}
}

// Build translates an exchange request into unsigned canonical
// envelopes without touching any key material.
func (h *PermitHandler) Build(c *gin.Context) {
	var req model.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, _, err := h.svc.Build(&req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "kind", req.Exchange.Action.Type)
	middleware.AddAuditContext(c, "envelope_count", len(resp.Envelopes))

	c.JSON(http.StatusOK, resp)
}

// Sign builds and signs in one call using the tenant's session key.
func (h *PermitHandler) Sign(c *gin.Context) {
	tenant := c.MustGet(middleware.ContextTenantKey).(*model.Tenant)

	var req model.BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.svc.Sign(tenant, &req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "kind", req.Exchange.Action.Type)
	middleware.AddAuditContext(c, "nonces", resp.Nonces)
	middleware.AddAuditContext(c, "pubkey", resp.PublicKey)

	c.JSON(http.StatusOK, resp)
}

// Verify checks a detached ed25519 signature against a hex envelope.
func (h *PermitHandler) Verify(c *gin.Context) {
	var req model.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	resp, err := h.svc.Verify(&req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Inspect decodes a hex canonical envelope into readable fields.
func (h *PermitHandler) Inspect(c *gin.Context) {
	envelopeHex := c.Param("hex")
	if envelopeHex == "" {
		c.Error(apperrors.NewInvalidRequest("envelope hex is required"))
		return
	}

	out, err := h.svc.Inspect(envelopeHex)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// Markets lists the symbols the adapter can resolve.
func (h *PermitHandler) Markets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"markets": h.svc.Registry().All()})
}
