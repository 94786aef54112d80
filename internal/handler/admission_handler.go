package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pondok-psb-api/internal/models"
	"github.com/noah-isme/pondok-psb-api/internal/service"
	appErrors "github.com/noah-isme/pondok-psb-api/pkg/errors"
	"github.com/noah-isme/pondok-psb-api/pkg/response"
	"github.com/noah-isme/pondok-psb-api/pkg/storage"
)

// AdmissionHandler exposes the applicant lifecycle endpoints.
type AdmissionHandler struct {
	admissions *service.AdmissionService
	exports    *service.ExportService
	storage    *storage.LocalStorage
	signer     *storage.SignedURLSigner
	maxUpload  int64
}

// NewAdmissionHandler constructs AdmissionHandler.
func NewAdmissionHandler(admissions *service.AdmissionService, exports *service.ExportService, store *storage.LocalStorage, signer *storage.SignedURLSigner, maxUpload int64) *AdmissionHandler {
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &AdmissionHandler{admissions: admissions, exports: exports, storage: store, signer: signer, maxUpload: maxUpload}
}

// Register godoc
// @Summary Register a new applicant
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body service.RegisterApplicantRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /applicants [post]
func (h *AdmissionHandler) Register(c *gin.Context) {
	var req service.RegisterApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	applicant, err := h.admissions.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, applicant)
}

// List godoc
// @Summary List applicants
// @Tags Admissions
// @Produce json
// @Param periodId query string false "Filter by period"
// @Param status query string false "Filter by lifecycle status"
// @Param paymentStatus query string false "Filter by payment status"
// @Param search query string false "Search by name or registration number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applicants [get]
func (h *AdmissionHandler) List(c *gin.Context) {
	filter := applicantFilterFromQuery(c)
	applicants, pagination, err := h.admissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicants, pagination)
}

// Get godoc
// @Summary Get applicant detail
// @Tags Admissions
// @Produce json
// @Param id path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id} [get]
func (h *AdmissionHandler) Get(c *gin.Context) {
	applicant, err := h.admissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// VerifyPayment godoc
// @Summary Verify or reject the registration payment
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.VerifyPaymentRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/verify-payment [post]
func (h *AdmissionHandler) VerifyPayment(c *gin.Context) {
	var req service.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.VerifiedBy == nil {
		if claims := claimsFromContext(c); claims != nil {
			req.VerifiedBy = &claims.UserID
		}
	}
	applicant, err := h.admissions.VerifyPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// SetStatus godoc
// @Summary Move an applicant through the admission lifecycle
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.SetStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applicants/{id}/status [put]
func (h *AdmissionHandler) SetStatus(c *gin.Context) {
	var req service.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	applicant, err := h.admissions.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// Assign godoc
// @Summary Assign an applicant to an institution and class
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.AssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/assign [post]
func (h *AdmissionHandler) Assign(c *gin.Context) {
	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.AssignedBy == nil {
		if claims := claimsFromContext(c); claims != nil {
			req.AssignedBy = &claims.UserID
		}
	}
	applicant, err := h.admissions.Assign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// Decline godoc
// @Summary Record that an applicant declined the offer
// @Tags Admissions
// @Produce json
// @Param id path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/decline [post]
func (h *AdmissionHandler) Decline(c *gin.Context) {
	applicant, err := h.admissions.Decline(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// VerifyReregistration godoc
// @Summary Verify or reject the re-registration payment
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Applicant ID"
// @Param payload body service.VerifyReregistrationRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /applicants/{id}/verify-reregistration [post]
func (h *AdmissionHandler) VerifyReregistration(c *gin.Context) {
	var req service.VerifyReregistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	applicant, err := h.admissions.VerifyReregistration(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applicant, nil)
}

// UploadPaymentProof godoc
// @Summary Upload a payment proof image for an applicant
// @Tags Admissions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Applicant ID"
// @Param file formData file true "Payment proof"
// @Success 200 {object} response.Envelope
// @Router /applicants/{id}/payment-proof [post]
func (h *AdmissionHandler) UploadPaymentProof(c *gin.Context) {
	if h.storage == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "upload storage not configured"))
		return
	}
	id := c.Param("id")

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Validation(map[string]string{"file": "required"}))
		return
	}
	if file.Size > h.maxUpload {
		response.Error(c, appErrors.Validation(map[string]string{"file": fmt.Sprintf("exceeds maximum size of %d bytes", h.maxUpload)}))
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".pdf":
	default:
		response.Error(c, appErrors.Validation(map[string]string{"file": "must be jpg, png, or pdf"}))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	relPath := fmt.Sprintf("applicants/%s/proof-%d%s", id, time.Now().UTC().UnixNano(), ext)
	if _, err := h.storage.SaveStream(relPath, src); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload"))
		return
	}

	applicant, err := h.admissions.AttachPaymentProof(c.Request.Context(), id, relPath)
	if err != nil {
		_ = h.storage.Delete(relPath)
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{}
	if h.signer != nil {
		if token, expiresAt, err := h.signer.Generate(id, relPath); err == nil {
			meta["download_token"] = token
			meta["download_expires_at"] = expiresAt.UTC()
		}
	}
	response.JSON(c, http.StatusOK, applicant, nil, meta)
}

// DownloadPaymentProof godoc
// @Summary Download a payment proof via a signed token
// @Tags Admissions
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /applicants/payment-proof [get]
func (h *AdmissionHandler) DownloadPaymentProof(c *gin.Context) {
	if h.storage == nil || h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "upload storage not configured"))
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Validation(map[string]string{"token": "required"}))
		return
	}
	_, relPath, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}
	c.File(h.storage.Path(relPath))
}

// Export godoc
// @Summary Export the applicant roster
// @Tags Admissions
// @Produce text/csv
// @Param format query string true "Export format (csv or pdf)"
// @Param periodId query string false "Filter by period"
// @Param status query string false "Filter by lifecycle status"
// @Success 200 {file} binary
// @Router /applicants/export [get]
func (h *AdmissionHandler) Export(c *gin.Context) {
	filter := applicantFilterFromQuery(c)
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))

	result, err := h.exports.ExportApplicants(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

func applicantFilterFromQuery(c *gin.Context) models.ApplicantFilter {
	var filter models.ApplicantFilter
	filter.PeriodID = c.Query("periodId")
	filter.Status = models.ApplicantStatus(c.Query("status"))
	filter.PaymentStatus = models.PaymentStatus(c.Query("paymentStatus"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
