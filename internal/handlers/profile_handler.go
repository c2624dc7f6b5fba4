package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/middleware"
	"github.com/campmanager/backend/internal/models"
	"github.com/campmanager/backend/internal/services"
)

type ProfileHandler struct {
	profiles services.ProfileService
	validate *validator.Validate
	opts     Options
	log      *zap.Logger
}

func NewProfileHandler(profiles services.ProfileService, opts Options) *ProfileHandler {
	opts = opts.withDefaults()
	return &ProfileHandler{
		profiles: profiles,
		validate: newValidator(),
		opts:     opts,
		log:      opts.Logger.Named("profiles"),
	}
}

// SyncProfile creates the caller's profile after first sign-up, or returns
// the existing one. 201 when created, 200 when it already existed.
func (h *ProfileHandler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	var req models.SyncProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		resp := models.NewValidationErrorResponse(fieldErrors(err))
		resp.Message = "Missing required fields in request body: role, fullName"
		if req.Role != "" && !req.Role.Valid() && strings.TrimSpace(req.FullName) != "" {
			resp.Message = "Invalid role specified."
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized: Could not identify user from token."))
		return
	}
	h.log.Info("sync profile", zap.String("uid", userID), zap.String("role", string(req.Role)))

	ctx, cancel := contextWithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	prof, created, err := h.profiles.Create(ctx, models.CreateProfileInput{
		FirebaseUID: userID,
		Email:       middleware.GetUserEmail(r.Context()),
		Role:        req.Role,
		FullName:    strings.TrimSpace(req.FullName),
	})
	if err != nil {
		h.log.Error("sync profile failed", zap.String("uid", userID), zap.Error(err))
		h.opts.serverError(w, "Server error syncing user profile", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, prof)
}

// GetMyProfile returns the caller's profile, or 404 until it has been synced.
func (h *ProfileHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized: User ID not found."))
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.opts.Timeout)
	defer cancel()

	prof, err := h.profiles.FindByIdentity(ctx, userID)
	if errors.Is(err, services.ErrProfileNotFound) {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("User profile not found."))
		return
	}
	if err != nil {
		h.log.Error("get profile failed", zap.String("uid", userID), zap.Error(err))
		h.opts.serverError(w, "Server error fetching user profile", err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}
