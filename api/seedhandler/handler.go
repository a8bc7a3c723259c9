package seedhandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/interfaces"
)

// Handler exposes master seed initialization of the entropy source.
type Handler struct {
	source interfaces.EntropySource
	auth   *api.Authenticator
	log    *slog.Logger
}

func NewHandler(source interfaces.EntropySource, auth *api.Authenticator, log *slog.Logger) *Handler {
	return &Handler{source: source, auth: auth, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/entropy/seed", h.HandleStatus)
	r.With(h.auth.Middleware).Post("/api/entropy/seed", h.HandleInitialize)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, api.SeedStatusResponse{
		Address:     h.source.Address(),
		Initialized: h.source.IsSeedInitialized(),
	})
}

// HandleInitialize sets the master seed once. The seed must be an encrypted
// input bound to the source's address and the signed admin.
//
// URL format: POST /api/entropy/seed
// Response: 201 on success, 403 for non-admins, 409 if already initialized.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	caller, err := api.RequireCaller(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	var req api.SeedInitRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	err = h.source.InitializeMasterSeed(r.Context(), caller, interfaces.Ciphertext(req.EncryptedSeed), interfaces.InputProof(req.Proof))
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	h.log.Info("Master seed initialized over API", "admin", caller.String())
	api.WriteJSON(w, http.StatusCreated, api.SeedStatusResponse{Address: h.source.Address(), Initialized: true})
}
