package storehandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/interfaces"
)

// HandlerStore is the value store surface served over HTTP.
type HandlerStore interface {
	interfaces.EncryptedValueStore
	GetRecord(ctx context.Context, key uint64) (interfaces.EncryptedRecord, error)
}

// Handler exposes the encrypted value store. Writes require a signed caller,
// which is the identity encrypted inputs must be bound to.
type Handler struct {
	store HandlerStore
	auth  *api.Authenticator
	log   *slog.Logger
}

func NewHandler(store HandlerStore, auth *api.Authenticator, log *slog.Logger) *Handler {
	return &Handler{store: store, auth: auth, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/store", h.HandleInfo)
	r.Get("/api/store/values/{key}", h.HandleGetValue)
	r.Get("/api/store/values/{key}/status", h.HandleKeyStatus)
	r.Get("/api/store/values/{key}/allowed/{user}", h.HandleIsAllowed)

	r.With(h.auth.Middleware).Post("/api/store/values", h.HandleStore)
	r.With(h.auth.Middleware).Post("/api/store/batch", h.HandleStoreBatch)
}

func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.GetTotalValues(r.Context())
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.StoreInfoResponse{
		Address:     h.store.Address(),
		Oracle:      h.store.GetEntropyOracle().Address(),
		TotalValues: total,
	})
}

// HandleStore writes a single record. With request_id set the write is
// gated on that entropy request being fulfilled.
//
// URL format: POST /api/store/values
// Response: 201 on success, 409 if the key is taken, 425 if entropy is not ready.
func (h *Handler) HandleStore(w http.ResponseWriter, r *http.Request) {
	caller, err := api.RequireCaller(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	var req api.StoreRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	ct, proof := interfaces.Ciphertext(req.Ciphertext), interfaces.InputProof(req.Proof)
	if req.RequestID != nil {
		err = h.store.StoreAndAllowWithEntropy(r.Context(), caller, req.Key, ct, proof, req.AllowedUser, *req.RequestID)
	} else {
		err = h.store.StoreAndAllow(r.Context(), caller, req.Key, ct, proof, req.AllowedUser)
	}
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	h.log.Info("Value stored", "key", req.Key, "caller", caller.String(), "gated", req.RequestID != nil)
	w.WriteHeader(http.StatusCreated)
}

// HandleStoreBatch writes every entry or none.
//
// URL format: POST /api/store/batch
func (h *Handler) HandleStoreBatch(w http.ResponseWriter, r *http.Request) {
	caller, err := api.RequireCaller(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	var req api.StoreBatchRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	cts := make([]interfaces.Ciphertext, len(req.Ciphertexts))
	for i, c := range req.Ciphertexts {
		cts[i] = interfaces.Ciphertext(c)
	}
	proofs := make([]interfaces.InputProof, len(req.Proofs))
	for i, p := range req.Proofs {
		proofs[i] = interfaces.InputProof(p)
	}

	if req.RequestID != nil {
		err = h.store.StoreAndAllowBatchWithEntropy(r.Context(), caller, req.Keys, cts, proofs, req.AllowedUsers, *req.RequestID)
	} else {
		err = h.store.StoreAndAllowBatch(r.Context(), caller, req.Keys, cts, proofs, req.AllowedUsers)
	}
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	h.log.Info("Batch stored", "count", len(req.Keys), "caller", caller.String(), "gated", req.RequestID != nil)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) HandleGetValue(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	record, err := h.store.GetRecord(r.Context(), key)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, api.ValueResponse{
		Key:            record.Key,
		Ciphertext:     []byte(record.Ciphertext),
		AllowedUser:    record.AllowedUser,
		EntropyRequest: record.EntropyRequest,
		StoredAt:       record.StoredAt,
	})
}

func (h *Handler) HandleKeyStatus(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	initialized, err := h.store.IsKeyInitialized(r.Context(), key)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.KeyStatusResponse{Key: key, Initialized: initialized})
}

func (h *Handler) HandleIsAllowed(w http.ResponseWriter, r *http.Request) {
	key, err := parseKey(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	user, err := interfaces.NewIdentityFromHex(chi.URLParam(r, "user"))
	if err != nil {
		api.WriteError(w, h.log, api.BadRequest("invalid user address: %w", err))
		return
	}

	allowed, err := h.store.IsAllowed(r.Context(), key, user)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.AllowedResponse{Key: key, User: user, Allowed: allowed})
}

func parseKey(r *http.Request) (uint64, error) {
	key, err := strconv.ParseUint(chi.URLParam(r, "key"), 10, 64)
	if err != nil {
		return 0, api.BadRequest("invalid key: %w", err)
	}
	return key, nil
}
