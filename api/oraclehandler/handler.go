package oraclehandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/entropy-vault/api"
	"github.com/ruteri/entropy-vault/interfaces"
)

// HandlerOracle is the oracle surface served over HTTP.
type HandlerOracle interface {
	interfaces.EntropyOracle
	PendingRequests(ctx context.Context) ([]interfaces.EntropyRequest, error)
}

// Handler exposes the entropy oracle. Reads are public; requesting,
// fulfilling and changing the fee require a signed caller.
type Handler struct {
	oracle HandlerOracle
	auth   *api.Authenticator
	log    *slog.Logger
}

func NewHandler(oracle HandlerOracle, auth *api.Authenticator, log *slog.Logger) *Handler {
	return &Handler{oracle: oracle, auth: auth, log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/oracle/fee", h.HandleGetFee)
	r.Get("/api/oracle/requests/pending", h.HandlePending)
	r.Get("/api/oracle/requests/{request_id}", h.HandleGetRequest)
	r.Get("/api/oracle/requests/{request_id}/value", h.HandleGetValue)

	r.With(h.auth.Middleware).Put("/api/oracle/fee", h.HandleSetFee)
	r.With(h.auth.Middleware).Post("/api/oracle/requests", h.HandleRequestEntropy)
	r.With(h.auth.Middleware).Post("/api/oracle/requests/{request_id}/fulfill", h.HandleFulfill)
}

func (h *Handler) HandleGetFee(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, api.FeeMessage{Fee: h.oracle.GetFee()})
}

// HandleSetFee updates the minimum fee. Admin only.
//
// URL format: PUT /api/oracle/fee
// Request body: {"fee": <integer>}
func (h *Handler) HandleSetFee(w http.ResponseWriter, r *http.Request) {
	caller, err := api.RequireCaller(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	var req api.FeeMessage
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	if req.Fee == nil {
		api.WriteError(w, h.log, api.BadRequest("missing fee"))
		return
	}

	if err := h.oracle.SetFee(r.Context(), caller, req.Fee); err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.FeeMessage{Fee: h.oracle.GetFee()})
}

// HandleRequestEntropy records a request on behalf of the signed caller.
//
// URL format: POST /api/oracle/requests
// Request body: {"tag": "0x<32 bytes>", "fee": <integer>}
// Response: 201 with {"request_id": "0x..."}
func (h *Handler) HandleRequestEntropy(w http.ResponseWriter, r *http.Request) {
	caller, err := api.RequireCaller(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	var req api.RequestEntropyRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	id, err := h.oracle.RequestEntropy(r.Context(), caller, req.Tag, req.Fee)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	h.log.Info("Entropy requested", "requestID", id.String(), "requester", caller.String())
	api.WriteJSON(w, http.StatusCreated, api.RequestEntropyResponse{RequestID: id})
}

// HandleFulfill binds a value to a pending request. Fulfiller only.
//
// URL format: POST /api/oracle/requests/{request_id}/fulfill
// Request body: {"value": "0x..."}
func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	caller, err := api.RequireCaller(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	id, err := interfaces.NewRequestIDFromHex(chi.URLParam(r, "request_id"))
	if err != nil {
		api.WriteError(w, h.log, api.BadRequest("invalid request id: %w", err))
		return
	}

	var req api.FulfillRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	if err := h.oracle.FulfillEntropy(r.Context(), caller, id, interfaces.Ciphertext(req.Value)); err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := interfaces.NewRequestIDFromHex(chi.URLParam(r, "request_id"))
	if err != nil {
		api.WriteError(w, h.log, api.BadRequest("invalid request id: %w", err))
		return
	}

	req, err := h.oracle.GetRequest(r.Context(), id)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewEntropyRequestResponse(req))
}

// HandleGetValue returns the fulfilled value, or 425 while the request is pending.
func (h *Handler) HandleGetValue(w http.ResponseWriter, r *http.Request) {
	id, err := interfaces.NewRequestIDFromHex(chi.URLParam(r, "request_id"))
	if err != nil {
		api.WriteError(w, h.log, api.BadRequest("invalid request id: %w", err))
		return
	}

	value, err := h.oracle.GetRequestValue(r.Context(), id)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.RequestValueResponse{RequestID: id, Value: []byte(value)})
}

func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.oracle.PendingRequests(r.Context())
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	resp := make([]api.EntropyRequestResponse, 0, len(pending))
	for _, req := range pending {
		resp = append(resp, api.NewEntropyRequestResponse(req))
	}
	api.WriteJSON(w, http.StatusOK, resp)
}
