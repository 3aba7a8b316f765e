package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/upb/tron-node-provider/internal/observability"
	"github.com/upb/tron-node-provider/internal/shared"
	"github.com/upb/tron-node-provider/services"
	"github.com/upb/tron-node-provider/services/providers"
	"github.com/upb/tron-node-provider/utils"
	"go.uber.org/zap"
)

// allowedMethods are the HTTP methods the node API understands.
var allowedMethods = []string{http.MethodGet, http.MethodPost}

// nodeRequest is the validated form of a forwarded call.
type nodeRequest struct {
	Method string `validate:"required,oneof=GET POST"`
	Path   string `validate:"required,startswith=/,excludes=.."`
}

// NodeHandler forwards gateway requests to Tron nodes.
type NodeHandler struct {
	nodes  NodeGateway
	logger *zap.Logger
}

// NewNodeHandler creates a new NodeHandler
func NewNodeHandler(nodes NodeGateway, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		nodes:  nodes,
		logger: observability.OrNop(logger),
	}
}

// HandleNodeRequest handles ANY /api/v1/node/{role}/*
// The remainder of the URL path is sent to the node bound to role.
func (h *NodeHandler) HandleNodeRequest(w http.ResponseWriter, r *http.Request) {
	role, err := providers.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	provider, err := h.nodes.Get(role)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	body, err := readJSONBody(w, r)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	r = r.WithContext(shared.WithNodeRole(r.Context(), string(role)))
	data, err := provider.Request(r.Context(), req.Method, req.Path, body, cloneQuery(r.URL.Query()))
	h.respond(w, r, data, err)
}

// HandleRoutedRequest handles ANY /api/v1/route/*
// The node is picked from the path prefix (see providers.Route).
func (h *NodeHandler) HandleRoutedRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	body, err := readJSONBody(w, r)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	r = r.WithContext(shared.WithNodeRole(r.Context(), string(providers.Route(req.Path))))
	data, err := h.nodes.Request(r.Context(), req.Method, req.Path, body, cloneQuery(r.URL.Query()))
	h.respond(w, r, data, err)
}

func (h *NodeHandler) parseRequest(w http.ResponseWriter, r *http.Request) (nodeRequest, bool) {
	if err := utils.ValidateOneOf(r.Method, "method", allowedMethods); err != nil {
		HandleServiceError(w, r, services.NewDomainError(services.ErrorTypeUnsupported, "unsupported HTTP method", err).
			WithDetail("method", r.Method), h.logger)
		return nodeRequest{}, false
	}

	req := nodeRequest{
		Method: r.Method,
		Path:   "/" + chi.URLParam(r, "*"),
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return nodeRequest{}, false
	}
	return req, true
}

func (h *NodeHandler) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	if err := utils.WriteOK(w, data); err != nil {
		observability.WithContext(r.Context(), h.logger).Error("failed to write node response", zap.Error(err))
	}
}

func cloneQuery(q url.Values) url.Values {
	if len(q) == 0 {
		return nil
	}
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
