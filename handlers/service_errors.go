package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/upb/tron-node-provider/internal/observability"
	"github.com/upb/tron-node-provider/internal/shared"
	"github.com/upb/tron-node-provider/services"
	"github.com/upb/tron-node-provider/services/providers"
	"github.com/upb/tron-node-provider/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps node and domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	logger = observability.WithContext(r.Context(), logger)

	if nodeErr, ok := providers.AsNodeError(err); ok {
		writeNodeError(w, nodeErr, logger)
		return
	}

	if isConnectivityError(err) {
		logger.Warn("node unreachable", zap.Error(err))
		details := map[string]interface{}{}
		if role := shared.NodeRole(r.Context()); role != "" {
			details["role"] = role
		}
		if errors.Is(err, context.DeadlineExceeded) {
			details["timeout"] = true
		}
		if err := utils.WriteBadGateway(w, "node_unreachable", "node did not respond", details); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}
		return
	}

	details := services.GetErrorDetails(err)

	// Map error type to HTTP status and response
	switch {
	case services.IsNotFoundError(err):
		if err := utils.WriteNotFound(w, err.Error()); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsUnsupportedError(err):
		w.Header().Set("Allow", "GET, POST")
		if err := utils.WriteError(w, http.StatusMethodNotAllowed, err.Error(), details); err != nil {
			logger.Error("failed to write method not allowed response", zap.Error(err))
		}

	case services.IsConflictError(err):
		if err := utils.WriteError(w, http.StatusConflict, err.Error(), details); err != nil {
			logger.Error("failed to write conflict response", zap.Error(err))
		}

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		// Unknown error type - log and return internal error
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// writeNodeError relays a node's own error status. Statuses that describe the
// caller's request pass through; everything else is the node's fault and
// becomes 502.
func writeNodeError(w http.ResponseWriter, nodeErr *providers.NodeError, logger *zap.Logger) {
	details := map[string]interface{}{
		"node_status": nodeErr.StatusCode,
		"node_kind":   string(nodeErr.Kind),
	}
	if nodeErr.Info != nil {
		details["node_response"] = nodeErr.Info
	} else if nodeErr.Text != "" {
		details["node_response"] = nodeErr.Text
	}

	status := GatewayStatus(nodeErr.Kind)
	logger.Warn("node returned error",
		zap.Int("node_status", nodeErr.StatusCode),
		zap.String("kind", string(nodeErr.Kind)),
		zap.Int("status", status))

	var err error
	if status == http.StatusBadGateway {
		err = utils.WriteBadGateway(w, "bad_gateway", nodeErr.Error(), details)
	} else {
		err = utils.WriteError(w, status, nodeErr.Error(), details)
	}
	if err != nil {
		logger.Error("failed to write node error response", zap.Error(err))
	}
}

// GatewayStatus returns the status the gateway answers with for a node error kind.
func GatewayStatus(kind providers.ErrorKind) int {
	switch kind {
	case providers.KindBadRequest:
		return http.StatusBadRequest
	case providers.KindUnauthorized:
		return http.StatusUnauthorized
	case providers.KindForbidden:
		return http.StatusForbidden
	case providers.KindNotFound:
		return http.StatusNotFound
	case providers.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// isConnectivityError reports whether err happened before any node response.
func isConnectivityError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	// Generic validation error
	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
