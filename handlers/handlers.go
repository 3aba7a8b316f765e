package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/upb/tron-node-provider/services"
	"github.com/upb/tron-node-provider/services/providers"
)

// maxBodyBytes bounds request bodies forwarded to a node.
const maxBodyBytes = 4 << 20

// NodeGateway is the part of providers.Registry the handlers depend on.
type NodeGateway interface {
	Get(role providers.Role) (providers.Provider, error)
	Request(ctx context.Context, method, path string, body any, query url.Values) (any, error)
	Status(ctx context.Context) map[providers.Role]bool
	Roles() []providers.Role
}

var _ NodeGateway = (*providers.Registry)(nil)

// readJSONBody returns the request body as raw JSON, or nil when the body is
// empty. The payload is forwarded untouched, so only well-formedness is checked.
func readJSONBody(w http.ResponseWriter, r *http.Request) (any, error) {
	if r.Body == nil {
		return nil, nil
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "request body too large", err).
				WithDetail("limit_bytes", tooLarge.Limit)
		}
		return nil, services.WrapValidation("failed to read request body", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, services.ErrInvalidPayload
	}
	return json.RawMessage(raw), nil
}
