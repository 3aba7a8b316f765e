package providers

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/upb/tron-node-provider/services"
)

// Role names the part a node plays in a Tron deployment.
type Role string

const (
	RoleFullNode     Role = "full_node"
	RoleSolidityNode Role = "solidity_node"
	RoleEventServer  Role = "event_server"
)

// Roles lists every known role in routing order.
var Roles = []Role{RoleFullNode, RoleSolidityNode, RoleEventServer}

// StatusPage returns the default liveness path for the role.
func (r Role) StatusPage() string {
	switch r {
	case RoleSolidityNode:
		return "/walletsolidity/getnowblock"
	case RoleEventServer:
		return "/healthcheck"
	default:
		return "/wallet/getnowblock"
	}
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", services.NewDomainError(services.ErrorTypeValidation, "invalid node role", nil).
		WithDetail("role", s)
}

// Route picks the role that serves path.
func Route(path string) Role {
	switch {
	case strings.HasPrefix(path, "/walletsolidity"), strings.HasPrefix(path, "/walletextension"):
		return RoleSolidityNode
	case strings.HasPrefix(path, "/event"), strings.HasPrefix(path, "/healthcheck"):
		return RoleEventServer
	default:
		return RoleFullNode
	}
}

// Registry holds one provider per role.
type Registry struct {
	mu    sync.RWMutex
	nodes map[Role]Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[Role]Provider),
	}
}

// Register binds a provider to a role.
func (r *Registry) Register(role Role, provider Provider) error {
	if provider == nil {
		return services.NewDomainError(services.ErrorTypeValidation, "provider cannot be nil", nil)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[role]; exists {
		return services.NewDomainError(services.ErrorTypeConflict, "node already registered", nil).
			WithDetail("role", string(role))
	}

	r.nodes[role] = provider
	return nil
}

// Get retrieves the provider bound to role.
func (r *Registry) Get(role Role) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.nodes[role]
	if !exists {
		return nil, services.NewDomainError(services.ErrorTypeNotFound, "node not registered", nil).
			WithDetail("role", string(role))
	}
	return provider, nil
}

// Roles returns the registered roles, sorted.
func (r *Registry) Roles() []Role {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]Role, 0, len(r.nodes))
	for role := range r.nodes {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Count returns the number of registered nodes
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Request routes path to its node and performs the call there. Only GET and
// POST are accepted, matching the node HTTP API.
func (r *Registry) Request(ctx context.Context, method, path string, body any, query url.Values) (any, error) {
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodPost {
		return nil, services.NewDomainError(services.ErrorTypeUnsupported, "unsupported HTTP method", nil).
			WithDetail("method", method)
	}

	provider, err := r.Get(Route(path))
	if err != nil {
		return nil, err
	}
	return provider.Request(ctx, method, path, body, query)
}

// Status checks every registered node concurrently.
func (r *Registry) Status(ctx context.Context) map[Role]bool {
	r.mu.RLock()
	nodes := make(map[Role]Provider, len(r.nodes))
	for role, p := range r.nodes {
		nodes[role] = p
	}
	r.mu.RUnlock()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[Role]bool, len(nodes))
	)
	for role, p := range nodes {
		wg.Add(1)
		go func(role Role, p Provider) {
			defer wg.Done()
			ok := p.IsConnected(ctx)
			mu.Lock()
			out[role] = ok
			mu.Unlock()
		}(role, p)
	}
	wg.Wait()

	return out
}
