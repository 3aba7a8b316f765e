package handlers

import (
	"net/http"

	"github.com/upb/tron-node-provider/services/providers"
	"github.com/upb/tron-node-provider/utils"
)

// NodeInfo describes one registered node in the status response.
type NodeInfo struct {
	Role       string `json:"role"`
	URL        string `json:"url"`
	StatusPage string `json:"status_page"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Version     string     `json:"version"`
	Environment string     `json:"environment"`
	Nodes       []NodeInfo `json:"nodes"`
}

// StatusHandler returns application status information. It does not contact
// the nodes; use /readyz for that.
func StatusHandler(nodes NodeGateway, environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := StatusResponse{
			Version:     providers.Version,
			Environment: environment,
			Nodes:       []NodeInfo{},
		}

		for _, role := range nodes.Roles() {
			provider, err := nodes.Get(role)
			if err != nil {
				continue
			}
			response.Nodes = append(response.Nodes, NodeInfo{
				Role:       string(role),
				URL:        provider.NodeURL(),
				StatusPage: role.StatusPage(),
			})
		}

		_ = utils.WriteOK(w, response)
	}
}
