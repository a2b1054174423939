package mcp

import "ontolock/internal/version"

// ProtocolVersion is the MCP revision this server speaks
const ProtocolVersion = "2024-11-05"

// ServerCapabilities represents the capabilities exposed by the server
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability represents the tools capability
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerInfo identifies the server to the client
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult represents the result of the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

func (s *Server) handleInitialize(params map[string]interface{}) *InitializeResult {
	s.logger.Info("Tool server initializing", "clientInfo", params["clientInfo"])
	s.initialized.Store(true)

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			// Hot reload can change the approved surface mid-session.
			Tools: &ToolsCapability{ListChanged: true},
		},
		ServerInfo: ServerInfo{
			Name:    "ontolock",
			Version: version.Version,
		},
		Instructions: "Tools are the functions of the approved ontology reachable by this caller. " +
			"Fields listed in fieldReferences take their values from the named function's output.",
	}
}
