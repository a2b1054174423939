package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"ontolock/internal/access"
	"ontolock/internal/errors"
	"ontolock/internal/ontology"
	"ontolock/internal/resolver"
)

// handleMessage processes an incoming message and returns a response,
// or nil when none is due
func (s *Server) handleMessage(ctx context.Context, msg *Message) *Message {
	if msg.Jsonrpc != "2.0" {
		if msg.Id == nil {
			return nil
		}
		return NewErrorMessage(msg.Id, InvalidRequest, "Invalid request: jsonrpc must be \"2.0\"", nil)
	}

	switch {
	case msg.IsRequest():
		return s.handleRequest(ctx, msg)
	case msg.IsNotification():
		s.handleNotification(msg)
		return nil
	case msg.IsResponse():
		// This server never issues requests to the client.
		s.logger.Debug("Ignoring response", "id", msg.Id)
		return nil
	default:
		return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
	}
}

// handleRequest handles a JSON-RPC request
func (s *Server) handleRequest(ctx context.Context, msg *Message) *Message {
	s.logger.Debug("Handling request", "method", msg.Method, "id", msg.Id)

	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		if msg.Params != nil {
			return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
		}
		params = map[string]interface{}{}
	}

	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.Id, s.handleInitialize(params))
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	case "tools/list":
		result, err := s.handleListTools(ctx, params)
		return s.respond(msg.Id, result, err)
	case "tools/call":
		result, err := s.handleCallTool(ctx, params)
		return s.respond(msg.Id, result, err)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

// handleNotification handles a JSON-RPC notification
func (s *Server) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized")
	case "notifications/cancelled":
		s.logger.Debug("Client cancelled a request", "params", msg.Params)
	default:
		s.logger.Debug("Unknown notification", "method", msg.Method)
	}
}

func (s *Server) respond(id interface{}, result interface{}, err error) *Message {
	if err != nil {
		return s.errorMessage(id, err)
	}
	return NewResultMessage(id, result)
}

// errorMessage maps domain errors onto JSON-RPC codes. Caller mistakes are
// InvalidParams; everything else is InternalError.
func (s *Server) errorMessage(id interface{}, err error) *Message {
	var rpcErr *RPCError
	if stderrors.As(err, &rpcErr) {
		return NewErrorMessage(id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}

	code := InternalError
	switch errors.CodeOf(err) {
	case errors.FunctionNotFound, errors.AccessDenied, errors.InvalidArguments:
		code = InvalidParams
	case errors.Unauthorized:
		code = InvalidRequest
	}
	if data := errorData(err); data != nil {
		return NewErrorMessage(id, code, err.Error(), data)
	}
	return NewErrorMessage(id, code, err.Error(), nil)
}

func errorData(err error) map[string]interface{} {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return nil
	}
	data := map[string]interface{}{"code": e.Code}
	if e.Details != nil {
		data["details"] = e.Details
	}
	return data
}

// snapshot takes the single ontology snapshot a request works against and
// resolves the caller.
func (s *Server) snapshot(ctx context.Context, params map[string]interface{}) (*access.Filter, error) {
	if s.holder == nil || s.holder.Current() == nil {
		return nil, errors.Errorf(errors.InternalError, "no ontology is loaded")
	}
	def := s.holder.Current()

	p, err := s.principalFor(ctx, def, params)
	if err != nil {
		return nil, err
	}
	return access.NewFilter(def, p), nil
}

// principalFor runs the ontology's auth hook when the request carries a
// token, and otherwise uses the configured principal.
func (s *Server) principalFor(ctx context.Context, def *ontology.Definition, params map[string]interface{}) (ontology.Principal, error) {
	hook := def.Auth()
	if hook == nil {
		return s.principal, nil
	}
	meta, _ := params["_meta"].(map[string]interface{})
	token, _ := meta["token"].(string)
	if token == "" {
		return s.principal, nil
	}
	p, err := hook(ctx, token)
	if err != nil {
		if errors.CodeOf(err) != "" {
			return ontology.Principal{}, err
		}
		return ontology.Principal{}, errors.NewError(errors.Unauthorized, "token was not accepted", err)
	}
	return p, nil
}

// ListToolsResult is the result of tools/list
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// handleListTools returns the caller's reachable tools with cursor-based
// pagination.
func (s *Server) handleListTools(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	filter, err := s.snapshot(ctx, params)
	if err != nil {
		return nil, err
	}

	tools := BuildTools(filter)
	hash := ComputeToolsetHash(tools)

	cursor, _ := params["cursor"].(string)
	offset, err := DecodeToolsCursor(cursor, hash)
	if err != nil {
		return nil, err
	}

	page, next := PaginateTools(tools, offset, s.pageSize, hash)
	return &ListToolsResult{Tools: page, NextCursor: next}, nil
}

// Content is one block of a tools/call result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result of tools/call
type CallToolResult struct {
	Content           []Content   `json:"content"`
	StructuredContent interface{} `json:"structuredContent,omitempty"`
	IsError           bool        `json:"isError,omitempty"`
}

// handleCallTool re-checks reachability, injects context, validates and
// forwards to the bound resolver.
func (s *Server) handleCallTool(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return nil, errors.Errorf(errors.InvalidArguments, "tools/call requires a tool name")
	}
	args := map[string]interface{}{}
	if raw, present := params["arguments"]; present && raw != nil {
		if args, ok = raw.(map[string]interface{}); !ok {
			return nil, errors.Errorf(errors.InvalidArguments, "arguments must be an object")
		}
	}

	filter, err := s.snapshot(ctx, params)
	if err != nil {
		return nil, err
	}
	fn, prepared, err := filter.Prepare(name, args)
	if err != nil {
		return nil, err
	}

	env, _ := filter.Definition().Environment(s.environment)
	s.logger.Info("Calling tool", "tool", name, "resolver", fn.Resolver)

	out, err := s.resolvers.Dispatch(ctx, fn, resolver.Call{
		Args:        prepared,
		Principal:   filter.Principal(),
		Environment: env,
	})
	if err != nil {
		// Resolver failures are tool errors the client can show, not
		// protocol errors.
		s.logger.Warn("Tool call failed", "tool", name, "error", err.Error())
		return toolError(err), nil
	}
	return toolResult(out)
}

func toolResult(out interface{}) (*CallToolResult, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.NewError(errors.InternalError, "resolver result is not JSON-encodable", err)
	}
	res := &CallToolResult{Content: []Content{{Type: "text", Text: string(data)}}}
	if obj, ok := out.(map[string]interface{}); ok {
		res.StructuredContent = obj
	}
	return res, nil
}

func toolError(err error) *CallToolResult {
	body := map[string]interface{}{"error": err.Error()}
	for k, v := range errorData(err) {
		body[k] = v
	}
	data, _ := json.Marshal(body)
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: string(data)}},
		IsError: true,
	}
}
