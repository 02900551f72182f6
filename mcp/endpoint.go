package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/kdvector"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id any, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(id),
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

// MethodNotFound answers a request for a method no endpoint serves.
func MethodNotFound(id mcp.RequestId) mcp.JSONRPCMessage {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    mcp.METHOD_NOT_FOUND,
			Message: "method not found",
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

func MakeEndpoints(svc kdvector.Service) map[mcp.MCPMethod]MCPEndpoint {
	return map[mcp.MCPMethod]MCPEndpoint{
		mcp.MethodInitialize: InitializeEndpoint(svc),
		mcp.MethodPing:       PingEndpoint(svc),
		mcp.MethodToolsList:  ListToolsEndpoint(svc),
		mcp.MethodToolsCall:  CallToolEndpoint(svc),
	}
}

const MCPSERVER_INSTRUCTIONS string = `KDVector is an in-memory vector database backed by a KD-tree.

Documents are split into sentence chunks, embedded and indexed. Queries are
embedded the same way and answered with exact nearest neighbours.

Available tools:
- upload_document: Split, embed and index a document
- query: Find the chunks nearest to a natural language query
- get_metadata: Read the metadata stored with a point id
- clear: Remove every point from the index
- stats: Report the number of points and the tree depth`

const (
	ToolUploadDocument = "upload_document"
	ToolQuery          = "query"
	ToolGetMetadata    = "get_metadata"
	ToolClear          = "clear"
	ToolStats          = "stats"
)

var tools = []mcp.Tool{
	mcp.NewTool(ToolUploadDocument,
		mcp.WithDescription("Split a document into sentences, embed them and insert them into the index"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Document text"),
		),
	),
	mcp.NewTool(ToolQuery,
		mcp.WithDescription("Return the indexed chunks nearest to the query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Number of neighbours to return"),
			mcp.DefaultNumber(kdvector.DefaultK),
		),
	),
	mcp.NewTool(ToolGetMetadata,
		mcp.WithDescription("Return the metadata stored with a point"),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Point id"),
		),
	),
	mcp.NewTool(ToolClear,
		mcp.WithDescription("Remove every point from the index"),
	),
	mcp.NewTool(ToolStats,
		mcp.WithDescription("Report the number of points, the dimension and the tree depth"),
	),
}

func Tools() []mcp.Tool {
	return slices.Clone(tools)
}

func InitializeEndpoint(svc kdvector.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "kdvector",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc kdvector.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

func ListToolsEndpoint(svc kdvector.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc kdvector.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		callToolReq := mcp.CallToolRequest{
			Request: mcp.Request{
				Method: string(req.Method),
			},
			Params: params,
		}

		result, err := CallTool(ctx, svc, callToolReq)
		if err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

// CallTool runs a tool against the service. Failures of the tool itself are
// reported inside the result; only an unknown tool is returned as an error.
func CallTool(ctx context.Context, svc kdvector.Service, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		resp any
		err  error
	)

	switch req.Params.Name {
	case ToolUploadDocument:
		text, e := req.RequireString("text")
		if e != nil {
			return mcp.NewToolResultError(e.Error()), nil
		}

		resp, err = svc.Upload(ctx, text)

	case ToolQuery:
		query, e := req.RequireString("query")
		if e != nil {
			return mcp.NewToolResultError(e.Error()), nil
		}

		k := req.GetInt("k", kdvector.DefaultK)
		resp, err = svc.Query(ctx, query, k)

	case ToolGetMetadata:
		id, e := req.RequireInt("id")
		if e != nil {
			return mcp.NewToolResultError(e.Error()), nil
		}

		meta, e := svc.Metadata(ctx, id)
		resp, err = &kdvector.MetadataResponse{ID: id, Metadata: meta}, e

	case ToolClear:
		err = svc.Clear(ctx)
		resp = map[string]string{"status": "cleared"}

	case ToolStats:
		resp, err = svc.Stats(ctx)

	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Params.Name)
	}

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	bs, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(bs)), nil
}
