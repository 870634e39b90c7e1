// Package jsonrpc exposes the aggregation engine over a JSON-RPC 2.0
// surface on top of Gin, the same HTTP stack the rest of this codebase
// uses for its external interfaces.
package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/graphprotocol/tap-aggregator/internal/audit"
	"github.com/graphprotocol/tap-aggregator/internal/tap"
)

const (
	// CodeUnsupportedVersion is returned when api_version is neither
	// supported nor deprecated.
	CodeUnsupportedVersion = -32001
	// CodeAggregationError covers every other cryptographic/invariant
	// failure inside the engine.
	CodeAggregationError = -32002
	// CodeDeprecationWarning is the code for a deprecated-but-accepted
	// api_version. The aggregation methods do not emit it: a deprecated
	// version is reported as the plain string "api_version is deprecated"
	// under "warnings", with no code attached.
	CodeDeprecationWarning = -32051
)

// Request is a JSON-RPC 2.0 request object. params is decoded lazily per
// method, since aggregate_receipts and api_versions take different shapes.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

// Response is a JSON-RPC 2.0 response object.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Server dispatches JSON-RPC calls onto a tap.Engine.
type Server struct {
	engine   *tap.Engine
	versions tap.VersionSet
	log      *zap.Logger
	audit    audit.Sink
}

// NewServer constructs a Server. sink may be nil, in which case no
// aggregation outcome is recorded.
func NewServer(engine *tap.Engine, versions tap.VersionSet, log *zap.Logger, sink audit.Sink) *Server {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	return &Server{engine: engine, versions: versions, log: log, audit: sink}
}

// Register mounts the single JSON-RPC endpoint onto rg.
func (s *Server) Register(rg *gin.RouterGroup) {
	rg.POST("/", s.handle)
}

func (s *Server) handle(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, Response{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: CodeAggregationError, Message: "invalid request"},
		})
		return
	}

	resp := Response{JSONRPC: "2.0", ID: req.ID}
	ctx := c.Request.Context()

	switch req.Method {
	case "api_versions":
		resp.Result = apiVersionsResult{
			VersionsSupported:  s.versions.Supported,
			VersionsDeprecated: s.versions.Deprecated,
		}
	case "aggregate_receipts":
		result, warnings, err := s.dispatchV1(ctx, req.Params)
		if err != nil {
			resp.Error = s.mapError(err)
		} else {
			resp.Result = aggregateResult{Data: result, Warnings: warnings}
		}
	case "aggregate_receipts_v2":
		result, warnings, err := s.dispatchV2(ctx, req.Params)
		if err != nil {
			resp.Error = s.mapError(err)
		} else {
			resp.Result = aggregateResult{Data: result, Warnings: warnings}
		}
	default:
		resp.Error = &RPCError{Code: CodeAggregationError, Message: "unknown method: " + req.Method}
	}

	c.JSON(http.StatusOK, resp)
}

type apiVersionsResult struct {
	VersionsSupported  []string `json:"versions_supported"`
	VersionsDeprecated []string `json:"versions_deprecated"`
}

type aggregateResult struct {
	Data     any      `json:"data"`
	Warnings []string `json:"warnings,omitempty"`
}

// aggregateParams is the positional [api_version, receipts[], previous_rav?]
// shape shared by both aggregation methods.
type aggregateParams struct {
	APIVersion  string
	Receipts    json.RawMessage
	PreviousRav json.RawMessage
}

func decodeParams(raw json.RawMessage) (aggregateParams, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return aggregateParams{}, err
	}
	if len(arr) < 2 {
		return aggregateParams{}, tap.NewError(tap.SchemaError, "params must be [api_version, receipts[], previous_rav?]")
	}
	var p aggregateParams
	if err := json.Unmarshal(arr[0], &p.APIVersion); err != nil {
		return aggregateParams{}, err
	}
	p.Receipts = arr[1]
	if len(arr) >= 3 {
		p.PreviousRav = arr[2]
	}
	return p, nil
}

func (s *Server) dispatchV1(ctx context.Context, raw json.RawMessage) (*tap.SignedRavV1, []string, error) {
	p, err := decodeParams(raw)
	if err != nil {
		return nil, nil, tap.WrapError(tap.SchemaError, "decode params", err)
	}
	var receipts []tap.SignedReceiptV1
	if err := json.Unmarshal(p.Receipts, &receipts); err != nil {
		return nil, nil, tap.WrapError(tap.SchemaError, "decode receipts", err)
	}
	var previous *tap.SignedRavV1
	if len(p.PreviousRav) > 0 && string(p.PreviousRav) != "null" {
		previous = &tap.SignedRavV1{}
		if err := json.Unmarshal(p.PreviousRav, previous); err != nil {
			return nil, nil, tap.WrapError(tap.SchemaError, "decode previous_rav", err)
		}
	}

	result, err := s.engine.AggregateV1(ctx, tap.AggregateRequestV1{
		APIVersion:  p.APIVersion,
		Receipts:    receipts,
		PreviousRav: previous,
	})
	if err != nil {
		if kind, ok := tap.KindOf(err); ok {
			s.audit.RecordFailure(tap.V1, kind, err.Error())
		}
		return nil, nil, err
	}
	s.audit.RecordSuccess(tap.V1, result.Rav.Message.AllocationID.Hex(), len(receipts))
	var warnings []string
	if result.Deprecated {
		warnings = append(warnings, "api_version is deprecated")
	}
	return &result.Rav, warnings, nil
}

func (s *Server) dispatchV2(ctx context.Context, raw json.RawMessage) (*tap.SignedRavV2, []string, error) {
	p, err := decodeParams(raw)
	if err != nil {
		return nil, nil, tap.WrapError(tap.SchemaError, "decode params", err)
	}
	var receipts []tap.SignedReceiptV2
	if err := json.Unmarshal(p.Receipts, &receipts); err != nil {
		return nil, nil, tap.WrapError(tap.SchemaError, "decode receipts", err)
	}
	var previous *tap.SignedRavV2
	if len(p.PreviousRav) > 0 && string(p.PreviousRav) != "null" {
		previous = &tap.SignedRavV2{}
		if err := json.Unmarshal(p.PreviousRav, previous); err != nil {
			return nil, nil, tap.WrapError(tap.SchemaError, "decode previous_rav", err)
		}
	}

	result, err := s.engine.AggregateV2(ctx, tap.AggregateRequestV2{
		APIVersion:  p.APIVersion,
		Receipts:    receipts,
		PreviousRav: previous,
	})
	if err != nil {
		if kind, ok := tap.KindOf(err); ok {
			s.audit.RecordFailure(tap.V2, kind, err.Error())
		}
		return nil, nil, err
	}
	s.audit.RecordSuccess(tap.V2, result.Rav.Message.CollectionID.Hex(), len(receipts))
	var warnings []string
	if result.Deprecated {
		warnings = append(warnings, "api_version is deprecated")
	}
	return &result.Rav, warnings, nil
}

func (s *Server) mapError(err error) *RPCError {
	kind, ok := tap.KindOf(err)
	if !ok {
		s.log.Error("unclassified aggregation error", zap.Error(err))
		return &RPCError{Code: CodeAggregationError, Message: "internal error"}
	}
	if kind == tap.VersionError {
		return &RPCError{
			Code:    CodeUnsupportedVersion,
			Message: err.Error(),
			Data: apiVersionsResult{
				VersionsSupported:  s.versions.Supported,
				VersionsDeprecated: s.versions.Deprecated,
			},
		}
	}
	return &RPCError{Code: CodeAggregationError, Message: err.Error()}
}
