package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/goccy/go-json"

	"github.com/hyperpolymath/obli-transpiler-framework/artifact"
	"github.com/hyperpolymath/obli-transpiler-framework/compiler"
)

// Connect procedure paths served by the transpile service.
const (
	TranspileProcedure = "/obli.v1.TranspileService/Transpile"
	CheckProcedure     = "/obli.v1.TranspileService/Check"
	AnalyzeProcedure   = "/obli.v1.TranspileService/Analyze"
)

// TranspileRequest asks for MiniObli source to be compiled.
type TranspileRequest struct {
	Source string `json:"source"`
}

// TranspileResponse carries the emitted constant-time Go code.
type TranspileResponse struct {
	Code   string `json:"code"`
	Secret bool   `json:"secret"`
	Cached bool   `json:"cached"`
}

// CheckRequest asks for source to be validated without emitting code.
type CheckRequest struct {
	Source string `json:"source"`
}

// CheckResponse reports validation outcome. Diagnostic is empty when the
// source is valid.
type CheckResponse struct {
	Valid      bool   `json:"valid"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// AnalyzeRequest asks for the secrecy structure of a program.
type AnalyzeRequest struct {
	Source string `json:"source"`
}

// AnalyzeResponse wraps the compiler's secrecy report.
type AnalyzeResponse struct {
	Report *compiler.Report `json:"report"`
}

// TranspileService implements the Connect handlers for the transpiler.
type TranspileService struct {
	store *artifact.Store // optional artifact cache
}

// NewTranspileService creates a TranspileService. The store may be nil, in
// which case every request is compiled from scratch.
func NewTranspileService(store *artifact.Store) *TranspileService {
	return &TranspileService{store: store}
}

// Transpile compiles a MiniObli program to constant-time Go, consulting
// the artifact cache when one is configured.
func (s *TranspileService) Transpile(
	ctx context.Context,
	req *connect.Request[TranspileRequest],
) (*connect.Response[TranspileResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	key := artifact.SourceKey(source)
	if s.store != nil {
		if entry, err := s.store.Get(key); err == nil {
			ir, err := artifact.DecodeIR(entry.IR)
			if err == nil {
				return connect.NewResponse(&TranspileResponse{
					Code:   entry.Code,
					Secret: ir.IsSecret(),
					Cached: true,
				}), nil
			}
			// A corrupt cache entry falls through to a fresh compile.
		} else if !errors.Is(err, artifact.ErrNotFound) {
			log.Errorf("cache lookup for %s: %s", key, err)
		}
	}

	tokens, err := compiler.Tokenize(source)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	ast, err := compiler.NewParser(tokens).Parse()
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	ir := compiler.ToOblivious(ast)
	code := compiler.Emit(ir)

	if s.store != nil {
		if encoded, err := artifact.EncodeIR(ir); err == nil {
			entry := &artifact.Entry{Key: key, IR: encoded, Code: code, CreatedAt: time.Now()}
			if err := s.store.Put(entry); err != nil {
				log.Errorf("cache store for %s: %s", key, err)
			}
		}
	}

	return connect.NewResponse(&TranspileResponse{
		Code:   code,
		Secret: ir.IsSecret(),
	}), nil
}

// Check validates a MiniObli program. Invalid source is not an RPC error;
// the diagnostic is part of the response.
func (s *TranspileService) Check(
	ctx context.Context,
	req *connect.Request[CheckRequest],
) (*connect.Response[CheckResponse], error) {
	if req.Msg.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	if err := compiler.Check(req.Msg.Source); err != nil {
		return connect.NewResponse(&CheckResponse{Valid: false, Diagnostic: err.Error()}), nil
	}
	return connect.NewResponse(&CheckResponse{Valid: true}), nil
}

// Analyze reports the secrecy structure of a MiniObli program.
func (s *TranspileService) Analyze(
	ctx context.Context,
	req *connect.Request[AnalyzeRequest],
) (*connect.Response[AnalyzeResponse], error) {
	if req.Msg.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	report, err := compiler.Analyze(req.Msg.Source)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(&AnalyzeResponse{Report: report}), nil
}

// jsonCodec lets Connect serve plain JSON messages without generated
// protobuf types.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (jsonCodec) Unmarshal(data []byte, message any) error {
	return json.Unmarshal(data, message)
}
