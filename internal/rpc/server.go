// Package rpc implements the line-delimited JSON-RPC 2.0 framing layer
// described in spec.md §4.A: one JSON object per input line, responses and
// notifications serialized through a single output lock so payloads never
// interleave.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Method handles one request's params and returns a JSON-serializable
// result or an error (ideally an *rpcerr.Error; anything else is mapped to
// INTERNAL_ERROR at the boundary, per spec.md §7's propagation policy).
type Method func(ctx context.Context, params Params) (any, error)

// Server owns the output lock and the method table. It is not safe to call
// Handle concurrently with Serve.
type Server struct {
	out    io.Writer
	outMu  sync.Mutex
	log    zerolog.Logger
	method map[string]Method

	// sem bounds concurrent handler execution to 1, belt-and-suspenders on
	// top of Serve's single-goroutine read loop, grounded on the jrpc2
	// reference server's semaphore.Weighted(1) concurrency bound.
	sem *semaphore.Weighted

	// ShutdownFunc, when non-nil, is invoked after the "shutdown" response
	// is flushed. It is nil by default; Serve itself returns nil once a
	// shutdown request has been handled.
	ShutdownFunc func()

	shutdownRequested bool
}

func NewServer(out io.Writer, log zerolog.Logger) *Server {
	return &Server{
		out:    out,
		log:    log,
		method: make(map[string]Method),
		sem:    semaphore.NewWeighted(1),
	}
}

func (s *Server) Handle(name string, fn Method) {
	s.method[name] = fn
}

// Serve reads one JSON object per line from in until EOF, ctx cancellation,
// or a "shutdown" request. It never returns a non-nil error for a
// malformed line (those become PARSE_ERROR responses); it returns ctx.Err()
// when ctx is cancelled, and otherwise an error only for unrecoverable I/O
// failures on in.
func (s *Server) Serve(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Copy: scanner's buffer is reused on the next Scan.
		lineCopy := append([]byte(nil), line...)
		s.handleLine(ctx, lineCopy)
		if s.shutdownRequested {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("rpc: reading stdin: %w", err)
	}
	return nil
}

func (s *Server) handleLine(ctx context.Context, line []byte) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.writeResponse(nil, nil, rpcerr.ParseError("invalid JSON: %v", err))
		return
	}
	if req.JSONRPC != "2.0" {
		s.writeResponse(req.ID, nil, rpcerr.InvalidRequest(`"jsonrpc" must be "2.0"`))
		return
	}
	if req.Method == "" {
		s.writeResponse(req.ID, nil, rpcerr.InvalidRequest(`"method" must be a non-empty string`))
		return
	}

	switch req.Method {
	case "ping":
		s.writeResponse(req.ID, map[string]bool{"pong": true}, nil)
		return
	case "shutdown":
		s.writeResponse(req.ID, map[string]string{"status": "shutting_down"}, nil)
		s.shutdownRequested = true
		if s.ShutdownFunc != nil {
			s.ShutdownFunc()
		}
		return
	}

	fn, ok := s.method[req.Method]
	if !ok {
		s.writeResponse(req.ID, nil, rpcerr.MethodNotFound(req.Method))
		return
	}

	params, err := ParseParams(req.Params)
	if err != nil {
		s.writeResponse(req.ID, nil, rpcerr.As(err))
		return
	}

	result, err := s.invoke(ctx, fn, params)
	if err != nil {
		s.writeResponse(req.ID, nil, rpcerr.As(err))
		return
	}
	s.writeResponse(req.ID, result, nil)
}

// invoke recovers from panics in handlers the way spec.md §7 requires non-
// domain failures to be caught and mapped rather than crashing the process.
// Acquiring sem before calling fn serializes session-mutating handlers even
// if a future caller dispatches requests off the single-goroutine read loop.
func (s *Server) invoke(ctx context.Context, fn Method, params Params) (result any, err error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, rpcerr.Newf(rpcerr.CodeInternalError, "internal error: %v", err)
	}
	defer s.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("rpc handler panicked")
			err = rpcerr.Newf(rpcerr.CodeInternalError, "internal error: %v", r)
		}
	}()
	return fn(ctx, params)
}

func (s *Server) writeResponse(id *int64, result any, err *rpcerr.Error) {
	resp := response{JSONRPC: "2.0", ID: id, Result: result}
	if err != nil {
		resp.Error = &errorWire{Code: err.Code, Message: err.Message, Data: err.Data}
	}
	s.writeLine(resp)
}

// Notify emits an asynchronous "event" notification; safe to call from the
// event-loop goroutine concurrently with request handling, serialized by
// the same output lock a response write uses.
func (s *Server) Notify(eventType string, data any) {
	s.writeLine(notification{
		JSONRPC: "2.0",
		Method:  "event",
		Params:  eventParams{Type: eventType, Data: data},
	})
}

func (s *Server) writeLine(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("rpc: failed to marshal outgoing payload")
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	s.out.Write(b)
	s.out.Write([]byte("\n"))
}
