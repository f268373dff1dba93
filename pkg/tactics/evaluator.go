package tactics

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEngineUnavailable means the engine process could not be started or
	// restarted. No analysis can proceed without it, so callers treat it as
	// fatal for the whole run.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrEngineFailure means a single evaluation request failed even after
	// the engine was restarted and the request retried once. The affected
	// ply is marked unanalyzed; the game continues.
	ErrEngineFailure = errors.New("engine evaluation failed")
)

// EngineEvaluator is the contract the game analyzer depends on. Evaluate
// returns ranked candidate lines for a position, scores in the side-to-move
// perspective.
type EngineEvaluator interface {
	Evaluate(ctx context.Context, fen string, depth, multiPV int) (Evaluation, error)
}

// Evaluator owns a long-lived engine session and recovers from engine
// timeouts and crashes by restarting the process. One Evaluator belongs to
// exactly one worker; it is not safe for concurrent use.
type Evaluator struct {
	enginePath  string
	callTimeout time.Duration
	session     *Session
}

// NewEvaluator starts the engine process and runs the UCI handshake.
func NewEvaluator(ctx context.Context, enginePath string, callTimeout time.Duration) (*Evaluator, error) {
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	session, err := startSession(ctx, enginePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return &Evaluator{enginePath: enginePath, callTimeout: callTimeout, session: session}, nil
}

// Evaluate runs one bounded search. On timeout or engine failure the
// process is killed, restarted, and the request retried once. A second
// failure surfaces as ErrEngineFailure; a failed restart as
// ErrEngineUnavailable.
func (e *Evaluator) Evaluate(ctx context.Context, fen string, depth, multiPV int) (Evaluation, error) {
	eval, err := e.search(ctx, fen, depth, multiPV)
	if err == nil {
		return eval, nil
	}
	if ctx.Err() != nil {
		return Evaluation{}, ctx.Err()
	}

	// The session state is unknown after any failure (the engine may still
	// be searching, or dead). Kill and restart before the single retry.
	_ = e.session.Kill()
	e.session, err = startSession(ctx, e.enginePath)
	if err != nil {
		return Evaluation{}, fmt.Errorf("%w: restart: %v", ErrEngineUnavailable, err)
	}
	eval, err = e.search(ctx, fen, depth, multiPV)
	if err == nil {
		return eval, nil
	}
	if ctx.Err() != nil {
		return Evaluation{}, ctx.Err()
	}
	_ = e.session.Kill()
	e.session, _ = startSession(ctx, e.enginePath)
	if e.session == nil {
		return Evaluation{}, fmt.Errorf("%w: restart after retry", ErrEngineUnavailable)
	}
	return Evaluation{}, fmt.Errorf("%w: %v", ErrEngineFailure, err)
}

func (e *Evaluator) search(ctx context.Context, fen string, depth, multiPV int) (Evaluation, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.session.Search(callCtx, fen, depth, multiPV)
}

// Close terminates the engine process.
func (e *Evaluator) Close() error {
	if e == nil || e.session == nil {
		return nil
	}
	return e.session.Close()
}

func startSession(ctx context.Context, enginePath string) (*Session, error) {
	session, err := StartSession(ctx, enginePath)
	if err != nil {
		return nil, err
	}
	if err := session.Handshake(ctx); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}
