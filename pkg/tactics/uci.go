package tactics

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Engine manages a UCI engine process.
type Engine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu     sync.Mutex
	closed bool
}

// StartEngine launches an external UCI engine process.
func StartEngine(ctx context.Context, path string, args ...string) (*Engine, error) {
	if path == "" {
		return nil, errors.New("engine path is required")
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = filepath.Dir(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &Engine{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

// Reader returns a protocol reader for engine stdout.
func (e *Engine) Reader() *Reader {
	return NewReader(e.stdout)
}

// Stderr returns the stderr stream for the engine process.
func (e *Engine) Stderr() io.Reader {
	return e.stderr
}

// Send sends a single command line to the engine.
func (e *Engine) Send(line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("engine is closed")
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, err := io.WriteString(e.stdin, line)
	return err
}

// Close terminates the engine process.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	_ = e.Send("quit")
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		_ = e.cmd.Process.Kill()
		return errors.New("engine did not exit in time")
	}
}

// Kill terminates the engine process immediately, without the quit handshake.
// Used when the engine stopped responding and a polite shutdown would block.
func (e *Engine) Kill() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	go func() { _ = e.cmd.Wait() }()
	return nil
}

// Reader reads and parses UCI protocol lines from the engine.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader for engine stdout.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// ParseLine converts a raw line into a protocol event.
func ParseLine(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, errors.New("empty line")
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "id":
		if len(fields) < 3 {
			return Event{}, fmt.Errorf("invalid id: %q", line)
		}
		return Event{Type: EventID, Key: fields[1], Value: strings.Join(fields[2:], " ")}, nil
	case "uciok":
		return Event{Type: EventUCIOK}, nil
	case "readyok":
		return Event{Type: EventReadyOK}, nil
	case "bestmove":
		if len(fields) < 2 {
			return Event{}, fmt.Errorf("invalid bestmove: %q", line)
		}
		e := Event{Type: EventBestMove, Move: fields[1]}
		if len(fields) >= 4 && fields[2] == "ponder" {
			e.Ponder = fields[3]
		}
		return e, nil
	case "info":
		return Event{Type: EventInfo, Raw: line}, nil
	default:
		return Event{Type: EventUnknown, Raw: line}, nil
	}
}

// Next blocks until a line is available or EOF occurs.
func (r *Reader) Next() (Event, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Event{}, err
		}
		return Event{}, io.EOF
	}
	return ParseLine(r.scanner.Text())
}

// EventType represents a UCI protocol event type.
type EventType int

const (
	EventUnknown EventType = iota
	EventID
	EventUCIOK
	EventReadyOK
	EventInfo
	EventBestMove
)

// Event is a parsed UCI protocol line.
type Event struct {
	Type   EventType
	Key    string
	Value  string
	Move   string
	Ponder string
	Raw    string
}

// Score represents a UCI evaluation score, either centipawns or mate-in-N.
type Score struct {
	Kind  string
	Value int
}

// String returns a stable text representation for logging.
func (s Score) String() string {
	if s.Kind == "cp" {
		return fmt.Sprintf("cp %d", s.Value)
	}
	if s.Kind == "mate" {
		return fmt.Sprintf("mate %d", s.Value)
	}
	return "unknown"
}

// Line is one ranked candidate returned by a multiPV search. Move is in
// coordinate (UCI) notation; Score is from the side-to-move perspective.
type Line struct {
	Move  string
	Score Score
	Depth int
}

// Evaluation is the ranked output of a single search request.
// Lines[0] is the engine's preferred line.
type Evaluation struct {
	Lines []Line
}

// Best returns the top-ranked line.
func (e Evaluation) Best() Line {
	if len(e.Lines) == 0 {
		return Line{}
	}
	return e.Lines[0]
}

// Session manages a UCI engine session and event stream.
type Session struct {
	engine  *Engine
	reader  *Reader
	events  chan Event
	errCh   chan error
	multiPV int
}

// StartSession launches a UCI engine and starts a reader goroutine.
func StartSession(ctx context.Context, path string, args ...string) (*Session, error) {
	engine, err := StartEngine(ctx, path, args...)
	if err != nil {
		return nil, err
	}
	reader := engine.Reader()
	events := make(chan Event, 64)
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		for {
			event, err := reader.Next()
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
			events <- event
		}
	}()
	return &Session{engine: engine, reader: reader, events: events, errCh: errCh, multiPV: 1}, nil
}

// Close terminates the engine process.
func (s *Session) Close() error {
	if s == nil || s.engine == nil {
		return nil
	}
	return s.engine.Close()
}

// Kill terminates the engine process without waiting for a clean shutdown.
func (s *Session) Kill() error {
	if s == nil || s.engine == nil {
		return nil
	}
	return s.engine.Kill()
}

// Stderr returns the engine's stderr reader for diagnostics.
func (s *Session) Stderr() io.Reader {
	if s == nil || s.engine == nil {
		return nil
	}
	return s.engine.Stderr()
}

// Handshake runs the standard UCI handshake.
func (s *Session) Handshake(ctx context.Context) error {
	if err := s.engine.Send("uci"); err != nil {
		return err
	}
	if _, err := s.waitForEvent(ctx, EventUCIOK); err != nil {
		return err
	}
	if err := s.engine.Send("setoption name Threads value 1"); err != nil {
		return err
	}
	if err := s.engine.Send("setoption name Hash value 256"); err != nil {
		return err
	}
	if err := s.engine.Send("setoption name MultiPV value 1"); err != nil {
		return err
	}
	if err := s.engine.Send("isready"); err != nil {
		return err
	}
	_, err := s.waitForEvent(ctx, EventReadyOK)
	return err
}

// Search runs a depth-bounded multiPV search for the given FEN and returns
// the ranked lines reported at the deepest completed iteration. Scores are
// left in the side-to-move perspective.
func (s *Session) Search(ctx context.Context, fen string, depth, multiPV int) (Evaluation, error) {
	if depth <= 0 {
		depth = 1
	}
	if multiPV < 1 {
		multiPV = 1
	}
	if multiPV != s.multiPV {
		if err := s.engine.Send(fmt.Sprintf("setoption name MultiPV value %d", multiPV)); err != nil {
			return Evaluation{}, err
		}
		s.multiPV = multiPV
	}
	if err := s.engine.Send("position fen " + fen); err != nil {
		return Evaluation{}, err
	}
	if err := s.engine.Send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return Evaluation{}, err
	}

	lines := make(map[int]Line, multiPV)
	for {
		event, err := s.nextEvent(ctx)
		if err != nil {
			return Evaluation{}, err
		}
		switch event.Type {
		case EventInfo:
			info, ok := parseInfoLine(event.Raw)
			if !ok {
				continue
			}
			if info.Depth >= lines[info.MultiPV].Depth {
				lines[info.MultiPV] = Line{Move: info.Move, Score: info.Score, Depth: info.Depth}
			}
		case EventBestMove:
			ranked := make([]Line, 0, len(lines))
			for rank := 1; rank <= multiPV; rank++ {
				if line, ok := lines[rank]; ok {
					ranked = append(ranked, line)
				}
			}
			if len(ranked) == 0 {
				return Evaluation{}, errors.New("no score in engine output")
			}
			return Evaluation{Lines: ranked}, nil
		}
	}
}

func (s *Session) waitForEvent(ctx context.Context, want EventType) (Event, error) {
	for {
		event, err := s.nextEvent(ctx)
		if err != nil {
			return Event{}, err
		}
		if event.Type == want {
			return event, nil
		}
	}
}

func (s *Session) nextEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case err := <-s.errCh:
		if err == nil {
			return Event{}, errors.New("engine stdout closed")
		}
		return Event{}, err
	case event, ok := <-s.events:
		if !ok {
			return Event{}, errors.New("engine stdout closed")
		}
		return event, nil
	}
}

type infoLine struct {
	Depth   int
	MultiPV int
	Score   Score
	Move    string
}

// parseInfoLine extracts depth, multipv rank, score and the first pv move
// from a UCI info line. Lines without a score and pv, and bound-only
// (lowerbound/upperbound) reports, are rejected.
func parseInfoLine(raw string) (infoLine, bool) {
	fields := strings.Fields(raw)
	info := infoLine{MultiPV: 1}
	haveScore := false
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					info.Depth = v
				}
			}
		case "multipv":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					info.MultiPV = v
				}
			}
		case "score":
			if i+2 >= len(fields) {
				return infoLine{}, false
			}
			kind := fields[i+1]
			if kind != "cp" && kind != "mate" {
				return infoLine{}, false
			}
			value, err := strconv.Atoi(fields[i+2])
			if err != nil {
				return infoLine{}, false
			}
			info.Score = Score{Kind: kind, Value: value}
			haveScore = true
		case "lowerbound", "upperbound":
			return infoLine{}, false
		case "pv":
			if i+1 < len(fields) {
				info.Move = fields[i+1]
			}
			i = len(fields)
		}
	}
	if !haveScore || info.Move == "" {
		return infoLine{}, false
	}
	return info, true
}
