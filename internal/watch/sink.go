package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/jward/pyscope"
)

// Update kinds.
const (
	KindHighlights   = "highlights"
	KindError        = "error"
	KindErrorCleared = "error_cleared"
	KindClosed       = "closed"
)

// Update is one message to the editor side. Highlight lines are 0-based.
type Update struct {
	Kind   string              `json:"kind"`
	Path   string              `json:"path"`
	Tick   int                 `json:"tick,omitempty"`
	Add    []pyscope.Highlight `json:"add,omitempty"`
	Remove []int               `json:"remove,omitempty"`
	Error  *ErrorSign          `json:"error,omitempty"`
}

// ErrorSign places the syntax error indicator at a cursor position
// (1-based line, 0-based byte column).
type ErrorSign struct {
	Line int    `json:"line"`
	Col  int    `json:"col"`
	Msg  string `json:"msg"`
}

// Sink receives updates from every worker of a Host. Publish may be
// called concurrently.
type Sink interface {
	Publish(u Update) error
}

// JSONSink writes one JSON object per line.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (s *JSONSink) Publish(u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(u); err != nil {
		return fmt.Errorf("watch: publish: %w", err)
	}
	return nil
}
