package repl

// MaxHistory is the number of turns a session remembers.
const MaxHistory = 20

// Turn is one query and its outcome.
type Turn struct {
	Query string
	Rows  int
	Err   string
}

// Session maintains state across the lines of one REPL run.
type Session struct {
	Limit   int
	History []Turn
}

// NewSession creates a session with the given row limit.
func NewSession(limit int) *Session {
	return &Session{Limit: limit}
}

// AddTurn appends a turn, dropping the oldest beyond MaxHistory.
func (s *Session) AddTurn(turn Turn) {
	s.History = append(s.History, turn)
	if len(s.History) > MaxHistory {
		s.History = s.History[len(s.History)-MaxHistory:]
	}
}
