package testsupport

import (
	"context"
	"strings"
	"sync"

	"reelsmith/internal/services/llm"
)

// Reply is a canned completion returned when Match appears in the prompt.
type Reply struct {
	Match   string
	Content string
	Err     error
}

// FakeCompleter is an llm.Completer that answers from canned replies and
// records every request.
type FakeCompleter struct {
	mu      sync.Mutex
	replies []Reply
	calls   []llm.Request
}

var _ llm.Completer = (*FakeCompleter)(nil)

// NewFakeCompleter returns a completer answering with replies, first match wins.
func NewFakeCompleter(replies ...Reply) *FakeCompleter {
	return &FakeCompleter{replies: replies}
}

// Complete implements llm.Completer. Unmatched prompts yield "".
func (f *FakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	prompt := req.System + "\n" + req.User
	for _, reply := range f.replies {
		if strings.Contains(prompt, reply.Match) {
			return reply.Content, reply.Err
		}
	}
	return "", nil
}

// Calls returns a copy of the recorded requests.
func (f *FakeCompleter) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.calls))
	copy(out, f.calls)
	return out
}
