package chat

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// ReplyGenerator produces the assistant's reply to a user message. The two
// built-in implementations are stand-ins; a real text-generation backend can
// be substituted without touching the authentication or storage code.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, content string) (string, error)
}

// defaultCannedReplies is the fixed response list for the canned generator
var defaultCannedReplies = []string{
	"Hello! How can I help you?",
	"I'm Operia, your assistant.",
	"Could you clarify your question?",
}

// CannedReplyGenerator picks a random reply from a fixed list.
type CannedReplyGenerator struct {
	replies []string
	pick    func(n int) int
}

// NewCannedReplyGenerator creates a canned generator. A nil or empty replies
// slice uses the default list.
func NewCannedReplyGenerator(replies []string) *CannedReplyGenerator {
	if len(replies) == 0 {
		replies = defaultCannedReplies
	}
	return &CannedReplyGenerator{
		replies: replies,
		pick:    rand.IntN,
	}
}

// GenerateReply returns a random entry from the reply list
func (g *CannedReplyGenerator) GenerateReply(ctx context.Context, content string) (string, error) {
	return g.replies[g.pick(len(g.replies))], nil
}

// EchoReplyGenerator formats a templated echo of the user's message.
type EchoReplyGenerator struct{}

// NewEchoReplyGenerator creates an echo generator
func NewEchoReplyGenerator() *EchoReplyGenerator {
	return &EchoReplyGenerator{}
}

// GenerateReply echoes the user's content in a fixed template
func (g *EchoReplyGenerator) GenerateReply(ctx context.Context, content string) (string, error) {
	return fmt.Sprintf("AI response to: %s", content), nil
}
