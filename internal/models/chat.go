package models

// Role tags a chat message with its author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in a chat transcript. A message with Pending set
// is a placeholder for an assistant reply that has not resolved yet; it is
// replaced in place once the answer or an error message arrives.
type ChatMessage struct {
	Role    Role
	Content string
	Pending bool
}

// Citation points at a knowledge-base node that backed an answer. The
// relevance score is a percentage between 0 and 100.
type Citation struct {
	Name           string
	SourceKind     string
	RelevanceScore float64
}

// Answer is the question-answering collaborator's response: the answer text
// plus ranked source citations in collaborator order.
type Answer struct {
	Answer  string
	Sources []Citation
}
