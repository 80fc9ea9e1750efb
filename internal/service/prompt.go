package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/docchat/internal/domain"
)

// GeneralKnowledgeDisclaimer must open any grounded answer that falls back
// to knowledge outside the document.
const GeneralKnowledgeDisclaimer = "This isn't covered in your document, but generally speaking..."

const assistantIdentity = `You are DocChat, a warm and precise assistant that helps people understand their documents.

## Response style
- Explain simply first, then offer to go deeper.
- Use headings and bullet points for complex answers.
- Remember earlier questions in this conversation and build on them without repeating yourself.
- Never invent facts or present guesses as facts.`

const groundedRules = `## Grounding rules
- Answer from the DOCUMENT CONTEXT whenever it contains the answer, and quote the relevant passage when it helps.
- If the answer is only implied, say "Based on the document context, it appears that..." and keep what is stated separate from what is inferred.
- Never contradict the document and never claim it says something it does not.
- If the document does not answer the question, say so plainly. You may then answer a simple or general question from general knowledge, but you must begin that part with: "` + GeneralKnowledgeDisclaimer + `"`

const generalRules = `## Knowledge
- No document is attached to this conversation. Answer from your general knowledge.
- Say so when you are unsure rather than guessing.`

var styleDirectives = map[domain.UserType]string{
	domain.UserTypeStudent:    "You are helping a student. Use simple language, give concrete examples and be encouraging.",
	domain.UserTypeTeacher:    "You are helping a teacher. Give detailed explanations and suggest ways to teach the material.",
	domain.UserTypeResearcher: "You are helping a researcher. Be thorough, cite the passages you rely on and suggest directions for further research.",
	domain.UserTypeGeneral:    "You are helping a general user. Be clear, helpful and engaging.",
}

// PromptComposer builds the model input for a chat turn.
type PromptComposer struct {
	historyWindow int
}

// NewPromptComposer creates a composer. historyWindow limits how many of the
// most recent turns are sent to the model; zero sends the whole history.
func NewPromptComposer(historyWindow int) *PromptComposer {
	if historyWindow < 0 {
		historyWindow = 0
	}
	return &PromptComposer{historyWindow: historyWindow}
}

// Compose builds the system instruction and user prompt. An empty context
// produces an instruction that allows general-knowledge answers; a
// non-empty one requires grounded answers and the disclaimer on fallback.
// history does not appear in the prompt; the streamer sends it as separate
// chat messages.
func (c *PromptComposer) Compose(context string, history []domain.Turn, message string, userType domain.UserType) domain.Prompt {
	userType = domain.ParseUserType(string(userType))
	grounded := strings.TrimSpace(context) != ""

	rules := generalRules
	if grounded {
		rules = groundedRules
	}

	var b strings.Builder
	if grounded {
		b.WriteString("DOCUMENT CONTEXT:\n---\n")
		b.WriteString(context)
		b.WriteString("\n---\n\n")
	}
	fmt.Fprintf(&b, "USER QUESTION:\n\"%s\"\n\n", message)
	b.WriteString(styleDirectives[userType])
	b.WriteString("\n\n")
	if grounded {
		b.WriteString("Use ONLY the context if it answers the question. If it does not, use general knowledge only for a simple or general question and start with the disclaimer.\n\n")
	}
	fmt.Fprintf(&b, "Adapt the style and depth of your answer to the user type (%s).", userType)

	return domain.Prompt{
		SystemInstruction: assistantIdentity + "\n\n" + rules,
		UserPrompt:        b.String(),
	}
}

// Window returns the most recent turns allowed by the history window. The
// stored session is never trimmed.
func (c *PromptComposer) Window(history []domain.Turn) []domain.Turn {
	if c.historyWindow == 0 || len(history) <= c.historyWindow {
		return history
	}
	return history[len(history)-c.historyWindow:]
}
