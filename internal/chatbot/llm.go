package chatbot

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LLMRequest struct {
	System      string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
}

type LLMResponse struct {
	Text       string
	StopReason string
}

// LLMClient answers free-form questions the intent table does not cover.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
	Provider() string
}

const defaultSystemPrompt = "Tu es l'assistant de la Trading Academy. Réponds en français, en trois phrases maximum, " +
	"de façon claire et bienveillante. Tu présentes les formations, les tarifs et la prise de rendez-vous. " +
	"Tu ne donnes jamais de conseil d'investissement personnalisé ni de promesse de gains. " +
	"Si la question sort de ce cadre, propose de prendre rendez-vous avec un conseiller."

// apologyText is returned when the LLM is unavailable.
const apologyText = "Désolé, je ne peux pas répondre pour le moment. Vous pouvez reformuler votre question ou prendre rendez-vous avec un conseiller."
