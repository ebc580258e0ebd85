// Package booking is the appointment-request (RDV) intake dialogue: a
// strictly linear state machine driven one visitor reply at a time.
//
// Transitions are pure. Step never performs I/O; it returns Effects that
// the caller executes, the only side effect being one Submit per confirmed
// draft.
package booking

import (
	"strings"

	"github.com/wolfman30/trading-academy/internal/chatbot/intents"
	"github.com/wolfman30/trading-academy/internal/validation"
)

// State is a step of the dialogue.
type State string

const (
	AskName           State = "ASK_NAME"
	AskEmail          State = "ASK_EMAIL"
	AskPhone          State = "ASK_PHONE"
	AskLocation       State = "ASK_LOCATION"
	AskTypeRDV        State = "ASK_TYPE_RDV"
	AskAvailabilities State = "ASK_AVAILABILITIES"
	AskGoals          State = "ASK_GOALS"
	SummaryConfirm    State = "SUMMARY_CONFIRM"
	SubmitToBackend   State = "SUBMIT_TO_BACKEND"
)

// CallType is the kind of call the visitor asks for.
type CallType string

const (
	CallDiscovery CallType = "discovery"
	CallStrategy  CallType = "strategy"
)

// Offer is the context carried in from the UI action that opened the dialogue.
type Offer struct {
	OfferID   string `json:"offer_id,omitempty"`
	OfferName string `json:"offer_name,omitempty"`
	Source    string `json:"source,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Draft accumulates answers. It only exists in memory until submission.
type Draft struct {
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Location     string   `json:"location"`
	Type         CallType `json:"type"`
	Availability string   `json:"availability"`
	Goals        string   `json:"goals"`
	OfferID      string   `json:"offer_id,omitempty"`
	OfferName    string   `json:"offer_name,omitempty"`
	Source       string   `json:"source,omitempty"`
	SessionID    string   `json:"session_id,omitempty"`
}

// Offer returns the draft's carried context.
func (d Draft) Offer() Offer {
	return Offer{OfferID: d.OfferID, OfferName: d.OfferName, Source: d.Source, SessionID: d.SessionID}
}

func draftFromOffer(o Offer) Draft {
	return Draft{OfferID: o.OfferID, OfferName: o.OfferName, Source: o.Source, SessionID: o.SessionID}
}

// Machine is the whole dialogue state. The zero value is the initial,
// inactive machine.
type Machine struct {
	Active bool  `json:"active"`
	State  State `json:"state"`
	Draft  Draft `json:"draft"`
}

// Initial returns the inactive machine at ASK_NAME with an empty draft.
func Initial() Machine {
	return Machine{State: AskName}
}

// Effect is an instruction for the caller.
type Effect interface {
	effect()
}

// QuickReply is a clickable answer rendered by the widget.
type QuickReply struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Reply is a bot message to show.
type Reply struct {
	Text         string
	QuickReplies []QuickReply
}

// Submit asks the caller to persist the draft. Emitted once per confirmation.
type Submit struct {
	Draft Draft
}

func (Reply) effect()  {}
func (Submit) effect() {}

// Quick-reply values understood by Step and by the chatbot engine.
const (
	ValueConfirm        = "confirmer"
	ValueModify         = "modifier"
	ValueRetry          = "retry"
	ValueContactSupport = "contact_support"
	ValueCancel         = "annuler"
)

var (
	cancelWords  = map[string]struct{}{"annuler": {}, "cancel": {}}
	confirmWords = map[string]struct{}{"oui": {}, "yes": {}, "ok": {}, "confirmer": {}, "confirm": {}}
	modifyWords  = map[string]struct{}{"non": {}, "no": {}, "modifier": {}, "modify": {}}
)

// IsCancel reports whether input is a cancel keyword.
func IsCancel(input string) bool {
	_, ok := cancelWords[intents.Normalize(input)]
	return ok
}

// Start activates the dialogue at ASK_NAME with the offer context.
func Start(offer Offer) (Machine, []Effect) {
	m := Machine{Active: true, State: AskName, Draft: draftFromOffer(offer)}
	return m, []Effect{Reply{Text: promptName, QuickReplies: cancelReply}}
}

// Retry restarts a failed submission from the beginning, keeping the offer.
func Retry(m Machine) (Machine, []Effect) {
	return Start(m.Draft.Offer())
}

// Step applies one visitor reply.
func Step(m Machine, input string) (Machine, []Effect) {
	if !m.Active {
		return m, nil
	}

	raw := strings.TrimSpace(input)
	key := intents.Normalize(raw)

	if _, ok := cancelWords[key]; ok {
		return Initial(), []Effect{Reply{Text: msgCancelled}}
	}

	switch m.State {
	case AskName:
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			return m, reprompt(msgInvalidName, promptName)
		}
		m.Draft.FirstName = fields[0]
		m.Draft.LastName = strings.Join(fields[1:], " ")
		return advance(m, AskEmail, promptEmail)

	case AskEmail:
		if !validation.IsEmail(raw) {
			return m, reprompt(msgInvalidEmail, promptEmail)
		}
		m.Draft.Email = validation.NormalizeEmail(raw)
		return advance(m, AskPhone, promptPhone)

	case AskPhone:
		if !validation.IsPhone(raw) {
			return m, reprompt(msgInvalidPhone, promptPhone)
		}
		m.Draft.Phone = validation.NormalizePhone(raw)
		return advance(m, AskLocation, promptLocation)

	case AskLocation:
		if raw == "" {
			return m, reprompt(msgRequired, promptLocation)
		}
		m.Draft.Location = raw
		m.State = AskTypeRDV
		return m, []Effect{Reply{Text: promptType, QuickReplies: callTypeReplies()}}

	case AskTypeRDV:
		ct, ok := parseCallType(key)
		if !ok {
			return m, []Effect{Reply{Text: msgInvalidType + " " + promptType, QuickReplies: callTypeReplies()}}
		}
		m.Draft.Type = ct
		return advance(m, AskAvailabilities, promptAvailability)

	case AskAvailabilities:
		if raw == "" {
			return m, reprompt(msgRequired, promptAvailability)
		}
		m.Draft.Availability = raw
		return advance(m, AskGoals, promptGoals)

	case AskGoals:
		if raw == "" {
			return m, reprompt(msgRequired, promptGoals)
		}
		m.Draft.Goals = raw
		m.State = SummaryConfirm
		return m, []Effect{summaryReply(m.Draft)}

	case SummaryConfirm:
		if _, ok := confirmWords[key]; ok {
			m.State = SubmitToBackend
			return m, []Effect{Reply{Text: msgSubmitting}, Submit{Draft: m.Draft}}
		}
		if _, ok := modifyWords[key]; ok {
			restarted := Machine{Active: true, State: AskName, Draft: draftFromOffer(m.Draft.Offer())}
			return restarted, []Effect{Reply{Text: msgRestart + " " + promptName, QuickReplies: cancelReply}}
		}
		return m, []Effect{summaryReply(m.Draft)}

	case SubmitToBackend:
		return m, []Effect{Reply{Text: msgSubmitting}}
	}

	return Initial(), []Effect{Reply{Text: msgCancelled}}
}

// Complete records the outcome of the single Submit call. Either way the
// machine goes back to inactive; a failure keeps the offer so that a
// visitor-triggered Retry can restart the sequence.
func Complete(m Machine, err error) (Machine, []Effect) {
	if m.State != SubmitToBackend {
		return m, nil
	}
	if err == nil {
		return Initial(), []Effect{Reply{Text: msgSubmitted}}
	}
	failed := Initial()
	failed.Draft = draftFromOffer(m.Draft.Offer())
	return failed, []Effect{Reply{
		Text: msgSubmitFailed,
		QuickReplies: []QuickReply{
			{Label: "Réessayer", Value: ValueRetry},
			{Label: "Contacter le support", Value: ValueContactSupport},
		},
	}}
}

func advance(m Machine, next State, prompt string) (Machine, []Effect) {
	m.State = next
	return m, []Effect{Reply{Text: prompt, QuickReplies: cancelReply}}
}

func reprompt(reason, prompt string) []Effect {
	return []Effect{Reply{Text: reason + " " + prompt, QuickReplies: cancelReply}}
}

var cancelReply = []QuickReply{{Label: "Annuler", Value: ValueCancel}}
