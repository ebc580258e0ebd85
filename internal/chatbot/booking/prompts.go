package booking

import (
	"fmt"
	"strings"
)

const (
	promptName         = "Pour commencer, quels sont votre prénom et votre nom ?"
	promptEmail        = "Quelle est votre adresse email ?"
	promptPhone        = "Quel est votre numéro de téléphone ?"
	promptLocation     = "Dans quelle ville ou quel pays êtes-vous situé(e) ?"
	promptType         = "Quel type d'appel souhaitez-vous ?"
	promptAvailability = "Quelles sont vos disponibilités (jours et créneaux) ?"
	promptGoals        = "Quels sont vos objectifs en trading ?"
	promptConfirm      = "Confirmez-vous ces informations ?"

	msgInvalidName  = "Je n'ai pas bien compris votre nom."
	msgInvalidEmail = "Cette adresse email ne semble pas valide."
	msgInvalidPhone = "Ce numéro de téléphone ne semble pas valide."
	msgInvalidType  = "Merci de choisir l'une des deux options."
	msgRequired     = "Cette information est nécessaire."
	msgRestart      = "Pas de souci, reprenons depuis le début."
	msgCancelled    = "La prise de rendez-vous est annulée. N'hésitez pas si vous avez d'autres questions."
	msgSubmitting   = "Je transmets votre demande..."
	msgSubmitted    = "Merci ! Votre demande de rendez-vous est enregistrée. Un conseiller vous contactera très vite."
	msgSubmitFailed = "Désolé, votre demande n'a pas pu être enregistrée. Voulez-vous réessayer ou contacter le support ?"
)

type callTypeOption struct {
	Type    CallType
	Label   string
	aliases []string
}

var callTypeOptions = []callTypeOption{
	{Type: CallDiscovery, Label: "Appel découverte (15 min)", aliases: []string{"1", "decouverte", "discovery"}},
	{Type: CallStrategy, Label: "Appel stratégie (45 min)", aliases: []string{"2", "strategie", "strategy"}},
}

// CallTypeLabel returns the display label of a call type.
func CallTypeLabel(t CallType) string {
	for _, opt := range callTypeOptions {
		if opt.Type == t {
			return opt.Label
		}
	}
	return string(t)
}

func callTypeReplies() []QuickReply {
	out := make([]QuickReply, 0, len(callTypeOptions)+1)
	for _, opt := range callTypeOptions {
		out = append(out, QuickReply{Label: opt.Label, Value: string(opt.Type)})
	}
	return append(out, cancelReply...)
}

// parseCallType accepts the option number, its key or text containing one
// of its keywords. Text naming both options is refused so the visitor is
// asked again. key must already be normalized.
func parseCallType(key string) (CallType, bool) {
	var found []CallType
	for _, opt := range callTypeOptions {
		if key == string(opt.Type) {
			return opt.Type, true
		}
		for _, alias := range opt.aliases {
			if key == alias {
				return opt.Type, true
			}
			if len(alias) > 1 && strings.Contains(key, alias) {
				found = append(found, opt.Type)
				break
			}
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}

func summaryReply(d Draft) Reply {
	var b strings.Builder
	b.WriteString("Voici le récapitulatif de votre demande :\n")
	fmt.Fprintf(&b, "- Nom : %s\n", strings.TrimSpace(d.FirstName+" "+d.LastName))
	fmt.Fprintf(&b, "- Email : %s\n", d.Email)
	fmt.Fprintf(&b, "- Téléphone : %s\n", d.Phone)
	fmt.Fprintf(&b, "- Localisation : %s\n", d.Location)
	fmt.Fprintf(&b, "- Type d'appel : %s\n", CallTypeLabel(d.Type))
	fmt.Fprintf(&b, "- Disponibilités : %s\n", d.Availability)
	fmt.Fprintf(&b, "- Objectifs : %s\n", d.Goals)
	if d.OfferName != "" {
		fmt.Fprintf(&b, "- Offre : %s\n", d.OfferName)
	}
	b.WriteString(promptConfirm)
	return Reply{
		Text: b.String(),
		QuickReplies: []QuickReply{
			{Label: "Confirmer", Value: ValueConfirm},
			{Label: "Modifier", Value: ValueModify},
			{Label: "Annuler", Value: ValueCancel},
		},
	}
}
