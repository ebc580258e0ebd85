package intents

// Default is the FAQ table served by the site widget.
var Default = []Intent{
	{
		ID:       "greeting",
		Patterns: []string{"bonjour", "salut", "hello", "bonsoir", "coucou"},
		Answer:   "Bonjour ! Je suis l'assistant de l'académie. Je peux vous renseigner sur nos formations, nos tarifs ou vous aider à réserver un appel.",
		FollowUps: []string{
			"Quels sont vos tarifs ?",
			"Je veux prendre rendez-vous",
		},
	},
	{
		ID:       "pricing",
		Patterns: []string{"tarif", "tarifs", "prix", "combien coute", "combien ca coute", "cout de la formation", "paiement en plusieurs fois"},
		Answer:   "Nous proposons trois formules : Starter, Pro et Elite. Chaque formule est payable en une fois via un paiement sécurisé. Le détail est sur la page Tarifs.",
		FollowUps: []string{
			"Quelle est la différence entre Pro et Elite ?",
			"Je veux parler à un conseiller",
		},
	},
	{
		ID:       "programs",
		Patterns: []string{"formation", "programme", "contenu de la formation", "difference entre pro et elite", "formule starter", "formule elite", "formule pro"},
		Answer:   "Starter couvre les bases de l'analyse technique et la gestion du risque. Pro ajoute les stratégies avancées et les sessions live. Elite inclut un suivi individuel et l'accès aux immersions.",
		FollowUps: []string{
			"Quels sont vos tarifs ?",
			"Je veux prendre rendez-vous",
		},
	},
	{
		ID:       "booking",
		Patterns: []string{"rendez-vous", "rendez vous", "rdv", "prendre un appel", "reserver un appel", "parler a un conseiller", "etre rappele"},
		Answer:   "Avec plaisir, je vais prendre quelques informations pour organiser votre appel.",
		Action:   ActionStartBooking,
	},
	{
		ID:       "beginner",
		Patterns: []string{"debutant", "jamais trade", "aucune experience", "partir de zero"},
		Answer:   "Nos formations sont conçues pour les débutants : la formule Starter part de zéro et vous accompagne pas à pas.",
		FollowUps: []string{"Quels sont vos tarifs ?"},
	},
	{
		ID:       "risk",
		Patterns: []string{"risque", "perdre de l'argent", "garantie de gain", "rentabilite garantie"},
		Answer:   "Le trading comporte un risque de perte en capital. Nous enseignons la gestion du risque, sans jamais promettre de gains.",
	},
	{
		ID:       "capital",
		Patterns: []string{"capital minimum", "combien investir", "capital de depart", "budget pour trader"},
		Answer:   "Nous recommandons de débuter avec un capital que vous pouvez vous permettre de perdre, à partir de 200 €.",
	},
	{
		ID:       "refund",
		Patterns: []string{"rembourse", "remboursement", "satisfait ou rembourse", "annuler mon achat"},
		Answer:   "Les demandes de remboursement sont traitées par le support sous 14 jours après l'achat. Écrivez-nous depuis le formulaire de contact.",
	},
	{
		ID:       "access",
		Patterns: []string{"acces", "connexion", "mot de passe", "identifiant", "je n'arrive pas a me connecter"},
		Answer:   "Vos identifiants sont envoyés par email après le paiement. Utilisez « mot de passe oublié » sur la page de connexion si besoin.",
	},
	{
		ID:       "immersion",
		Patterns: []string{"immersion", "presentiel", "evenement", "seminaire"},
		Answer:   "Les immersions sont des sessions en présentiel réservées aux membres Elite. Les prochaines dates sont visibles dans votre espace membre.",
	},
	{
		ID:       "focus_coins",
		Patterns: []string{"focus coins", "coins", "boutique", "booster"},
		Answer:   "Les Focus Coins se gagnent en relevant les défis de l'espace membre et s'échangent dans la boutique contre des boosters et des cosmétiques.",
	},
	{
		ID:       "contact",
		Patterns: []string{"contact", "support", "email", "joindre", "telephone"},
		Answer:   "Vous pouvez nous écrire depuis le formulaire de contact, nous répondons sous 24 h ouvrées.",
	},
}
