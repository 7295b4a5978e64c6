package notify

import "fmt"

func IdentityConfirmed(to, name string) Message {
	return Message{
		To:      to,
		Subject: "Votre identité est confirmée",
		Body: fmt.Sprintf("Bonjour %s,\n\nVotre vérification d'identité est terminée. "+
			"Dès que votre paiement est confirmé, votre accès Semzo Privé sera activé.\n\nÀ très vite,\nSemzo Privé", greet(name)),
	}
}

func AccessUnlocked(to, name, tier string) Message {
	return Message{
		To:      to,
		Subject: "Votre accès Semzo Privé est activé",
		Body: fmt.Sprintf("Bonjour %s,\n\nVotre adhésion %s est maintenant active. "+
			"Vous pouvez réserver votre premier sac dès aujourd'hui.\n\nSemzo Privé", greet(name), tier),
	}
}

func IdentityRejected(to, name string) Message {
	return Message{
		To:      to,
		Subject: "Vérification d'identité incomplète",
		Body: fmt.Sprintf("Bonjour %s,\n\nNous n'avons pas pu confirmer votre identité. "+
			"Vous pouvez relancer la vérification depuis votre espace membre.\n\nSemzo Privé", greet(name)),
	}
}

// AdminAlert is the back-office copy of an ops alert.
func AdminAlert(to, kind, message string) Message {
	return Message{
		To:      to,
		Subject: "[Semzo Privé] alerte " + kind,
		Body:    message,
	}
}

func greet(name string) string {
	if name == "" {
		return "et bienvenue"
	}
	return name
}
