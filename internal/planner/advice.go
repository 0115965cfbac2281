package planner

import "golang.org/x/text/language"

type adviceFallback struct {
	calm    string
	offline string
}

var adviceLanguages = []language.Tag{
	language.BrazilianPortuguese,
	language.English,
	language.Spanish,
}

var adviceMatcher = language.NewMatcher(adviceLanguages)

var adviceFallbacks = map[language.Tag]adviceFallback{
	language.BrazilianPortuguese: {
		calm:    "Mantenha a calma. Respire fundo. Tudo se resolverá.",
		offline: "Erro de conexão. Tente respirar fundo e contate a cerimonialista.",
	},
	language.English: {
		calm:    "Stay calm. Take a deep breath. Everything will work out.",
		offline: "Connection error. Take a deep breath and contact your wedding planner.",
	},
	language.Spanish: {
		calm:    "Mantén la calma. Respira hondo. Todo se resolverá.",
		offline: "Error de conexión. Respira hondo y contacta a tu organizadora de bodas.",
	},
}

// matchAdviceLanguage picks the supported language closest to tag, falling
// back to Brazilian Portuguese.
func matchAdviceLanguage(tag language.Tag) language.Tag {
	if tag == language.Und {
		return language.BrazilianPortuguese
	}
	_, idx, conf := adviceMatcher.Match(tag)
	if conf == language.No {
		return language.BrazilianPortuguese
	}
	return adviceLanguages[idx]
}

func fallbackFor(tag language.Tag) adviceFallback {
	return adviceFallbacks[matchAdviceLanguage(tag)]
}
