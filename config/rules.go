package config

// DefaultRules returns the built-in heuristic lists. Any list can be replaced
// through the rules file.
func DefaultRules() Rules {
	return Rules{
		SuspiciousDomains: []string{
			// temporary mailbox services
			"10minutemail.com", "10minutemail.net", "10minutemail.org",
			"guerrillamail.com", "guerrillamail.net", "guerrillamail.org",
			"mailinator.com", "mailinator.net", "mailinator.org",
			"throwaway.email", "temp-mail.org", "temp-mail.io",
			"yopmail.com", "yopmail.net", "yopmail.fr",
			"maildrop.cc", "emailondeck.com", "getnada.com",
			"tempmail.plus", "minuteinbox.com", "mohmal.com",
			"sharklasers.com", "guerrillamailblock.com", "pokemail.net",
			"spam4.me", "mailnesia.com", "mailcatch.com",
			"mailnator.com", "email-fake.com", "fakemailgenerator.com",
			"disposablemail.com", "throwawaymailbox.com", "tempinbox.com",
			"burnermail.io", "mailtemp.info", "tempmail.io",
			"inboxkitten.com", "tempm.com", "tempmailo.com",
			"mailtemp.co", "temp-mail.online", "20minutemail.com",
			"mailexpire.com", "tempmail24.com", "instantemailaddress.com",
			// placeholder domains
			"example.com", "test.com", "fake.com", "invalid.com",
			"dummy.com", "sample.com", "placeholder.com",
			// frequent spam sources
			"mail.ru", "bk.ru", "list.ru", "inbox.ru",
			"gmx.com", "web.de", "live.com.mx",
		},
		SpamKeywords: []string{
			"viagra", "casino", "lottery", "winner", "congratulations",
			"bitcoin", "crypto", "investment", "loan", "debt",
			"money back", "risk free", "guarantee", "no obligation",
			"earn money", "make money", "quick money", "easy money",
			"free money", "100% free", "no cost", "no fee",
			"act now", "urgent", "immediately", "expires today",
			"limited time", "hurry up", "dont wait", "last chance",
			"expires soon", "final notice", "time sensitive",
			"only today", "while supplies last", "limited offer",
			"buy now", "order now", "click here", "visit now",
			"subscribe now", "join now", "sign up now",
			"special promotion", "exclusive offer", "incredible deal",
			"amazing offer", "unbelievable", "revolutionary",
			"lose weight", "weight loss", "miracle cure", "anti aging",
			"no prescription", "cialis", "pharmacy",
			"medical breakthrough", "doctor approved", "clinical study",
			"hack", "hacking", "cracked", "pirated", "leaked",
			"exploit", "bypass", "cheat", "bot", "automated",
			"ganar dinero", "dinero facil", "sin costo", "gratis",
			"oferta especial", "oportunidad unica", "promocion",
			"compra ahora", "urgente", "limitado", "garantizado",
			"lorem ipsum", "sample text", "test message", "asdf",
			"qwerty", "123456", "password", "admin",
		},
		SpamPatterns: []string{
			`(?i)\b\d{1,3}%\s+(free|off|discount)\b`,
			`(?i)\$\d+\s*(million|billion|k)\b`,
			`(?i)\b(call|text)\s+\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`,
			`\b[A-Z]{3,}\s+[A-Z]{3,}\b`,
			`!{3,}|\?{3,}`,
			`(?i)\b(SEO|PPC|ROI|CTR|CPC)\b`,
			`(?i)\b\w+\.(tk|ml|ga|cf|club|top|online|site)\b`,
		},
		SuspiciousAgents: []string{
			"curl", "wget", "python", "bot", "crawler", "spider",
			"scraper", "parser", "extractor", "harvester",
			"postman", "httpie", "insomnia",
		},
		BotPatterns: []string{
			`(?i)bot`, `(?i)crawler`, `(?i)spider`, `(?i)scraper`,
		},
	}
}
