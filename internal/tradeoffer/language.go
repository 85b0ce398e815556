// SPDX-License-Identifier: MPL-2.0

package tradeoffer

import "strings"

const (
	English Language = "english"
	German  Language = "german"
)

type (
	// Language is the notification language of a trade email.
	Language string

	// phrases holds the lower-case fragments that identify a notification
	// language and drive section detection in the parser. givenSection is
	// not used for language scoring.
	phrases struct {
		tradeConfirmation []string
		hello             []string
		yourItems         []string
		givenSection      []string
		theirItems        []string
		noItemsSelected   []string
		notFriends        []string
		friendsSince      []string
		steamLevel        []string
		sendOffer         []string
		cancelTrade       []string
		success           []string
		failure           []string
	}
)

var phraseTables = map[Language]phrases{
	German: {
		tradeConfirmation: []string{"handelsbest", "handelsangebot"},
		hello:             []string{"hallo"},
		yourItems:         []string{"ihre gegenstände", "ihre items"},
		givenSection:      []string{"ihre gegenstände", "ihre items"},
		theirItems:        []string{"gegenstände von", "items von"},
		noItemsSelected:   []string{"haben keine gegenstände", "keine gegenstände zum austausch"},
		notFriends:        []string{"sind mit diesem nutzer nicht befreundet", "nicht befreundet"},
		friendsSince:      []string{"auf steam seit dem", "ist auf steam seit"},
		steamLevel:        []string{"hat steam-level", "steam-level"},
		sendOffer:         []string{"handelsangebot senden"},
		cancelTrade:       []string{"handel annullieren", "annullieren"},
		success:           []string{"handel wurde akzeptiert", "erfolgreich", "bestätigt"},
		failure:           []string{"fehler", "ungültig", "abgelaufen", "nicht gefunden", "fehlgeschlagen"},
	},
	English: {
		tradeConfirmation: []string{"trade confirmation", "trade offer"},
		hello:             []string{"hello", "hi"},
		yourItems:         []string{"your items", "items you"},
		givenSection:      []string{"your items"},
		theirItems:        []string{"items from", "their items"},
		noItemsSelected:   []string{"you have not selected any items", "no items selected"},
		notFriends:        []string{"you are not friends", "not friends with"},
		friendsSince:      []string{"you've been friends since", "friends since"},
		steamLevel:        []string{"steam level", "level"},
		sendOffer:         []string{"send trade offer", "accept trade"},
		cancelTrade:       []string{"cancel trade", "decline"},
		success:           []string{"trade has been accepted", "successfully", "confirmed", "trade offer accepted"},
		failure:           []string{"error", "invalid", "expired", "not found", "failed"},
	},
}

func (p phrases) all() [][]string {
	return [][]string{
		p.tradeConfirmation, p.hello, p.yourItems, p.theirItems,
		p.noItemsSelected, p.notFriends, p.friendsSince, p.steamLevel,
		p.sendOffer, p.cancelTrade, p.success, p.failure,
	}
}

func (l Language) phrases() phrases {
	if p, ok := phraseTables[l]; ok {
		return p
	}
	return phraseTables[English]
}

// String returns the language name.
func (l Language) String() string { return string(l) }

// SuccessIndicators are the fragments of a confirmation page that mean the
// trade went through.
func (l Language) SuccessIndicators() []string { return l.phrases().success }

// ErrorIndicators are the fragments of a confirmation page that mean the
// confirmation was rejected.
func (l Language) ErrorIndicators() []string { return l.phrases().failure }

// DetectLanguage counts how many phrases of each table occur in the subject
// and body. German is chosen only when it scores strictly higher.
func DetectLanguage(subject, body string) Language {
	text := strings.ToLower(subject + " " + body)
	if score(text, German) > score(text, English) {
		return German
	}
	return English
}

func score(text string, lang Language) int {
	n := 0
	for _, list := range phraseTables[lang].all() {
		for _, p := range list {
			if strings.Contains(text, p) {
				n++
			}
		}
	}
	return n
}

// IsTradeSubject reports whether a subject line announces a trade offer or
// confirmation, in English or German.
func IsTradeSubject(subject string) bool {
	s := strings.ToLower(subject)
	english := strings.Contains(s, "trade") &&
		(strings.Contains(s, "confirmation") || strings.Contains(s, "offer"))
	german := strings.Contains(s, "handel") &&
		(strings.Contains(s, "bestätigung") || strings.Contains(s, "angebot"))
	return english || german
}

func containsAny(text string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(text, f) {
			return true
		}
	}
	return false
}
