// SPDX-License-Identifier: MPL-2.0

package tradeoffer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	profileLinkRe = regexp.MustCompile(`steamcommunity\.com/(id|profiles)/`)
	avatarRe      = regexp.MustCompile(`avatars\..*steamstatic\.com`)
	itemImageRe   = regexp.MustCompile(`steamstatic\.com/economy/image/`)
	itemNameRe    = regexp.MustCompile(`(?i)color:\s*#D2D2D2`)
	confirmLinkRe = regexp.MustCompile(`tradeoffer/\d+/confirm`)
	tradeIDRe     = regexp.MustCompile(`tradeoffer/(\d+)/`)

	// Go's \w is ASCII-only; German month names need letters beyond that.
	friendsSinceRe = map[Language][]*regexp.Regexp{
		German: {
			regexp.MustCompile(`auf steam seit dem\s*(\d+\.\s*[\p{L}\p{N}_]+\s*\d+)`),
			regexp.MustCompile(`ist auf steam seit\s*(\d+\.\s*[\p{L}\p{N}_]+\s*\d+)`),
		},
		English: {
			regexp.MustCompile(`you(?:'|’)ve been friends since.*?(\d+\s+[\p{L}\p{N}_]+)`),
		},
	}
)

const minItemNameLen = 4

// Parser extracts offers from trade email HTML and marks allow-listed
// traders as trusted.
type Parser struct {
	allow AllowList
}

// NewParser creates a Parser that checks traders against allow.
func NewParser(allow AllowList) *Parser {
	return &Parser{allow: allow}
}

// Parse extracts the offer from an HTML body written in lang. Fields the
// email does not carry keep their Unknown defaults.
func (p *Parser) Parse(body string, lang Language) (*Offer, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse trade email: %w", err)
	}

	offer := newOffer(lang)
	phr := lang.phrases()

	p.parseTrader(doc, offer)
	parseProfile(doc, offer)

	text := strings.ToLower(doc.Text())
	if containsAny(text, phr.notFriends) {
		offer.FriendshipStatus = NotFriends
	}
	for _, re := range friendsSinceRe[offer.Language] {
		if m := re.FindStringSubmatch(text); m != nil {
			offer.FriendshipDate = m[1]
			break
		}
	}

	parseItems(doc, offer, phr)
	offer.Donation = containsAny(text, phr.noItemsSelected)

	parseLinks(doc, offer)
	return offer, nil
}

// parseTrader takes the first Steam profile link as the trader.
func (p *Parser) parseTrader(doc *goquery.Document, offer *Offer) {
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !profileLinkRe.MatchString(href) {
			return true
		}
		if name := strings.TrimSpace(a.Text()); name != "" {
			offer.TraderName = name
		}
		offer.ProfileURL = href
		offer.Trusted = p.allow.Allows(href)
		return false
	})
}

func parseProfile(doc *goquery.Document, offer *Offer) {
	doc.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, _ := img.Attr("src")
		if avatarRe.MatchString(src) {
			offer.AvatarURL = src
			return false
		}
		return true
	})

	if level := strings.TrimSpace(doc.Find("span.friendPlayerLevelNum").First().Text()); level != "" {
		offer.Level = level
	}
}

// parseItems walks tables in document order. Steam nests the item tables in
// a layout table, so a later (inner) match replaces an earlier (outer) one.
func parseItems(doc *goquery.Document, offer *Offer, phr phrases) {
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		text := strings.ToLower(table.Text())
		switch {
		case containsAny(text, phr.givenSection):
			offer.ItemsGiven = tableItems(table)
		case containsAny(text, phr.theirItems):
			offer.ItemsReceived = tableItems(table)
		}
	})
}

// tableItems pairs item images with item labels by position.
func tableItems(table *goquery.Selection) []Item {
	var names []string
	table.Find("div[style]").Each(func(_ int, div *goquery.Selection) {
		style, _ := div.Attr("style")
		if !itemNameRe.MatchString(style) {
			return
		}
		if name := strings.TrimSpace(div.Text()); utf8.RuneCountInString(name) >= minItemNameLen {
			names = append(names, name)
		}
	})

	var items []Item
	table.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if !itemImageRe.MatchString(src) {
			return
		}
		i := len(items)
		name := UnknownItem
		if i < len(names) {
			name = names[i]
		}
		items = append(items, Item{Name: name, ImageURL: src, Index: i})
	})
	return items
}

// parseLinks finds the confirm and cancel links; cancel links carry cancel=1.
func parseLinks(doc *goquery.Document, offer *Offer) {
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !confirmLinkRe.MatchString(href) {
			return
		}
		if strings.Contains(href, "cancel=1") {
			if offer.CancelURL == "" {
				offer.CancelURL = href
			}
			return
		}
		if offer.ConfirmURL == "" {
			offer.ConfirmURL = href
			if m := tradeIDRe.FindStringSubmatch(href); m != nil {
				offer.TradeID = m[1]
			}
		}
	})
}
