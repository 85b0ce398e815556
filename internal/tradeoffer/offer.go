// SPDX-License-Identifier: MPL-2.0

package tradeoffer

const (
	// Unknown fills text fields the email does not provide.
	Unknown = "Unknown"
	// UnknownItem names an item whose image has no matching label.
	UnknownItem = "Unknown Item"
	// NotFriends is the friendship status when the email says so.
	NotFriends = "Not friends"
)

type (
	// Item is a single inventory item shown in the offer.
	Item struct {
		Name     string
		ImageURL string
		Index    int
	}

	// Offer is the information extracted from one trade offer email.
	Offer struct {
		TraderName       string
		ProfileURL       string
		AvatarURL        string
		Level            string
		FriendshipDate   string
		FriendshipStatus string
		// ItemsGiven are the items leaving our inventory.
		ItemsGiven []Item
		// ItemsReceived are the items offered by the trader.
		ItemsReceived []Item
		ConfirmURL    string
		CancelURL     string
		TradeID       string
		// Trusted is set when ProfileURL matches the allow-list.
		Trusted bool
		// Donation is set when we give nothing in exchange.
		Donation bool
		Language Language
	}
)

func newOffer(lang Language) *Offer {
	return &Offer{
		TraderName:       Unknown,
		Level:            Unknown,
		FriendshipDate:   Unknown,
		FriendshipStatus: Unknown,
		Language:         lang,
	}
}

// Confirmable reports whether the offer carries a confirmation link.
func (o *Offer) Confirmable() bool { return o.ConfirmURL != "" }

// TradeRef returns the trade ID for log lines, or Unknown.
func (o *Offer) TradeRef() string {
	if o.TradeID == "" {
		return Unknown
	}
	return o.TradeID
}
