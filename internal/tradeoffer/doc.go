// SPDX-License-Identifier: MPL-2.0

// Package tradeoffer recognises Steam trade offer notification emails and
// extracts the offer from their HTML body. English and German notifications
// are supported.
package tradeoffer
