// SPDX-License-Identifier: MPL-2.0

// Package poller runs the inbox polling loop: it fetches unseen Steam mail,
// parses trade offers, accepts the ones from allow-listed traders and marks
// every handled message as seen.
package poller
