// SPDX-License-Identifier: MPL-2.0

// Package mailbox reads unseen Steam notification emails over IMAPS and
// flags them as seen once handled.
package mailbox
