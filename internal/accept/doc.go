// SPDX-License-Identifier: MPL-2.0

// Package accept confirms trade offers by visiting their confirmation link
// and classifying the returned page.
package accept
