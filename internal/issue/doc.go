// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation hints. The Issue catalogue holds longer Markdown guidance for
// the failures a user is most likely to hit (missing mail credentials, no
// container engine, a failing image build), rendered with glamour.
package issue
