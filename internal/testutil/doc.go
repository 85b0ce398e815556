// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include file setup (MustWriteFile), resource cleanup
// (MustClose, DeferClose), the container concurrency limit
// (ContainerSemaphore) and a disposable GreenMail mail server (StartGreenMail).
package testutil
