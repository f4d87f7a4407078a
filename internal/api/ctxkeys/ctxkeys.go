// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package ctxkeys

// Key is a typed context key to avoid collisions across packages.
type Key int

const (
	// User holds the *models.User the bearer token resolved to.
	User Key = iota
)
