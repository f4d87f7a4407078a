// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "strings"

// maskVisibleEdge is how many leading and trailing characters stay visible
// when masking a secret. Secrets no longer than twice this value are fully
// hidden: a partial reveal of a short secret leaks too much of it.
const maskVisibleEdge = 4

// MaskSecret renders a secret for display: length-preserving, with the
// first and last four characters visible for secrets longer than eight
// characters and everything hidden otherwise. The result is purely a
// display value and can never be used to recover the original.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	runes := []rune(secret)
	if len(runes) <= 2*maskVisibleEdge {
		return strings.Repeat("*", len(runes))
	}

	prefix := string(runes[:maskVisibleEdge])
	suffix := string(runes[len(runes)-maskVisibleEdge:])
	return prefix + strings.Repeat("*", len(runes)-2*maskVisibleEdge) + suffix
}
