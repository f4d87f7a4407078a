// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{
			name:   "empty",
			secret: "",
			want:   "",
		},
		{
			name:   "single character fully hidden",
			secret: "a",
			want:   "*",
		},
		{
			name:   "eight characters fully hidden",
			secret: "12345678",
			want:   "********",
		},
		{
			name:   "nine characters shows edges",
			secret: "123456789",
			want:   "1234*6789",
		},
		{
			name:   "sixteen character api key",
			secret: "1234567890abcdef",
			want:   "1234********cdef",
		},
		{
			name:   "long key preserves length",
			secret: "aaaaaaaaaabbbbbbbbbbcccccccccc",
			want:   "aaaa**********************cccc",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := MaskSecret(tt.secret)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.secret), "mask must preserve length")
		})
	}
}
