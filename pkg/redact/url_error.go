// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package redact strips credentials from errors before they reach logs or
// API responses.
package redact

import (
	"errors"
	"net/url"
)

var sensitiveParams = []string{
	"apikey",
	"api_key",
	"passkey",
	"token",
	"password",
	"secret",
}

// URLError returns err with any sensitive query parameters in a wrapped
// *url.Error replaced by REDACTED. Errors without a url.Error in their
// chain are returned unchanged; nil stays nil.
func URLError(err error) error {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	return &url.Error{
		Op:  urlErr.Op,
		URL: redactURL(urlErr.URL),
		Err: urlErr.Err,
	}
}

func redactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	changed := false
	for _, param := range sensitiveParams {
		if query.Has(param) {
			query.Set(param, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return rawURL
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}
