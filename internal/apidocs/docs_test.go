// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package apidocs

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/swaggo/swag"
)

func TestSwaggerDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("ReadDoc() error = %v", err)
	}

	var parsed struct {
		Swagger  string                     `json:"swagger"`
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}
	if parsed.Swagger != "2.0" || parsed.BasePath != "/api/v1" {
		t.Errorf("swagger = %q, basePath = %q", parsed.Swagger, parsed.BasePath)
	}

	for _, path := range []string{"/auth/login", "/accounts/{accountID}/{metric}/chart", "/admin/jobs/{job}"} {
		if _, ok := parsed.Paths[path]; !ok {
			t.Errorf("path %s missing from doc", path)
		}
	}
}
