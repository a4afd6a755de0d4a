package records

import (
	"encoding/json"
	"testing"
)

func TestToPackage_Defaults(t *testing.T) {
	p, err := parsePayload([]byte(`{}`))
	if err != nil {
		t.Fatalf("parsePayload: %v", err)
	}
	pkg := p.toPackage("hello")

	if pkg.ID != "hello" {
		t.Errorf("ID = %q", pkg.ID)
	}
	if pkg.Name != "" || pkg.Version != "" || pkg.License != "" || pkg.Homepage != "" {
		t.Errorf("expected empty strings, got %+v", pkg)
	}
	if pkg.Broken || pkg.Unfree {
		t.Error("flags must default to false")
	}
	if !pkg.Available {
		t.Error("available must default to true")
	}
	if pkg.Extended == nil {
		t.Fatal("expected extended fields")
	}
	if pkg.Extended.Insecure || pkg.Extended.Unsupported {
		t.Error("extended flags must default to false")
	}
}

func TestToPackage_ExplicitUnavailable(t *testing.T) {
	p, err := parsePayload([]byte(`{"available":false,"broken":true}`))
	if err != nil {
		t.Fatal(err)
	}
	pkg := p.toPackage("x")
	if pkg.Available {
		t.Error("explicit available=false lost")
	}
	if !pkg.Broken {
		t.Error("explicit broken=true lost")
	}
}

func TestToPackage_FullRecord(t *testing.T) {
	data := `{
		"package_id": "nodejs_20",
		"package_name": "nodejs",
		"version": "20.11.0",
		"attribute_path": "nodejs_20",
		"description": "Event-driven I/O framework",
		"long_description": "Node.js is a JavaScript runtime",
		"homepage": "https://nodejs.org",
		"license": {"shortName": "mit", "fullName": "MIT License", "spdxId": "MIT"},
		"platforms": ["x86_64-linux", "aarch64-darwin"],
		"maintainers": [{"name": "Jane Doe", "email": "jane@example.org", "github": "jdoe", "githubId": 1234}],
		"category": "development",
		"main_program": "node",
		"position": "pkgs/development/web/nodejs/v20.nix:8",
		"outputs_to_install": ["out", "man"],
		"last_updated": 1700000000,
		"insecure": true,
		"content_hash": 987654321
	}`
	p, err := parsePayload([]byte(data))
	if err != nil {
		t.Fatalf("parsePayload: %v", err)
	}
	pkg := p.toPackage("nodejs_20")

	if pkg.Name != "nodejs" || pkg.Version != "20.11.0" || pkg.Category != "development" {
		t.Errorf("core fields = %+v", pkg)
	}
	if pkg.License != "MIT" {
		t.Errorf("License = %q, want MIT", pkg.License)
	}
	if pkg.Homepage != "https://nodejs.org" {
		t.Errorf("Homepage = %q", pkg.Homepage)
	}
	ext := pkg.Extended
	if ext.MainProgram != "node" || ext.LastUpdated != "1700000000" || ext.ContentHash != 987654321 {
		t.Errorf("extended = %+v", ext)
	}
	if !ext.Insecure {
		t.Error("insecure lost")
	}
	if len(ext.Platforms) != 2 || len(ext.OutputsToInstall) != 2 {
		t.Errorf("lists = %v / %v", ext.Platforms, ext.OutputsToInstall)
	}
	if len(ext.Maintainers) != 1 || ext.Maintainers[0].GitHubID != 1234 || ext.Maintainers[0].GitHub != "jdoe" {
		t.Errorf("maintainers = %+v", ext.Maintainers)
	}
}

func TestLicense_Shapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"null", `null`, ""},
		{"string", `"Apache-2.0"`, "Apache-2.0"},
		{"type/value", `{"type":"string","value":"GPL-3.0"}`, "GPL-3.0"},
		{"spdx preferred", `{"shortName":"bsd3","spdxId":"BSD-3-Clause"}`, "BSD-3-Clause"},
		{"short name", `{"shortName":"unfree","fullName":"Unfree"}`, "unfree"},
		{"full name only", `{"fullName":"Public Domain"}`, "Public Domain"},
		{"array wrapper", `{"type":"array","licenses":["MIT",{"spdxId":"Apache-2.0"}]}`, "MIT, Apache-2.0"},
		{"bare array", `[{"spdxId":"MIT"},"ISC"]`, "MIT, ISC"},
		{"empty array", `{"type":"array","licenses":[]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := license(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("license(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMaintainers_MixedShapes(t *testing.T) {
	got := maintainers(json.RawMessage(`["alice", {"name":"Bob","githubId":"42"}, 7]`))
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Name != "alice" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Name != "Bob" || got[1].GitHubID != 42 {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestHomepage_List(t *testing.T) {
	if got := homepage(json.RawMessage(`["https://a.example", "https://b.example"]`)); got != "https://a.example" {
		t.Errorf("homepage = %q", got)
	}
}

func TestParsePayload_Invalid(t *testing.T) {
	if _, err := parsePayload([]byte(`{not json`)); err == nil {
		t.Error("expected error")
	}
}
