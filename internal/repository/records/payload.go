package records

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kailas-cloud/pkgdex/internal/domain/record"
)

// payload is the stored JSON record. Every field is optional;
// defaults are applied only in toPackage.
type payload struct {
	PackageID        *string         `json:"package_id"`
	PackageName      *string         `json:"package_name"`
	Version          *string         `json:"version"`
	AttributePath    *string         `json:"attribute_path"`
	Description      *string         `json:"description"`
	LongDescription  *string         `json:"long_description"`
	Homepage         json.RawMessage `json:"homepage"`
	License          json.RawMessage `json:"license"`
	Platforms        json.RawMessage `json:"platforms"`
	Maintainers      json.RawMessage `json:"maintainers"`
	Category         *string         `json:"category"`
	Broken           *bool           `json:"broken"`
	Unfree           *bool           `json:"unfree"`
	Available        *bool           `json:"available"`
	Insecure         *bool           `json:"insecure"`
	Unsupported      *bool           `json:"unsupported"`
	MainProgram      *string         `json:"main_program"`
	Position         *string         `json:"position"`
	OutputsToInstall json.RawMessage `json:"outputs_to_install"`
	LastUpdated      json.RawMessage `json:"last_updated"`
	ContentHash      json.RawMessage `json:"content_hash"`
}

type licenseObject struct {
	Type      string            `json:"type"`
	Value     string            `json:"value"`
	SPDXID    string            `json:"spdxId"`
	ShortName string            `json:"shortName"`
	FullName  string            `json:"fullName"`
	Licenses  []json.RawMessage `json:"licenses"`
}

type maintainerObject struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	GitHub   string          `json:"github"`
	GitHubID json.RawMessage `json:"githubId"`
}

func parsePayload(data []byte) (*payload, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// toPackage is the single place where absent fields get their defaults:
// strings "", booleans false, except available which defaults to true.
// The id is the lookup key; the payload's own package_id is informational.
func (p *payload) toPackage(id string) record.Package {
	return record.Package{
		ID:            id,
		Name:          str(p.PackageName),
		Version:       str(p.Version),
		Description:   str(p.Description),
		Homepage:      homepage(p.Homepage),
		License:       license(p.License),
		AttributePath: str(p.AttributePath),
		Category:      str(p.Category),
		Broken:        flag(p.Broken, false),
		Unfree:        flag(p.Unfree, false),
		Available:     flag(p.Available, true),
		Extended: &record.Extended{
			LongDescription:  str(p.LongDescription),
			Maintainers:      maintainers(p.Maintainers),
			Platforms:        stringList(p.Platforms),
			MainProgram:      str(p.MainProgram),
			Position:         str(p.Position),
			OutputsToInstall: stringList(p.OutputsToInstall),
			LastUpdated:      scalar(p.LastUpdated),
			Insecure:         flag(p.Insecure, false),
			Unsupported:      flag(p.Unsupported, false),
			ContentHash:      integer(p.ContentHash),
		},
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func flag(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// scalar renders a JSON string or number as text.
func scalar(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func integer(raw json.RawMessage) int64 {
	v := scalar(raw)
	if v == "" {
		return 0
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return int64(f)
	}
	return 0
}

// homepage accepts a string or a list of URLs and returns the first.
func homepage(raw json.RawMessage) string {
	if s := scalar(raw); s != "" {
		return s
	}
	if list := stringList(raw); len(list) > 0 {
		return list[0]
	}
	return ""
}

// stringList keeps the string elements of a JSON array; a lone string becomes a one-element list.
func stringList(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := scalar(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := scalar(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// license normalizes every stored license shape to one display string.
// Lists are joined with ", ".
func license(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	if s := scalar(raw); s != "" {
		return s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return joinLicenses(list)
	}

	var obj licenseObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	switch {
	case obj.Type == "array" || len(obj.Licenses) > 0:
		return joinLicenses(obj.Licenses)
	case obj.Value != "":
		return obj.Value
	case obj.SPDXID != "":
		return obj.SPDXID
	case obj.ShortName != "":
		return obj.ShortName
	default:
		return obj.FullName
	}
}

func joinLicenses(list []json.RawMessage) string {
	names := make([]string, 0, len(list))
	for _, item := range list {
		if name := license(item); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func maintainers(raw json.RawMessage) []record.Maintainer {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]record.Maintainer, 0, len(items))
	for _, it := range items {
		if s := scalar(it); s != "" {
			out = append(out, record.Maintainer{Name: s})
			continue
		}
		var m maintainerObject
		if err := json.Unmarshal(it, &m); err != nil {
			continue
		}
		out = append(out, record.Maintainer{
			Name:     m.Name,
			Email:    m.Email,
			GitHub:   m.GitHub,
			GitHubID: integer(m.GitHubID),
		})
	}
	return out
}
