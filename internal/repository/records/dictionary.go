package records

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// DefaultDictionaryPath derives the sibling dictionary location of an artifact:
// the extension is replaced by ".dict" (packages.db -> packages.dict).
// Works for local paths and s3:// URIs alike.
func DefaultDictionaryPath(artifact string) string {
	if artifact == "" {
		return ""
	}
	return strings.TrimSuffix(artifact, path.Ext(artifact)) + ".dict"
}

// LoadDictionary reads a dictionary file. A missing optional file yields nil.
func LoadDictionary(p string, required bool) ([]byte, error) {
	if p == "" {
		return nil, nil
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("read dictionary %s: %w", p, err)
	}
	return data, nil
}
