package promptreg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/smilemakc/idis/internal/atomicfile"
	"github.com/smilemakc/idis/internal/idiserr"
)

// PointerFile reads and atomically writes <root>/registry.<env>.json, the
// per-environment prompt_id -> version map (spec §4.11, §6).
type PointerFile struct {
	root string
	env  string
}

// NewPointerFile builds a PointerFile for the given environment (e.g.
// "staging", "prod").
func NewPointerFile(root, env string) *PointerFile {
	return &PointerFile{root: root, env: env}
}

func (p *PointerFile) path() string {
	return filepath.Join(p.root, fmt.Sprintf("registry.%s.json", p.env))
}

// Read loads the pointer map. A missing file is treated as an empty
// registry (no prompt has been promoted to this environment yet).
func (p *PointerFile) Read() (map[string]string, error) {
	data, err := os.ReadFile(p.path())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, idiserr.Wrap(idiserr.InvalidInput, fmt.Sprintf("promptreg: reading %s", p.path()), err)
	}
	var pointers map[string]string
	if err := json.Unmarshal(data, &pointers); err != nil {
		return nil, idiserr.Wrap(idiserr.InvalidInput, fmt.Sprintf("promptreg: %s is not valid JSON", p.path()), err)
	}
	return pointers, nil
}

// Write atomically persists pointers: sorted keys, 2-space indent, trailing
// newline, written via temp+rename (spec §4.11, §6).
func (p *PointerFile) Write(pointers map[string]string) error {
	encoded, err := encodeSorted(pointers)
	if err != nil {
		return idiserr.Wrap(idiserr.InvalidInput, "promptreg: encoding pointer file", err)
	}
	if err := atomicfile.Write(p.path(), encoded, 0o644); err != nil {
		return fmt.Errorf("promptreg: writing pointer file: %w", err)
	}
	return nil
}

func encodeSorted(pointers map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(pointers))
	for k := range pointers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range keys {
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(pointers[k])
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(keyJSON)
		buf.WriteString(": ")
		buf.Write(valJSON)
		if i < len(keys)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}
