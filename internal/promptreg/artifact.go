// Package promptreg implements the prompt artifact layout, the strict
// loader, the per-environment registry pointer, and the promote/rollback/
// retire versioning service (spec §4.11, §6).
package promptreg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/smilemakc/idis/internal/domain"
	"github.com/smilemakc/idis/internal/idiserr"
)

// semverShape matches strict MAJOR.MINOR.PATCH (spec §4.11).
var semverShape = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// artifactMetadata is metadata.json's on-disk shape (spec §6).
type artifactMetadata struct {
	PromptID  string          `json:"prompt_id"`
	Version   string          `json:"version"`
	RiskClass domain.RiskClass `json:"risk_class"`
	SchemaRef string          `json:"schema_ref,omitempty"`
}

// Store is the on-disk prompt artifact root: <root>/<prompt_id>/<version>/
// {prompt.md, metadata.json} (spec §6).
type Store struct {
	root       string
	schemaRoot string // empty means no schema root configured
}

// NewStore builds a Store rooted at root. schemaRoot, if non-empty, is
// where schema-ref ids are resolved; if empty, any metadata carrying a
// schema_ref fails closed (spec §4.11: "there is no silent bypass").
func NewStore(root, schemaRoot string) *Store {
	return &Store{root: root, schemaRoot: schemaRoot}
}

func (s *Store) artifactDir(promptID, version string) string {
	return filepath.Join(s.root, promptID, version)
}

// Load strictly loads one versioned artifact: missing file, invalid JSON,
// schema violation, prompt_id/version mismatch, an unresolvable schema-ref,
// or a non-MAJOR.MINOR.PATCH version all fail (spec §4.11).
func (s *Store) Load(promptID, version string) (*domain.PromptArtifact, string, error) {
	if !semverShape.MatchString(version) {
		return nil, "", idiserr.Newf(idiserr.InvalidInput, "promptreg: version %q is not MAJOR.MINOR.PATCH", version)
	}

	dir := s.artifactDir(promptID, version)
	promptPath := filepath.Join(dir, "prompt.md")
	metaPath := filepath.Join(dir, "metadata.json")

	promptBody, err := os.ReadFile(promptPath)
	if err != nil {
		return nil, "", idiserr.Wrap(idiserr.InvalidInput, fmt.Sprintf("promptreg: reading %s", promptPath), err)
	}

	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, "", idiserr.Wrap(idiserr.InvalidInput, fmt.Sprintf("promptreg: reading %s", metaPath), err)
	}
	var meta artifactMetadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, "", idiserr.Wrap(idiserr.InvalidInput, fmt.Sprintf("promptreg: %s is not valid JSON", metaPath), err)
	}

	if meta.PromptID != promptID || meta.Version != version {
		return nil, "", idiserr.Newf(idiserr.InvalidInput,
			"promptreg: metadata (prompt_id=%s, version=%s) does not match requested (%s, %s)",
			meta.PromptID, meta.Version, promptID, version)
	}
	switch meta.RiskClass {
	case domain.RiskLow, domain.RiskMedium, domain.RiskHigh:
	default:
		return nil, "", idiserr.Newf(idiserr.InvalidInput, "promptreg: unknown risk_class %q", meta.RiskClass)
	}

	if meta.SchemaRef != "" {
		if s.schemaRoot == "" {
			return nil, "", idiserr.Newf(idiserr.InvalidInput,
				"promptreg: metadata declares schema_ref %q but no schema root is configured", meta.SchemaRef)
		}
		schemaPath := filepath.Join(s.schemaRoot, meta.SchemaRef)
		if _, err := os.Stat(schemaPath); err != nil {
			return nil, "", idiserr.Wrap(idiserr.InvalidInput, fmt.Sprintf("promptreg: schema_ref %q could not be located", meta.SchemaRef), err)
		}
	}

	artifact := &domain.PromptArtifact{
		PromptID:                meta.PromptID,
		Version:                 meta.Version,
		RiskClass:               meta.RiskClass,
		ValidationGatesRequired: domain.RequiredGatesFor(meta.RiskClass),
	}
	return artifact, string(promptBody), nil
}
