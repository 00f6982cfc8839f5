// Package objectstore implements the tenant-prefixed, content-addressed
// object store (spec §4.12): every write is a new version, and a _latest
// pointer file is updated atomically via temp+rename. Path-traversal
// defense is mandatory and fails closed per spec §4.12.
package objectstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smilemakc/idis/internal/atomicfile"
	"github.com/smilemakc/idis/internal/idiserr"
	"github.com/smilemakc/idis/internal/tenant"
)

// keyShape is the only character class a key may use (spec §4.12).
var keyShape = regexp.MustCompile(`^[A-Za-z0-9_.\-/]+$`)

// Store is a base directory implementing the tenant-prefixed content-
// addressed layout: <base>/<tenant_id>/<hashed-key-dir>/{_latest,
// <version_id>.data, <version_id>.meta.json}.
type Store struct {
	base string
}

// NewStore builds a Store rooted at base.
func NewStore(base string) *Store {
	return &Store{base: base}
}

// VersionMeta is one version's on-disk metadata.
type VersionMeta struct {
	VersionID string    `json:"version_id"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
}

// validateKey rejects any key with a path-traversal shape: ".." segments,
// a leading "/" or "~", drive letters, backslashes, null bytes, or any
// character outside [A-Za-z0-9_.\-/]+ (spec §4.12).
func validateKey(key string) error {
	if key == "" {
		return idiserr.Newf(idiserr.InvalidInput, "objectstore: key must not be empty")
	}
	if strings.ContainsAny(key, "\\\x00") {
		return idiserr.Newf(idiserr.InvalidInput, "objectstore: key %q contains a disallowed character", key)
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, "~") {
		return idiserr.Newf(idiserr.InvalidInput, "objectstore: key %q must not start with / or ~", key)
	}
	if len(key) >= 2 && key[1] == ':' {
		return idiserr.Newf(idiserr.InvalidInput, "objectstore: key %q looks like a drive letter path", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return idiserr.Newf(idiserr.InvalidInput, "objectstore: key %q contains a .. segment", key)
		}
	}
	if !keyShape.MatchString(key) {
		return idiserr.Newf(idiserr.InvalidInput, "objectstore: key %q contains a disallowed character", key)
	}
	return nil
}

func hashedKeyDir(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// objectDir resolves and validates <base>/<tenant_id>/<hashed-key-dir>,
// confirming the resolved path remains under base (spec §4.12).
func (s *Store) objectDir(tenantID, key string) (string, error) {
	if !tenant.LooksLikeUUID(tenantID) {
		return "", idiserr.Newf(idiserr.InvalidInput, "objectstore: tenant_id %q is not a UUID", tenantID)
	}
	if err := validateKey(key); err != nil {
		return "", err
	}

	dir := filepath.Join(s.base, tenantID, hashedKeyDir(key))
	resolvedBase, err := filepath.Abs(s.base)
	if err != nil {
		return "", fmt.Errorf("objectstore: resolving base directory: %w", err)
	}
	resolvedDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("objectstore: resolving object directory: %w", err)
	}
	if resolvedDir != resolvedBase && !strings.HasPrefix(resolvedDir, resolvedBase+string(filepath.Separator)) {
		return "", idiserr.Newf(idiserr.InvalidInput, "objectstore: resolved path for key %q escapes the base directory", key)
	}
	return resolvedDir, nil
}

// Put writes a new version of key and atomically repoints _latest at it.
func (s *Store) Put(tenantID, key string, data []byte) (VersionMeta, error) {
	dir, err := s.objectDir(tenantID, key)
	if err != nil {
		return VersionMeta{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return VersionMeta{}, fmt.Errorf("objectstore: creating object directory: %w", err)
	}

	versionID := uuid.NewString()
	meta := VersionMeta{VersionID: versionID, CreatedAt: time.Now().UTC(), Size: len(data)}

	if err := atomicfile.Write(filepath.Join(dir, versionID+".data"), data, 0o644); err != nil {
		return VersionMeta{}, fmt.Errorf("objectstore: writing data file: %w", err)
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return VersionMeta{}, fmt.Errorf("objectstore: encoding version metadata: %w", err)
	}
	if err := atomicfile.Write(filepath.Join(dir, versionID+".meta.json"), metaBytes, 0o644); err != nil {
		return VersionMeta{}, fmt.Errorf("objectstore: writing metadata file: %w", err)
	}
	if err := s.writeLatest(dir, versionID); err != nil {
		return VersionMeta{}, err
	}
	return meta, nil
}

func (s *Store) writeLatest(dir, versionID string) error {
	if err := atomicfile.Write(filepath.Join(dir, "_latest"), []byte(versionID), 0o644); err != nil {
		return fmt.Errorf("objectstore: updating _latest pointer: %w", err)
	}
	return nil
}

func (s *Store) readLatest(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "_latest"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Get returns a version's data; an empty version resolves to _latest.
func (s *Store) Get(tenantID, key, version string) ([]byte, VersionMeta, error) {
	dir, err := s.objectDir(tenantID, key)
	if err != nil {
		return nil, VersionMeta{}, err
	}
	if version == "" {
		version, err = s.readLatest(dir)
		if err != nil {
			return nil, VersionMeta{}, idiserr.Wrap(idiserr.NotFound, fmt.Sprintf("objectstore: no versions of %q", key), err)
		}
	}
	meta, err := s.readMeta(dir, version)
	if err != nil {
		return nil, VersionMeta{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, version+".data"))
	if err != nil {
		return nil, VersionMeta{}, idiserr.Wrap(idiserr.NotFound, fmt.Sprintf("objectstore: version %q of %q not found", version, key), err)
	}
	return data, meta, nil
}

func (s *Store) readMeta(dir, version string) (VersionMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, version+".meta.json"))
	if err != nil {
		return VersionMeta{}, idiserr.Wrap(idiserr.NotFound, fmt.Sprintf("objectstore: metadata for version %q not found", version), err)
	}
	var meta VersionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return VersionMeta{}, fmt.Errorf("objectstore: decoding version metadata: %w", err)
	}
	return meta, nil
}

// Head returns a version's metadata without reading its data.
func (s *Store) Head(tenantID, key, version string) (VersionMeta, error) {
	dir, err := s.objectDir(tenantID, key)
	if err != nil {
		return VersionMeta{}, err
	}
	if version == "" {
		version, err = s.readLatest(dir)
		if err != nil {
			return VersionMeta{}, idiserr.Wrap(idiserr.NotFound, fmt.Sprintf("objectstore: no versions of %q", key), err)
		}
	}
	return s.readMeta(dir, version)
}

// ListVersions returns every version's metadata, ordered newest-first by
// created_at.
func (s *Store) ListVersions(tenantID, key string) ([]VersionMeta, error) {
	dir, err := s.objectDir(tenantID, key)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("objectstore: listing versions: %w", err)
	}

	var versions []VersionMeta
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		version := strings.TrimSuffix(name, ".meta.json")
		meta, err := s.readMeta(dir, version)
		if err != nil {
			return nil, err
		}
		versions = append(versions, meta)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].CreatedAt.After(versions[j].CreatedAt) })
	return versions, nil
}

// Delete removes one version. If it was _latest, _latest is rewired to the
// next most recent remaining version by created_at (spec §4.12).
func (s *Store) Delete(tenantID, key, version string) error {
	dir, err := s.objectDir(tenantID, key)
	if err != nil {
		return err
	}
	current, err := s.readLatest(dir)
	if err != nil {
		return idiserr.Wrap(idiserr.NotFound, fmt.Sprintf("objectstore: no versions of %q", key), err)
	}

	if err := os.Remove(filepath.Join(dir, version+".data")); err != nil {
		return idiserr.Wrap(idiserr.NotFound, fmt.Sprintf("objectstore: version %q not found", version), err)
	}
	_ = os.Remove(filepath.Join(dir, version+".meta.json"))

	if version != current {
		return nil
	}

	remaining, err := s.ListVersions(tenantID, key)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return os.Remove(filepath.Join(dir, "_latest"))
	}
	return s.writeLatest(dir, remaining[0].VersionID)
}
