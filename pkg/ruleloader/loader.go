package ruleloader

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/gowebpki/jcs"
	"gopkg.in/yaml.v3"

	"github.com/compareguard/ruleanalyzer/pkg/ruletypes"
)

var logger = slog.Default().With("component", "ruleloader")

// Loader fetches the raw bytes of a rule file from wherever it lives.
// Decoupling fetch from parse lets the same decode/validate/convert
// pipeline run over local disk, object storage, or a database BLOB
// column identically.
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileLoader reads a rule file from local disk.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(l.Path)
}

// EmbeddedLoader reads a rule file from a compiled-in embed.FS, for
// shipping a default catalog inside the binary.
type EmbeddedLoader struct {
	FS   embed.FS
	Path string
}

func (l EmbeddedLoader) Load(ctx context.Context) ([]byte, error) {
	return fs.ReadFile(l.FS, l.Path)
}

// ContentHash returns the sha256:<hex> content hash of raw rule-file
// bytes. JSON input is canonicalized first, using the same JCS recipe
// ruleeng.clauseIdentityOf uses for clauses (grounded on
// core/pkg/pdp.ComputeDecisionHash) and the "sha256:<hex>" hash
// encoding the teacher's S3Store/GCSStore artifact keys use
// (core/pkg/artifacts/s3_store.go). Input JCS cannot parse, such as
// YAML, is hashed as is.
func ContentHash(raw []byte) (string, error) {
	canonical, err := jcs.Transform(raw)
	if err != nil {
		canonical = raw
	}
	sum := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// LoadOptions controls the decode/validate/authenticate pipeline that
// wraps every Loader.
type LoadOptions struct {
	// Manifest, if non-nil, requires a JWT-signed manifest asserting
	// this rule file's content hash before it is accepted.
	Manifest *ManifestVerifier
	// RequiredSchemaVersion, if non-empty, is a semver constraint every
	// rule's SchemaVersion (when set) must satisfy.
	RequiredSchemaVersion string
}

// Load runs the full pipeline over l: fetch bytes, optionally verify a
// signed manifest over them, decode YAML, structurally validate against
// the rule-file schema, optionally check schema-version compatibility,
// then convert to the in-memory ruletypes.RuleFile. A failure in any
// stage before conversion degrades to ruletypes.EmptyRuleFile() rather
// than returning nil — §6 requires load failures to never crash a
// running analyzer. Conversion errors instead return the converted rule
// file, including the rules that had errors. In every case the error is
// still returned so a caller (e.g. cmd/ruleanalyzer verify) can report
// it.
func Load(ctx context.Context, l Loader, opts LoadOptions) (*ruletypes.RuleFile, error) {
	raw, err := l.Load(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "rule file fetch failed, degrading to empty rule file", "error", err)
		return ruletypes.EmptyRuleFile(), fmt.Errorf("ruleloader: fetch: %w", err)
	}

	if opts.Manifest != nil {
		hash, err := ContentHash(raw)
		if err != nil {
			return ruletypes.EmptyRuleFile(), fmt.Errorf("ruleloader: hashing rule file: %w", err)
		}
		if err := opts.Manifest.Verify(hash); err != nil {
			logger.ErrorContext(ctx, "rule file manifest verification failed, degrading to empty rule file", "error", err)
			return ruletypes.EmptyRuleFile(), fmt.Errorf("ruleloader: manifest: %w", err)
		}
	}

	var decoded any
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return ruletypes.EmptyRuleFile(), fmt.Errorf("ruleloader: decode: %w", err)
	}
	if err := validateStructure(decoded); err != nil {
		return ruletypes.EmptyRuleFile(), err
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return ruletypes.EmptyRuleFile(), fmt.Errorf("ruleloader: decode: %w", err)
	}

	if opts.RequiredSchemaVersion != "" {
		for _, r := range doc.Rules {
			if r.SchemaVersion == "" {
				continue
			}
			if err := CheckSchemaVersion(r.SchemaVersion, opts.RequiredSchemaVersion); err != nil {
				return ruletypes.EmptyRuleFile(), fmt.Errorf("ruleloader: rule %q: %w", r.Name, err)
			}
		}
	}

	rf, convErrs := doc.toRuleFile()
	if len(convErrs) > 0 {
		logger.ErrorContext(ctx, "rule file has conversion errors, rules with errors were still loaded", "count", len(convErrs))
		return rf, fmt.Errorf("ruleloader: %d conversion error(s), first: %w", len(convErrs), convErrs[0])
	}
	return rf, nil
}
