package resolve

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

var separatorRegEx = regexp.MustCompile(`[-_.]+`)

// Index answers whether a package name exists in a package index.
type Index interface {
	Exists(ctx context.Context, pkg string) (bool, error)
}

// ImportChecker verifies that a module can be imported in the target
// environment.
type ImportChecker interface {
	CheckImport(ctx context.Context, module string) error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIndex enables the package index dry run.
func WithIndex(idx Index) Option {
	return func(r *Resolver) { r.index = idx }
}

// WithImportCheck enables the import verification.
func WithImportCheck(c ImportChecker) Option {
	return func(r *Resolver) { r.importer = c }
}

// Resolver maps repository identifiers to package names. All curated tables
// are passed in; it reads no global state.
type Resolver struct {
	overrides map[string]string
	skip      map[string]string
	imports   map[string]string
	index     Index
	importer  ImportChecker
}

// New builds a Resolver. overrides maps identifier to package, skip maps
// identifier to reason, imports maps package to import module. Identifier
// and package keys match case-insensitively.
func New(overrides, skip, imports map[string]string, opts ...Option) *Resolver {
	r := &Resolver{
		overrides: lowerKeys(overrides),
		skip:      lowerKeys(skip),
		imports:   make(map[string]string, len(imports)),
	}
	for k, v := range imports {
		r.imports[Normalize(k)] = v
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Input is one identifier to resolve.
type Input struct {
	Identifier string
	Domain     Domain
}

// Resolve never fails: every outcome is encoded in the returned record.
func (r *Resolver) Resolve(ctx context.Context, id string, domain Domain) ToolRecord {
	rec := ToolRecord{Identifier: strings.TrimSpace(id), Domain: domain}
	key := strings.ToLower(rec.Identifier)

	if reason, ok := r.skip[key]; ok {
		rec.Resolution = Skipped(reason)
		return rec
	}

	pkg := r.candidate(rec.Identifier)
	if pkg == "" {
		slog.Debug("no package name derived", "identifier", rec.Identifier)
		rec.Resolution = Unknown("")
		return rec
	}

	if r.verify(ctx, pkg) {
		rec.Resolution = OK(pkg)
	} else {
		rec.Resolution = Unknown(pkg)
	}
	return rec
}

// ResolveAll resolves inputs in order and stops early when ctx is done,
// returning only the records that were resolved.
func (r *Resolver) ResolveAll(ctx context.Context, in []Input) []ToolRecord {
	list := make([]ToolRecord, 0, len(in))
	for _, i := range in {
		if ctx.Err() != nil {
			slog.Warn("resolution aborted", "resolved", len(list), "remaining", len(in)-len(list))
			break
		}
		list = append(list, r.Resolve(ctx, i.Identifier, i.Domain))
	}
	return list
}

// ImportName returns the module to import for pkg.
func (r *Resolver) ImportName(pkg string) string {
	if m, ok := r.imports[Normalize(pkg)]; ok && m != "" {
		return m
	}
	return DefaultImportName(pkg)
}

// DefaultImportName guesses the module of pkg when no mapping is configured.
func DefaultImportName(pkg string) string {
	return strings.ReplaceAll(Normalize(pkg), "-", "_")
}

func (r *Resolver) candidate(id string) string {
	if pkg, ok := r.overrides[strings.ToLower(id)]; ok {
		return strings.TrimSpace(pkg)
	}
	_, name, ok := SplitIdentifier(id)
	if !ok {
		return ""
	}
	return Normalize(name)
}

// verify is true only when at least one check ran and all of them passed.
func (r *Resolver) verify(ctx context.Context, pkg string) bool {
	if r.index == nil && r.importer == nil {
		return false
	}

	if r.index != nil {
		found, err := r.index.Exists(ctx, pkg)
		if err != nil {
			slog.Debug("index lookup failed", "package", pkg, "error", err)
			return false
		}
		if !found {
			slog.Debug("package not in index", "package", pkg)
			return false
		}
	}

	if r.importer != nil {
		if err := r.importer.CheckImport(ctx, r.ImportName(pkg)); err != nil {
			slog.Debug("import check failed", "package", pkg, "error", err)
			return false
		}
	}
	return true
}

// Normalize applies the package-index name normalization: lower case with
// runs of '-', '_' and '.' collapsed to a single '-'.
func Normalize(name string) string {
	return separatorRegEx.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
