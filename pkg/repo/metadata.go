package repo

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/glorpus-work/repoq/pkg/advisory"
	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/nevra"
	"github.com/glorpus-work/repoq/pkg/pool"
	"github.com/mholt/archives"
	"gopkg.in/yaml.v3"
)

// PackageDoc is one package entry in a repository metadata document.
type PackageDoc struct {
	Name        string   `json:"name" yaml:"name"`
	Epoch       int      `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	Version     string   `json:"version" yaml:"version"`
	Release     string   `json:"release" yaml:"release"`
	Arch        string   `json:"arch" yaml:"arch"`
	SourceRPM   string   `json:"sourcerpm,omitempty" yaml:"sourcerpm,omitempty"`
	BuildTime   int64    `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	Files       []string `json:"files,omitempty" yaml:"files,omitempty"`
	Provides    []string `json:"provides,omitempty" yaml:"provides,omitempty"`
	Requires    []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Conflicts   []string `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Obsoletes   []string `json:"obsoletes,omitempty" yaml:"obsoletes,omitempty"`
	Recommends  []string `json:"recommends,omitempty" yaml:"recommends,omitempty"`
	Suggests    []string `json:"suggests,omitempty" yaml:"suggests,omitempty"`
	Enhances    []string `json:"enhances,omitempty" yaml:"enhances,omitempty"`
	Supplements []string `json:"supplements,omitempty" yaml:"supplements,omitempty"`
}

// AdvisoryRefDoc is one package reference inside an advisory entry.
type AdvisoryRefDoc struct {
	Name string `json:"name" yaml:"name"`
	EVR  string `json:"evr" yaml:"evr"`
	Arch string `json:"arch,omitempty" yaml:"arch,omitempty"`
}

// AdvisoryDoc is one advisory entry in a metadata document.
type AdvisoryDoc struct {
	ID       string           `json:"id" yaml:"id"`
	Kind     string           `json:"kind" yaml:"kind"`
	Severity string           `json:"severity,omitempty" yaml:"severity,omitempty"`
	Issued   int64            `json:"issued,omitempty" yaml:"issued,omitempty"`
	Refs     []AdvisoryRefDoc `json:"refs" yaml:"refs"`
}

// FilelistsEntry maps one package identity to its full file list, shipped
// separately from the main metadata so file data can be loaded on demand.
type FilelistsEntry struct {
	Name    string   `json:"name" yaml:"name"`
	Epoch   int      `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	Version string   `json:"version" yaml:"version"`
	Release string   `json:"release" yaml:"release"`
	Arch    string   `json:"arch" yaml:"arch"`
	Files   []string `json:"files" yaml:"files"`
}

// Metadata is a full repository metadata document.
type Metadata struct {
	FormatVersion string        `json:"format_version,omitempty" yaml:"format_version,omitempty"`
	Packages      []PackageDoc  `json:"packages" yaml:"packages"`
	Advisories    []AdvisoryDoc `json:"advisories,omitempty" yaml:"advisories,omitempty"`
	// Filelists names a sibling document holding per-package file lists,
	// relative to the metadata location.
	Filelists string `json:"filelists,omitempty" yaml:"filelists,omitempty"`
}

// FilelistsDoc is a separate file-lists document.
type FilelistsDoc struct {
	Packages []FilelistsEntry `json:"packages" yaml:"packages"`
}

// Record converts a package entry to a pool record attributed to repoID.
// Capability strings that fail to parse are dropped.
func (d *PackageDoc) Record(repoID string) pool.Record {
	return pool.Record{
		Name:        d.Name,
		Epoch:       d.Epoch,
		Version:     d.Version,
		Release:     d.Release,
		Arch:        d.Arch,
		SourceRPM:   d.SourceRPM,
		BuildTime:   d.BuildTime,
		Files:       d.Files,
		Provides:    parseDeps(d.Provides),
		Requires:    parseDeps(d.Requires),
		Conflicts:   parseDeps(d.Conflicts),
		Obsoletes:   parseDeps(d.Obsoletes),
		Recommends:  parseDeps(d.Recommends),
		Suggests:    parseDeps(d.Suggests),
		Enhances:    parseDeps(d.Enhances),
		Supplements: parseDeps(d.Supplements),
		RepoID:      repoID,
	}
}

func parseDeps(specs []string) nevra.ReldepList {
	deps := make(nevra.ReldepList, 0, len(specs))
	for _, spec := range specs {
		dep, err := nevra.ParseReldep(spec)
		if err != nil {
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}

// Advisory converts an advisory entry to its pool representation.
func (d *AdvisoryDoc) Advisory() advisory.Advisory {
	adv := advisory.Advisory{
		ID:       d.ID,
		Kind:     advisory.Kind(d.Kind),
		Severity: d.Severity,
		Issued:   d.Issued,
	}
	for _, ref := range d.Refs {
		adv.Refs = append(adv.Refs, advisory.Ref{
			Name: ref.Name,
			EVR:  nevra.ParseEVR(ref.EVR),
			Arch: ref.Arch,
		})
	}
	return adv
}

// ParseMetadata decodes a JSON metadata document.
func ParseMetadata(reader io.Reader) (*Metadata, error) {
	var md Metadata
	if err := json.NewDecoder(reader).Decode(&md); err != nil {
		return nil, errors.Wrap(errors.ErrParse, err.Error())
	}
	return &md, nil
}

// ParseTestcaseMetadata decodes a YAML fixture document.
func ParseTestcaseMetadata(reader io.Reader) (*Metadata, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read fixture")
	}
	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, errors.Wrap(errors.ErrParse, err.Error())
	}
	return &md, nil
}

// parseFilelists decodes a JSON file-lists document.
func parseFilelists(reader io.Reader) (*FilelistsDoc, error) {
	var doc FilelistsDoc
	if err := json.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrParse, err.Error())
	}
	return &doc, nil
}

// parseTestcaseFilelists decodes a YAML file-lists document.
func parseTestcaseFilelists(reader io.Reader) (*FilelistsDoc, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read filelists")
	}
	var doc FilelistsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrParse, err.Error())
	}
	return &doc, nil
}

// openDocument opens a metadata file, transparently decompressing it when
// the content is compressed (gzip, zstd, xz and friends).
func openDocument(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open metadata file: %s", path)
	}

	format, stream, err := archives.Identify(ctx, path, file)
	if err != nil {
		// Unrecognized content is treated as a plain document.
		if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
			_ = file.Close()
			return nil, errors.Wrap(seekErr, "failed to rewind metadata file")
		}
		return file, nil
	}

	decomp, ok := format.(archives.Decompressor)
	if !ok {
		_ = file.Close()
		return nil, errors.Wrapf(errors.ErrParse, "unsupported metadata container: %s", path)
	}
	rc, err := decomp.OpenReader(stream)
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrap(errors.ErrParse, err.Error())
	}
	return &compositeCloser{Reader: rc, closers: []io.Closer{rc, file}}, nil
}

type compositeCloser struct {
	io.Reader
	closers []io.Closer
}

func (c *compositeCloser) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
