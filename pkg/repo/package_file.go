package repo

import (
	"context"
	"encoding/json"
	"io"

	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/mholt/archives"
)

// PackageFileSuffix is the file extension of standalone package archives
// usable as command-line packages.
const PackageFileSuffix = ".rpq"

// packageManifest is the document stored as metadata.json inside a
// package archive.
type packageManifest struct {
	Package PackageDoc `json:"package"`
}

// ReadPackageFile reads the package description out of a standalone
// package archive.
func ReadPackageFile(ctx context.Context, path string) (*PackageDoc, error) {
	fsys, err := archives.FileSystem(ctx, path, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "not a package archive: %s: %v", path, err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	file, err := fsys.Open(MetadataFilename)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrParse, "package archive %s has no %s", path, MetadataFilename)
	}
	defer func() { _ = file.Close() }()

	var manifest packageManifest
	if err := json.NewDecoder(file).Decode(&manifest); err != nil {
		return nil, errors.Wrap(errors.ErrParse, err.Error())
	}
	if manifest.Package.Name == "" {
		return nil, errors.Wrapf(errors.ErrParse, "package archive %s names no package", path)
	}
	return &manifest.Package, nil
}
