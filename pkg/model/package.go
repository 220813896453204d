package model

// SchemaVersion is the only metadata schema version this implementation
// understands. Any document tagged with a different version is rejected
// with a SchemaError, mirroring the way swupd's ManifestHeader.Format
// gates on a single known manifest format.
const SchemaVersion = 1

// PackageMetadata describes one package: either a complete snapshot of
// a revision (From == nil) or a patch that transforms From into To.
type PackageMetadata struct {
	PackageDataName CleanName    `json:"package_data_name"`
	From            *CleanName   `json:"from,omitempty"`
	To              CleanName    `json:"to"`
	Size            uint64       `json:"size"`
	Operations      []*Operation `json:"operations"`
	Hash            Hash         `json:"hash"`
}

// IsComplete reports whether this package is a full snapshot of To
// rather than a patch from some earlier revision.
func (p *PackageMetadata) IsComplete() bool {
	return p.From == nil
}

// FileName is the conventional package_data_name for a package, chosen
// as patch_<from>_<to> or complete_<to>.
func FileName(from *CleanName, to CleanName) CleanName {
	if from == nil {
		return CleanName("complete_" + to)
	}
	return CleanName("patch_" + string(*from) + "_" + string(to))
}

// PackageMetadataFile is the top-level document stored in the sibling
// "<pkg>.metadata" file, tagging the schema version alongside the
// package description per the core design's v1 schema family.
type PackageMetadataFile struct {
	Version         int          `json:"version"`
	PackageDataName CleanName    `json:"package_data_name"`
	From            *CleanName   `json:"from,omitempty"`
	To              CleanName    `json:"to"`
	Size            uint64       `json:"size"`
	Hash            Hash         `json:"hash"`
	Operations      []*Operation `json:"operations"`
}

// ToFile converts a PackageMetadata into its on-disk v1 document form.
func (p *PackageMetadata) ToFile() *PackageMetadataFile {
	return &PackageMetadataFile{
		Version:         SchemaVersion,
		PackageDataName: p.PackageDataName,
		From:            p.From,
		To:              p.To,
		Size:            p.Size,
		Hash:            p.Hash,
		Operations:      p.Operations,
	}
}

// FromFile converts an on-disk v1 document back into a PackageMetadata,
// rejecting anything but SchemaVersion.
func FromFile(f *PackageMetadataFile) (*PackageMetadata, error) {
	if f.Version != SchemaVersion {
		return nil, NewError(KindSchemaError, "package metadata has unsupported schema version %d", f.Version)
	}
	return &PackageMetadata{
		PackageDataName: f.PackageDataName,
		From:            f.From,
		To:              f.To,
		Size:            f.Size,
		Hash:            f.Hash,
		Operations:      f.Operations,
	}, nil
}
