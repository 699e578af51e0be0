// Package manifest holds the launcher's version and asset index documents
// and the resolution rules applied to them before they become downloads.
package manifest

// Version is a version manifest, e.g. versions/<id>/<id>.json.
type Version struct {
	ID         string               `json:"id"`
	Type       string               `json:"type,omitempty"`
	MainClass  string               `json:"mainClass,omitempty"`
	Assets     string               `json:"assets,omitempty"`
	AssetIndex *AssetIndexRef       `json:"assetIndex,omitempty"`
	Downloads  map[string]*Download `json:"downloads,omitempty"`
	Libraries  []Library            `json:"libraries,omitempty"`
	Logging    *Logging             `json:"logging,omitempty"`
}

// Download is a remote file with its declared size and SHA-1.
type Download struct {
	URL  string `json:"url"`
	SHA1 string `json:"sha1,omitempty"`
	Size int64  `json:"size"`
}

// Artifact is a library file; Path is relative to the libraries directory.
type Artifact struct {
	Download
	Path string `json:"path,omitempty"`
}

// AssetIndexRef points at the asset index used by a version.
type AssetIndexRef struct {
	Download
	ID        string `json:"id"`
	TotalSize int64  `json:"totalSize,omitempty"`
}

// Logging carries the optional client logging configuration.
type Logging struct {
	Client *LoggingConfig `json:"client,omitempty"`
}

// LoggingConfig is a logging configuration file and how to pass it to the game.
type LoggingConfig struct {
	Argument string      `json:"argument,omitempty"`
	Type     string      `json:"type,omitempty"`
	File     LoggingFile `json:"file"`
}

// LoggingFile is the logging configuration download; ID is its file name.
type LoggingFile struct {
	Download
	ID string `json:"id"`
}

// Client returns the client jar download, or nil.
func (v *Version) Client() *Download {
	if v == nil || v.Downloads == nil {
		return nil
	}
	return v.Downloads["client"]
}

// AssetIndexID returns the asset index id, falling back to the assets field.
func (v *Version) AssetIndexID() string {
	if v.AssetIndex != nil && v.AssetIndex.ID != "" {
		return v.AssetIndex.ID
	}
	return v.Assets
}

// AssetIndex maps resource names to content-addressed objects.
type AssetIndex struct {
	Objects        map[string]AssetObject `json:"objects"`
	Virtual        bool                   `json:"virtual,omitempty"`
	MapToResources bool                   `json:"map_to_resources,omitempty"`
}

// AssetObject is a single asset, stored under its SHA-1.
type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// TotalSize returns the sum of all object sizes.
func (a *AssetIndex) TotalSize() int64 {
	var total int64
	for _, obj := range a.Objects {
		total += obj.Size
	}
	return total
}
