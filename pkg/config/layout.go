package config

import "path/filepath"

// Layout is the standard launcher directory tree under one root:
//
//	<root>/libraries
//	<root>/assets/indexes
//	<root>/assets/objects
//	<root>/assets/log_configs
//	<root>/versions/<id>
//	<root>/versions/<id>/natives
type Layout struct {
	Root string
}

// NewLayout returns the layout rooted at root, made absolute when possible.
func NewLayout(root string) Layout {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return Layout{Root: root}
}

func (l Layout) LibrariesDir() string    { return filepath.Join(l.Root, "libraries") }
func (l Layout) AssetIndexesDir() string { return filepath.Join(l.Root, "assets", "indexes") }
func (l Layout) AssetObjectsDir() string { return filepath.Join(l.Root, "assets", "objects") }
func (l Layout) LogConfigsDir() string   { return filepath.Join(l.Root, "assets", "log_configs") }

func (l Layout) VersionDir(id string) string { return filepath.Join(l.Root, "versions", id) }

func (l Layout) NativesDir(id string) string {
	return filepath.Join(l.VersionDir(id), "natives")
}
