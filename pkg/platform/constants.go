// Package platform describes the machine libraries are resolved for, in both
// Go naming and the naming used by launcher manifests.
package platform

const (
	// OSWindows represents the Windows operating system.
	OSWindows = "windows"
	// OSLinux represents the Linux operating system.
	OSLinux = "linux"
	// OSDarwin represents the macOS operating system.
	OSDarwin = "darwin"
	// AnyOS represents any possible OS
	AnyOS = "any"

	// ArchAMD64 represents the AMD64 (x86_64) architecture.
	ArchAMD64 = "amd64"
	// Arch386 represents the 32-bit x86 architecture.
	Arch386 = "386"
	// ArchARM represents the ARM architecture (32-bit).
	ArchARM = "arm"
	// ArchARM64 represents the ARM64 (AArch64) architecture.
	ArchARM64 = "arm64"
	// AnyArch represents any possible architecture
	AnyArch = "any"
)

// Manifest OS names.
const (
	ManifestWindows = "windows"
	ManifestLinux   = "linux"
	ManifestOSX     = "osx"
)

// ValidOS returns a list of valid OS values.
func ValidOS() []string {
	return []string{OSWindows, OSLinux, OSDarwin}
}

// ValidArch returns a list of valid architecture values.
func ValidArch() []string {
	return []string{ArchAMD64, Arch386, ArchARM, ArchARM64}
}
