// Package finder locates packages already installed on the local
// filesystem: Python site-packages, Node node_modules, and Rust crates in
// the cargo registry or toolchain sysroot. It is deliberately independent
// of network access — resolution is pure filesystem/subprocess discovery
// used to back source-snippet and implementation-extraction tools.
package finder

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	docerrors "github.com/Aman-CERP/polydocs-mcp/internal/docerrors"
)

var stdRustCrates = map[string]bool{
	"std": true, "core": true, "alloc": true, "proc_macro": true, "test": true,
}

// Finder locates installed package sources on disk.
type Finder struct {
	runner CommandRunner
}

// CommandRunner abstracts subprocess invocation so tests can stub it out.
type CommandRunner interface {
	Run(dir, name string, args ...string) (stdout string, err error)
}

// execRunner shells out via os/exec.
type execRunner struct{}

func (execRunner) Run(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, errBuf.String())
	}
	return out.String(), nil
}

// New creates a Finder that shells out to pip, npm and rustc.
func New() *Finder {
	return &Finder{runner: execRunner{}}
}

// NewWithRunner creates a Finder using a custom CommandRunner, for testing.
func NewWithRunner(r CommandRunner) *Finder {
	return &Finder{runner: r}
}

// FindPythonPackagePath resolves the installation directory of a Python
// package via `pip show`, honoring the DOC_PYTHON_PACKAGE_PATH[_NAME]
// environment override pair described by the server configuration.
func (f *Finder) FindPythonPackagePath(packageName string) (string, error) {
	if override := lookupOverride("DOC_PYTHON_PACKAGE_PATH", "DOC_PYTHON_PACKAGE_PATH_NAME", packageName); override != "" {
		return override, nil
	}

	out, err := f.runner.Run("", "pip", "show", packageName)
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodePackageNotFound,
			fmt.Sprintf("failed to run 'pip show %s'", packageName), err).
			WithSuggestion("Is pip installed and on PATH, and is the package installed in the active environment?")
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Location: ") {
			location := strings.TrimSpace(strings.TrimPrefix(line, "Location: "))
			candidate := filepath.Join(location, packageName)
			if isDir(candidate) {
				return candidate, nil
			}
			return location, nil
		}
	}
	return "", docerrors.New(docerrors.ErrCodePackageNotFound,
		fmt.Sprintf("could not find 'Location:' in 'pip show %s' output", packageName), nil)
}

// FindNodePackagePath resolves a Node package directory via `npm root`,
// run from contextPath so local (non-global) node_modules are discovered.
func (f *Finder) FindNodePackagePath(packageName, contextPath string) (string, error) {
	if override := lookupOverride("DOC_NODE_PACKAGE_PATH", "DOC_NODE_PACKAGE_PATH_NAME", packageName); override != "" {
		return override, nil
	}

	out, err := f.runner.Run(contextPath, "npm", "root")
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodePackageNotFound,
			"failed to run 'npm root'", err).
			WithSuggestion("Is npm installed and on PATH?")
	}

	nodeModules := strings.TrimSpace(out)
	packagePath := filepath.Join(nodeModules, packageName)
	if _, err := os.Stat(packagePath); err != nil {
		return "", docerrors.New(docerrors.ErrCodePackageNotFound,
			fmt.Sprintf("package '%s' not found at '%s'", packageName, packagePath), err)
	}
	return packagePath, nil
}

// FindRustCratePath resolves a crate's extracted source directory, first
// checking the toolchain sysroot for std-library crates, then scanning the
// cargo registry src/ cache for <crate>-<version> directories.
func (f *Finder) FindRustCratePath(crateName, version string) (string, error) {
	if stdRustCrates[crateName] {
		if out, err := f.runner.Run("", "rustc", "--print", "sysroot"); err == nil {
			sysroot := strings.TrimSpace(out)
			path := filepath.Join(sysroot, "lib", "rustlib", "src", "rust", "library", crateName, "src")
			if isDir(path) {
				return path, nil
			}
		}
	}

	cargoHome, err := cargoHomeDir()
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodePackageNotFound, "could not determine CARGO_HOME", err)
	}

	registrySrc := filepath.Join(cargoHome, "registry", "src")
	entries, err := os.ReadDir(registrySrc)
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodePackageNotFound,
			fmt.Sprintf("failed to read cargo registry at %s", registrySrc), err)
	}

	want := fmt.Sprintf("%s-%s", crateName, version)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(registrySrc, entry.Name(), want)
		if isDir(candidate) {
			return candidate, nil
		}
	}

	return "", docerrors.New(docerrors.ErrCodePackageNotFound,
		fmt.Sprintf("crate '%s'@'%s' not found in local cargo registry", crateName, version), nil)
}

// FindLatestRustCrateVersion scans the cargo registry src cache for the
// highest-semver locally extracted version of crateName, for use when a
// caller has no explicit version (e.g. implementation extraction against
// whatever is checked out locally). Returns "" with a nil error if the
// crate has no locally extracted versions.
func (f *Finder) FindLatestRustCrateVersion(crateName string) (string, error) {
	cargoHome, err := cargoHomeDir()
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodePackageNotFound, "could not determine CARGO_HOME", err)
	}

	registrySrc := filepath.Join(cargoHome, "registry", "src")
	registries, err := os.ReadDir(registrySrc)
	if err != nil {
		return "", docerrors.New(docerrors.ErrCodePackageNotFound,
			fmt.Sprintf("failed to read cargo registry at %s", registrySrc), err)
	}

	prefix := crateName + "-"
	var best string
	for _, registry := range registries {
		if !registry.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(registrySrc, registry.Name()))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
				continue
			}
			version := strings.TrimPrefix(entry.Name(), prefix)
			if best == "" || compareCrateVersions(version, best) > 0 {
				best = version
			}
		}
	}

	return best, nil
}

func compareCrateVersions(a, b string) int {
	va, vb := "v"+a, "v"+b
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}
	return strings.Compare(a, b)
}

func cargoHomeDir() (string, error) {
	if v := os.Getenv("CARGO_HOME"); v != "" {
		return v, nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".cargo"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cargo"), nil
}

// lookupOverride implements the DOC_<LANG>_PACKAGE_PATH[_NAME] env-var pair:
// when pathVar is set and either nameVar is unset or matches packageName,
// the override path is returned verbatim.
func lookupOverride(pathVar, nameVar, packageName string) string {
	path := os.Getenv(pathVar)
	if path == "" {
		return ""
	}
	if name := os.Getenv(nameVar); name != "" && name != packageName {
		return ""
	}
	return path
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
