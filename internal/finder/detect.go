package finder

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DetectedProject describes the ecosystem(s) a local directory belongs to.
type DetectedProject struct {
	RootPath   string
	Name       string
	Ecosystems []string // any of "rust", "python", "node"
}

// ProjectDetector inspects a directory for ecosystem manifest files.
type ProjectDetector struct {
	rootPath string
}

// NewProjectDetector creates a new project detector rooted at rootPath.
func NewProjectDetector(rootPath string) *ProjectDetector {
	return &ProjectDetector{rootPath: rootPath}
}

// Detect inspects Cargo.toml, package.json and pyproject.toml and returns
// every ecosystem manifest found, along with the first declared name.
// setup.py is not read.
func (d *ProjectDetector) Detect() *DetectedProject {
	info := &DetectedProject{
		RootPath: d.rootPath,
		Name:     filepath.Base(d.rootPath),
	}

	if name := d.detectCargoToml(); name != "" {
		info.Ecosystems = append(info.Ecosystems, "rust")
		info.Name = name
	}
	if name := d.detectPackageJSON(); name != "" {
		info.Ecosystems = append(info.Ecosystems, "node")
		if len(info.Ecosystems) == 1 {
			info.Name = name
		}
	}
	if name := d.detectPyproject(); name != "" {
		info.Ecosystems = append(info.Ecosystems, "python")
		if len(info.Ecosystems) == 1 {
			info.Name = name
		}
	}

	return info
}

// detectCargoToml parses Cargo.toml and extracts the package name.
func (d *ProjectDetector) detectCargoToml() string {
	path := filepath.Join(d.rootPath, "Cargo.toml")
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	nameRegex := regexp.MustCompile(`^\s*name\s*=\s*["']([^"']+)["']`)
	inPackageSection := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inPackageSection = trimmed == "[package]"
			continue
		}
		if inPackageSection {
			if matches := nameRegex.FindStringSubmatch(line); len(matches) > 1 {
				return matches[1]
			}
		}
	}
	return ""
}

// detectPackageJSON parses package.json and extracts the name.
func (d *ProjectDetector) detectPackageJSON() string {
	pkgPath := filepath.Join(d.rootPath, "package.json")
	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return ""
	}

	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}

	name := pkg.Name
	if name == "" {
		return ""
	}

	// Handle scoped packages (@org/name -> name)
	if strings.HasPrefix(name, "@") {
		parts := strings.Split(name, "/")
		if len(parts) > 1 {
			name = parts[len(parts)-1]
		}
	}

	return name
}

// detectPyproject parses pyproject.toml and extracts the project name.
func (d *ProjectDetector) detectPyproject() string {
	pyPath := filepath.Join(d.rootPath, "pyproject.toml")
	file, err := os.Open(pyPath)
	if err != nil {
		return ""
	}
	defer func() { _ = file.Close() }()

	// Simple TOML parsing for name field
	// Looking for: name = "project-name" under [project] section
	scanner := bufio.NewScanner(file)
	nameRegex := regexp.MustCompile(`^\s*name\s*=\s*["']([^"']+)["']`)
	inProjectSection := false

	for scanner.Scan() {
		line := scanner.Text()

		// Check for section headers
		if strings.HasPrefix(strings.TrimSpace(line), "[") {
			inProjectSection = strings.TrimSpace(line) == "[project]"
			continue
		}

		// Look for name in [project] section
		if inProjectSection {
			if matches := nameRegex.FindStringSubmatch(line); len(matches) > 1 {
				return matches[1]
			}
		}
	}

	return ""
}
