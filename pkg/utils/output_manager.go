package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArtifactSuffix is appended to an identifier to form every artifact stem
const ArtifactSuffix = "_variations"

// ArtifactManager derives artifact paths from identifiers and stems and
// manages the folders the stages exchange them through.
type ArtifactManager struct {
	JSONDir string
	CSVDir  string
	SortDir string
}

// NewArtifactManager creates a new artifact manager
func NewArtifactManager(jsonDir, csvDir, sortDir string) *ArtifactManager {
	return &ArtifactManager{
		JSONDir: jsonDir,
		CSVDir:  csvDir,
		SortDir: sortDir,
	}
}

// StemFor returns the artifact stem for an identifier
func StemFor(identifier string) string {
	return SafeFileName(identifier) + ArtifactSuffix
}

// Stem returns a file's base name without its extension
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// JSONPath is where the raw response for an identifier is stored
func (am *ArtifactManager) JSONPath(identifier string) string {
	return filepath.Join(am.JSONDir, StemFor(identifier)+".json")
}

// CSVPath is where the flat table for a stem is stored
func (am *ArtifactManager) CSVPath(stem string) string {
	return filepath.Join(am.CSVDir, stem+".csv")
}

// PartitionDir is the subfolder holding a table's partitions
func (am *ArtifactManager) PartitionDir(stem string) string {
	return filepath.Join(am.SortDir, stem)
}

// PartitionPath is the file for one category value of a table
func (am *ArtifactManager) PartitionPath(stem, value string) string {
	return filepath.Join(am.PartitionDir(stem), SafeFileName(value)+".csv")
}

// EnsureOutputDirsExist creates the three artifact folders
func (am *ArtifactManager) EnsureOutputDirsExist() error {
	for _, dir := range []string{am.JSONDir, am.CSVDir, am.SortDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ListFiles returns the files in dir with the given extension, sorted by name.
// A missing directory yields no files.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// GetFileType determines the file type based on extension
func GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".xlsx", ".xlsm":
		return "excel"
	default:
		return "unknown"
	}
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename into %s: %w", path, err)
	}
	return nil
}
