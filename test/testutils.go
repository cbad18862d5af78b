package test

import (
	"os"
	"path/filepath"
	"testing"
)

//WriteToFile writes an array of lines to a file
func WriteToFile(file *os.File, lines []string) error {

	for _, line := range lines {
		if _, err := file.WriteString(line + "\n"); err != nil {
			return err
		}
	}

	return nil
}

//CreateFile writes lines to name inside a temporary directory owned by t and returns its path
func CreateFile(t *testing.T, name string, lines []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("unable to create %s: %v", path, err)
	}
	defer file.Close()

	if err := WriteToFile(file, lines); err != nil {
		t.Fatalf("unable to write %s: %v", path, err)
	}
	return path
}
