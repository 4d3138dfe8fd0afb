// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// CreateArchive zips the *-report.json files in qaFolder into a temporary
// file and returns its path. The caller removes the file after the email
// is sent. Returns "" when the folder holds no report files.
func CreateArchive(qaFolder string) (string, error) {
	paths, err := filepath.Glob(filepath.Join(qaFolder, "*-report.json"))
	if err != nil {
		return "", fmt.Errorf("scanning QA folder %s: %w", qaFolder, err)
	}
	if len(paths) == 0 {
		return "", nil
	}
	sort.Strings(paths)

	tmp, err := os.CreateTemp("", "qa-results-*.zip")
	if err != nil {
		return "", fmt.Errorf("creating archive file: %w", err)
	}
	defer tmp.Close()

	zw := zip.NewWriter(tmp)
	for _, path := range paths {
		if err := addFile(zw, path); err != nil {
			zw.Close()
			os.Remove(tmp.Name())
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("finalizing archive: %w", err)
	}
	return tmp.Name(), nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("adding %s to archive: %w", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("writing %s to archive: %w", path, err)
	}
	return nil
}
