package dataroot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Info summarizes the list files kept under the root.
type Info struct {
	DataFolder string `json:"data_folder"`
	TotalSize  int64  `json:"total_size"`
	FileCount  int    `json:"file_count"`
	Status     string `json:"status"`
}

// Info counts the *.json files directly inside active/ and completed/ and
// sums their sizes. Journal files are not included. Missing status
// directories count as empty.
func (r *Root) Info() (Info, error) {
	info := Info{DataFolder: r.path, Status: "success"}

	for _, status := range []string{ActiveDir, CompletedDir} {
		dir := r.StatusDir(status)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Info{}, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				return Info{}, fmt.Errorf("failed to stat %s: %w", filepath.Join(dir, e.Name()), err)
			}
			info.TotalSize += fi.Size()
			info.FileCount++
		}
	}

	return info, nil
}
