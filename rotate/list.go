package rotate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Backup is a backup file on disk.
type Backup struct {
	Generation
	Size    int64
	ModTime time.Time
}

// ListBackups returns the backups of the family whose live file is path,
// lowest generation first.
func ListBackups(path string) ([]Backup, error) {
	namer, err := NewNamer(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)

	found, err := scanFamily(dir, namer)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Number < found[j].Number
	})

	backups := make([]Backup, 0, len(found))
	for _, g := range found {
		info, err := os.Stat(filepath.Join(dir, g.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", g.Name, err)
		}
		backups = append(backups, Backup{
			Generation: g,
			Size:       info.Size(),
			ModTime:    info.ModTime(),
		})
	}
	return backups, nil
}
