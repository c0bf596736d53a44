package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// StoragePaths locates the on-disk state reported by GetSysHealth.
type StoragePaths struct {
	// Database is the SQLite file holding documents and usage records.
	Database string
	// LogDir holds the rotated log files.
	LogDir string
}

// SysHealth is a snapshot of process memory and on-disk footprint.
type SysHealth struct {
	AllocMB      uint64
	SysMB        uint64
	Goroutines   int
	DatabaseSize string
	LogSize      string
}

func GetSysHealth(paths StoragePaths) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		Goroutines:   runtime.NumGoroutine(),
		DatabaseSize: HumanSize(databaseSize(paths.Database)),
		LogSize:      HumanSize(dirSize(paths.LogDir)),
	}
}

// databaseSize counts the main file plus its WAL and shared-memory
// siblings, since a busy WAL can outgrow the database itself.
func databaseSize(path string) int64 {
	if path == "" {
		return 0
	}
	var size int64
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if info, err := os.Stat(p); err == nil {
			size += info.Size()
		}
	}
	return size
}

func dirSize(path string) int64 {
	if path == "" {
		return 0
	}
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}

// HumanSize formats a byte count using binary units.
func HumanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
