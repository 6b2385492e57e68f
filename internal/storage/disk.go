package storage

import "os"

// DatabaseSizeBytes returns the on-disk size of the SQLite database at
// dbPath, including the WAL and shared-memory sidecar files when present.
// Missing files contribute zero.
func DatabaseSizeBytes(dbPath string) (int64, error) {
	if dbPath == "" {
		return 0, nil
	}
	var total int64
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
