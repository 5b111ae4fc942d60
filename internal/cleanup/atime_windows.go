//go:build windows

package cleanup

import (
	"os"
	"time"
)

// accessTime falls back to ModTime on platforms without a Unix stat
// structure; os.Chtimes still sets a usable access time in hlscache.
func accessTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
