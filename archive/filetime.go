package archive

import "time"

// seconds between 1601-01-01 and 1970-01-01
const fileTimeEpochSeconds = 11644473600

// FileTime converts t into a Windows FILETIME: 100ns intervals since
// 1601-01-01 UTC. Archive names are built from it.
func FileTime(t time.Time) int64 {
	return (t.Unix()+fileTimeEpochSeconds)*1e7 + int64(t.Nanosecond()/100)
}
