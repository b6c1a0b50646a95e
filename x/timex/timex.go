package timex

import "time"

// NowMs returns Unix milliseconds as int64, the timestamp format used in
// retained state documents.
func NowMs() int64 { return time.Now().UnixMilli() }
