package kernel

import (
	"time"

	"github.com/lestrrat-go/strftime"
)

// traceTimeFormat is the default trace-log timestamp layout: millisecond
// precision, matching the timestamp resolution a message queue's
// per-entry timestamp (see queue.go's msgDesc.timestamp) is meant to
// carry.
const traceTimeFormat = "%Y-%m-%d %H:%M:%S.%f"

// timeFormatter formats port timestamps (nanoseconds since port
// start) for trace/log output, using the same strftime layout
// language the teacher uses for per-packet log filenames.
type timeFormatter struct {
	f *strftime.Strftime
}

func newTimeFormatter(layout string) (*timeFormatter, error) {
	if layout == "" {
		layout = traceTimeFormat
	}
	f, err := strftime.New(layout)
	if err != nil {
		return nil, err
	}
	return &timeFormatter{f: f}, nil
}

// FormatTimestamp renders a nanosecond timestamp (as returned by
// Port.TimestampNow, or stashed in a Queue message/ObjStats) as a
// human-readable trace line prefix.
func (tf *timeFormatter) FormatTimestamp(ns int64) string {
	return tf.f.FormatString(time.Unix(0, ns).UTC())
}
