/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// byteSize prints as a short SI size for log lines, e.g. "1.2 kB".
type byteSize int64

func (b byteSize) String() string {
	const unit = 1000

	if b < unit {
		return fmt.Sprintf("%d B", int64(b))
	}

	value, prefix := float64(b)/unit, 0
	for value >= unit && prefix < len("kMGTPE")-1 {
		value /= unit
		prefix++
	}

	return fmt.Sprintf("%.1f %cB", value, "kMGTPE"[prefix])
}
