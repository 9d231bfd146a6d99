// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import "strings"

func parseYesNo(input string) (bool, bool) {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	switch trimmed {
	case "", "n", "no", "否":
		return false, true
	case "y", "yes", "是":
		return true, true
	default:
		return false, false
	}
}
