// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux || clipboard_x11

package clipboard

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var initOnce sync.Once
var initErr error

func writeNative(text string) error {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	if initErr != nil {
		return fmt.Errorf("clipboard unavailable: %w", initErr)
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
