// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux && !clipboard_x11

package clipboard

import "errors"

// The native X11 clipboard needs cgo and libX11; build with -tags
// clipboard_x11 to enable it.
func writeNative(string) error {
	return errors.New("native clipboard not built in")
}
