// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// IsError returns true if the given vulkan result is anything other
// than success.
func IsError(ret vk.Result) bool {
	return ret != vk.Success
}

// NewError returns an error wrapping the given vulkan result,
// and nil for success.
func NewError(ret vk.Result) error {
	if ret != vk.Success {
		return fmt.Errorf("vulkan error: %s (%d)", vk.Error(ret).Error(), ret)
	}
	return nil
}

// IfPanic panics on any non-nil error, running given finalizers first
// so that resources acquired earlier on the same path are released.
// Creation and submission failures are unrecoverable: GPU state is
// unknown after them, so they unwind to the component boundary.
func IfPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

// CheckErr recovers a panic from IfPanic into the given error pointer.
// Used via defer at exported component boundaries to convert the
// internal panic-based unwinding into a normal error return.
func CheckErr(err *error) {
	if v := recover(); v != nil {
		*err = fmt.Errorf("%+v", v)
	}
}
