// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIfPanicCheckErr(t *testing.T) {
	boundary := func() (err error) {
		defer CheckErr(&err)
		IfPanic(errors.New("device creation failed"))
		return nil
	}
	err := boundary()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "device creation failed")
}

func TestIfPanicFinalizers(t *testing.T) {
	ran := false
	func() {
		defer func() { recover() }()
		IfPanic(errors.New("boom"), func() { ran = true })
	}()
	assert.True(t, ran, "finalizers must run before unwinding")

	ran = false
	IfPanic(nil, func() { ran = true })
	assert.False(t, ran, "nil error must not run finalizers")
}
