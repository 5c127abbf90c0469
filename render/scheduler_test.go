// Copyright (c) 2025, The Gargantua Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotRotation(t *testing.T) {
	fs := FrameScheduler{NSlots: 3}
	for i := 0; i < 9; i++ {
		assert.Equal(t, i%3, fs.Slot())
		fs.FrameIndex++
	}
}

// TestSlotReuseDiscipline models the host side of the frame loop
// against a device that retires a submission only when its slot's
// fence is waited.  WaitSlot must clear the slot whose ImageAvailable
// semaphore acquisition is about to re-signal, and Dispatch must
// occupy that same slot: if the gate and the dispatch ever target
// different slots, a semaphore gets re-signaled while the prior
// frame's compute wait on it is still pending.
func TestSlotReuseDiscipline(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		fs := FrameScheduler{NSlots: n}
		pending := map[int]int{} // slot -> frame with an unretired wait on its semaphore
		for frame := 0; frame < 4*n; frame++ {
			// loop order: read the slot, wait its fence, acquire
			// with its semaphore, dispatch into it
			slot := fs.Slot()
			delete(pending, slot) // WaitSlot retires exactly this slot
			prior, busy := pending[slot]
			assert.False(t, busy,
				"nslots=%d frame=%d: slot %d re-signaled while frame %d still waits on it", n, frame, slot, prior)

			dispatchSlot := fs.Slot()
			fs.FrameIndex++ // Dispatch reads the slot, then advances
			assert.Equal(t, slot, dispatchSlot,
				"fence gate and dispatch must target the same slot")
			pending[dispatchSlot] = frame
		}
		assert.LessOrEqual(t, len(pending), n)
	}
}

func TestSliceUint32(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], 0x07230203) // SPIR-V magic
	binary.LittleEndian.PutUint32(data[4:], 0x00010500)

	words := SliceUint32(data)
	assert.Len(t, words, 2)
	assert.Equal(t, uint32(0x07230203), words[0])
	assert.Equal(t, uint32(0x00010500), words[1])
}
