//go:build darwin && cgo

package hardware

/*
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"

	"macstat/internal/device"
)

//export mstUSBNotify
func mstUSBNotify(ref C.uintptr_t, kind C.int, it C.uint32_t) {
	sub := cgo.Handle(ref).Value().(*usbSubscription)
	handles := drainUSB(it)
	if len(handles) == 0 {
		return
	}
	k := device.Added
	if kind != 0 {
		k = device.Removed
	}
	sub.handler(device.Notification{Kind: k, Handles: handles})
}

//export mstAudioNotify
func mstAudioNotify(ref C.uintptr_t) {
	sub := cgo.Handle(ref).Value().(*callbackSubscription)
	sub.handler(device.Notification{Kind: device.Changed})
}

//export mstDisplayNotify
func mstDisplayNotify(ref C.uintptr_t, display C.uint32_t, kind C.int) {
	sub := cgo.Handle(ref).Value().(*callbackSubscription)
	k := device.Added
	if kind != 0 {
		k = device.Removed
	}
	sub.handler(device.Notification{Kind: k, Handles: []device.Handle{newDisplayHandle(uint32(display))}})
}
