//go:build darwin && cgo

package hardware

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework IOKit -framework CoreFoundation -framework CoreAudio -framework CoreGraphics -framework AppKit -framework Foundation

#include <stdint.h>
#include <stdlib.h>
#include <string.h>
#include <CoreFoundation/CoreFoundation.h>
#include <IOKit/IOKitLib.h>
#include <CoreAudio/CoreAudio.h>
#include <CoreGraphics/CoreGraphics.h>
#import <AppKit/AppKit.h>

// Implemented in Go (exports_darwin.go).
extern void mstUSBNotify(uintptr_t ref, int kind, uint32_t it);
extern void mstAudioNotify(uintptr_t ref);
extern void mstDisplayNotify(uintptr_t ref, uint32_t display, int kind);

// Returns a malloc'd UTF-8 copy of s, or NULL.
static char *mstCopyCString(CFStringRef s) {
    if (s == NULL) {
        return NULL;
    }
    CFIndex len = CFStringGetLength(s);
    CFIndex max = CFStringGetMaximumSizeForEncoding(len, kCFStringEncodingUTF8) + 1;
    char *buf = malloc(max);
    if (buf == NULL) {
        return NULL;
    }
    if (!CFStringGetCString(s, buf, max, kCFStringEncodingUTF8)) {
        free(buf);
        return NULL;
    }
    return buf;
}

// ---- run loop ----

static int mstRunLoopSlice(double seconds) {
    return (int)CFRunLoopRunInMode(kCFRunLoopDefaultMode, seconds, false);
}

// ---- USB (IOKit) ----

static void mstUSBAdded(void *refcon, io_iterator_t it) {
    mstUSBNotify((uintptr_t)refcon, 0, (uint32_t)it);
}

static void mstUSBRemoved(void *refcon, io_iterator_t it) {
    mstUSBNotify((uintptr_t)refcon, 1, (uint32_t)it);
}

static IONotificationPortRef mstUSBPortCreate(void) {
    IONotificationPortRef port = IONotificationPortCreate(kIOMainPortDefault);
    if (port != NULL) {
        CFRunLoopAddSource(CFRunLoopGetCurrent(), IONotificationPortGetRunLoopSource(port), kCFRunLoopDefaultMode);
    }
    return port;
}

static void mstUSBPortDestroy(IONotificationPortRef port) {
    if (port == NULL) {
        return;
    }
    CFRunLoopRemoveSource(CFRunLoopGetCurrent(), IONotificationPortGetRunLoopSource(port), kCFRunLoopDefaultMode);
    IONotificationPortDestroy(port);
}

// kind 0 installs a first-match notification, kind 1 a terminated one.
// IOServiceMatching's dictionary is consumed by the call.
static kern_return_t mstUSBAddNotification(IONotificationPortRef port, int kind, uintptr_t ref, uint32_t *out) {
    CFMutableDictionaryRef match = IOServiceMatching("IOUSBHostDevice");
    if (match == NULL) {
        return kIOReturnNoMemory;
    }
    io_iterator_t it = 0;
    kern_return_t kr;
    if (kind == 0) {
        kr = IOServiceAddMatchingNotification(port, kIOFirstMatchNotification, match, mstUSBAdded, (void *)ref, &it);
    } else {
        kr = IOServiceAddMatchingNotification(port, kIOTerminatedNotification, match, mstUSBRemoved, (void *)ref, &it);
    }
    *out = (uint32_t)it;
    return kr;
}

static uint32_t mstUSBMatching(kern_return_t *kr) {
    io_iterator_t it = 0;
    *kr = IOServiceGetMatchingServices(kIOMainPortDefault, IOServiceMatching("IOUSBHostDevice"), &it);
    return (uint32_t)it;
}

static uint32_t mstIteratorNext(uint32_t it) {
    return (uint32_t)IOIteratorNext((io_iterator_t)it);
}

static void mstObjectRelease(uint32_t obj) {
    if (obj != 0) {
        IOObjectRelease((io_object_t)obj);
    }
}

static uint64_t mstEntryID(uint32_t svc) {
    uint64_t id = 0;
    IORegistryEntryGetRegistryEntryID((io_registry_entry_t)svc, &id);
    return id;
}

static char *mstUSBName(uint32_t svc) {
    CFTypeRef prop = IORegistryEntryCreateCFProperty((io_registry_entry_t)svc, CFSTR("USB Product Name"), kCFAllocatorDefault, 0);
    if (prop == NULL) {
        return NULL;
    }
    char *name = NULL;
    if (CFGetTypeID(prop) == CFStringGetTypeID()) {
        name = mstCopyCString((CFStringRef)prop);
    }
    CFRelease(prop);
    return name;
}

// ---- Audio (CoreAudio) ----

static const AudioObjectPropertyAddress mstDevicesAddress = {
    kAudioHardwarePropertyDevices,
    kAudioObjectPropertyScopeGlobal,
    kAudioObjectPropertyElementMain
};

static OSStatus mstAudioListener(AudioObjectID obj, UInt32 n, const AudioObjectPropertyAddress *addrs, void *client) {
    (void)obj;
    (void)n;
    (void)addrs;
    mstAudioNotify((uintptr_t)client);
    return noErr;
}

// Routes HAL notifications to the calling thread's run loop instead of the
// HAL's own notification thread.
static OSStatus mstAudioBindRunLoop(void) {
    CFRunLoopRef rl = CFRunLoopGetCurrent();
    AudioObjectPropertyAddress addr = {
        kAudioHardwarePropertyRunLoop,
        kAudioObjectPropertyScopeGlobal,
        kAudioObjectPropertyElementMain
    };
    return AudioObjectSetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, sizeof(rl), &rl);
}

static OSStatus mstAudioAddListener(uintptr_t ref) {
    return AudioObjectAddPropertyListener(kAudioObjectSystemObject, &mstDevicesAddress, mstAudioListener, (void *)ref);
}

static OSStatus mstAudioRemoveListener(uintptr_t ref) {
    return AudioObjectRemovePropertyListener(kAudioObjectSystemObject, &mstDevicesAddress, mstAudioListener, (void *)ref);
}

// Returns the number of devices written to out, the number present when
// out is NULL or too small, or -1 on error.
static int mstAudioDevices(AudioObjectID *out, int max) {
    UInt32 size = 0;
    if (AudioObjectGetPropertyDataSize(kAudioObjectSystemObject, &mstDevicesAddress, 0, NULL, &size) != noErr) {
        return -1;
    }
    int count = (int)(size / sizeof(AudioObjectID));
    if (out == NULL || max < count) {
        return count;
    }
    if (AudioObjectGetPropertyData(kAudioObjectSystemObject, &mstDevicesAddress, 0, NULL, &size, out) != noErr) {
        return -1;
    }
    return (int)(size / sizeof(AudioObjectID));
}

static char *mstAudioName(AudioObjectID id) {
    CFStringRef name = NULL;
    UInt32 size = sizeof(name);
    AudioObjectPropertyAddress addr = {
        kAudioObjectPropertyName,
        kAudioObjectPropertyScopeGlobal,
        kAudioObjectPropertyElementMain
    };
    if (AudioObjectGetPropertyData(id, &addr, 0, NULL, &size, &name) != noErr || name == NULL) {
        return NULL;
    }
    char *s = mstCopyCString(name);
    CFRelease(name);
    return s;
}

// ---- Displays (CoreGraphics) ----

static void mstDisplayCallback(CGDirectDisplayID display, CGDisplayChangeSummaryFlags flags, void *user) {
    if (flags & kCGDisplayBeginConfigurationFlag) {
        return;
    }
    if (flags & kCGDisplayAddFlag) {
        mstDisplayNotify((uintptr_t)user, display, 0);
    } else if (flags & kCGDisplayRemoveFlag) {
        mstDisplayNotify((uintptr_t)user, display, 1);
    }
}

static CGError mstDisplayRegister(uintptr_t ref) {
    return CGDisplayRegisterReconfigurationCallback(mstDisplayCallback, (void *)ref);
}

static CGError mstDisplayUnregister(uintptr_t ref) {
    return CGDisplayRemoveReconfigurationCallback(mstDisplayCallback, (void *)ref);
}

static int mstDisplays(CGDirectDisplayID *out, int max) {
    uint32_t n = 0;
    if (CGGetOnlineDisplayList((uint32_t)max, out, &n) != kCGErrorSuccess) {
        return -1;
    }
    return (int)n;
}

static char *mstDisplayName(CGDirectDisplayID id) {
    @autoreleasepool {
        for (NSScreen *screen in [NSScreen screens]) {
            NSNumber *num = screen.deviceDescription[@"NSScreenNumber"];
            if (num == nil || num.unsignedIntValue != id) {
                continue;
            }
            if (@available(macOS 10.15, *)) {
                NSString *name = screen.localizedName;
                if (name.length > 0) {
                    return strdup(name.UTF8String);
                }
            }
        }
    }
    if (CGDisplayIsBuiltin(id)) {
        return strdup("Built-in Display");
    }
    return NULL;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/cgo"
	"sync"
	"time"
	"unsafe"

	"macstat/internal/device"
	"macstat/internal/logging"
)

// Backend is the macOS device layer.
type Backend struct {
	logger *slog.Logger
}

// Open returns the macOS backend.
func Open(logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = logging.Default().WithComponent("hardware").Logger
	}
	return &Backend{logger: logger}, nil
}

// Source returns the notification source for class.
func (b *Backend) Source(class device.Class) (device.Source, error) {
	switch class {
	case device.ClassPeripheral:
		return &usbSource{subs: newSubscriptions[*usbSubscription](), logger: b.logger}, nil
	case device.ClassAudio:
		return &audioSource{subs: newSubscriptions[*callbackSubscription](), logger: b.logger}, nil
	case device.ClassDisplay:
		return &displaySource{subs: newSubscriptions[*callbackSubscription](), logger: b.logger}, nil
	default:
		return nil, fmt.Errorf("hardware: no source for class %d", int(class))
	}
}

// Pump runs the current thread's run loop for at most slice. When the run
// loop has no sources it returns at once, so the remainder of the slice is
// slept to keep the caller's cadence.
func (b *Backend) Pump(slice time.Duration) error {
	start := time.Now()
	if C.mstRunLoopSlice(C.double(slice.Seconds())) == C.kCFRunLoopRunFinished {
		if rest := slice - time.Since(start); rest > 0 {
			time.Sleep(rest)
		}
	}
	return nil
}

// subscriptions tracks live subscriptions by token.
type subscriptions[S any] struct {
	mu   sync.Mutex
	next device.Token
	live map[device.Token]S
}

func newSubscriptions[S any]() *subscriptions[S] {
	return &subscriptions[S]{live: make(map[device.Token]S)}
}

func (s *subscriptions[S]) add(sub S) device.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.live[s.next] = sub
	return s.next
}

func (s *subscriptions[S]) take(t device.Token) (S, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.live[t]
	delete(s.live, t)
	return sub, ok
}

// callbackSubscription is the refcon behind audio and display callbacks.
type callbackSubscription struct {
	handler device.Handler
	ref     cgo.Handle
}

// ---- USB ----

type usbSubscription struct {
	handler device.Handler
	ref     cgo.Handle
	port    C.IONotificationPortRef
	added   C.uint32_t
	removed C.uint32_t
}

type usbSource struct {
	subs   *subscriptions[*usbSubscription]
	logger *slog.Logger
}

func (s *usbSource) Class() device.Class { return device.ClassPeripheral }

func (s *usbSource) Enumerate() ([]device.Handle, error) {
	var kr C.kern_return_t
	it := C.mstUSBMatching(&kr)
	if kr != C.KERN_SUCCESS {
		return nil, fmt.Errorf("hardware: IOServiceGetMatchingServices: 0x%x", uint32(kr))
	}
	defer C.mstObjectRelease(it)
	return drainUSB(it), nil
}

// drainUSB consumes every service from it, reading id and name while each
// service object is still retained. Draining also re-arms a notification
// iterator.
func drainUSB(it C.uint32_t) []device.Handle {
	var out []device.Handle
	for {
		svc := C.mstIteratorNext(it)
		if svc == 0 {
			return out
		}
		h := device.StaticHandle{DeviceID: device.ID(C.mstEntryID(svc))}
		if cname := C.mstUSBName(svc); cname != nil {
			h.DeviceName = C.GoString(cname)
			C.free(unsafe.Pointer(cname))
		} else {
			h.Err = errNoName
		}
		C.mstObjectRelease(svc)
		out = append(out, h)
	}
}

func (s *usbSource) Subscribe(h device.Handler) (device.Token, error) {
	sub := &usbSubscription{handler: h}
	sub.ref = cgo.NewHandle(sub)

	sub.port = C.mstUSBPortCreate()
	if sub.port == nil {
		sub.ref.Delete()
		return 0, fmt.Errorf("%w: IONotificationPortCreate returned NULL", ErrSubscribe)
	}

	ref := C.uintptr_t(sub.ref)
	if kr := C.mstUSBAddNotification(sub.port, 0, ref, &sub.added); kr != C.KERN_SUCCESS {
		s.release(sub)
		return 0, fmt.Errorf("%w: first-match notification: 0x%x", ErrSubscribe, uint32(kr))
	}
	if kr := C.mstUSBAddNotification(sub.port, 1, ref, &sub.removed); kr != C.KERN_SUCCESS {
		s.release(sub)
		return 0, fmt.Errorf("%w: terminated notification: 0x%x", ErrSubscribe, uint32(kr))
	}

	// The iterators only fire after they have been emptied once. Their
	// initial contents duplicate Enumerate and are discarded.
	drainUSB(sub.added)
	drainUSB(sub.removed)

	return s.subs.add(sub), nil
}

func (s *usbSource) Unsubscribe(t device.Token) error {
	sub, ok := s.subs.take(t)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownToken, t)
	}
	s.release(sub)
	return nil
}

func (s *usbSource) release(sub *usbSubscription) {
	C.mstObjectRelease(sub.added)
	C.mstObjectRelease(sub.removed)
	C.mstUSBPortDestroy(sub.port)
	sub.ref.Delete()
}

// ---- Audio ----

type audioHandle struct{ id C.AudioObjectID }

func (h audioHandle) ID() device.ID { return device.ID(h.id) }

func (h audioHandle) Name() (string, error) {
	cname := C.mstAudioName(h.id)
	if cname == nil {
		return "", errNoName
	}
	defer C.free(unsafe.Pointer(cname))
	return C.GoString(cname), nil
}

type audioSource struct {
	subs   *subscriptions[*callbackSubscription]
	logger *slog.Logger
}

func (s *audioSource) Class() device.Class { return device.ClassAudio }

func (s *audioSource) Enumerate() ([]device.Handle, error) {
	// The list can grow between the size query and the fetch.
	for attempt := 0; attempt < 3; attempt++ {
		n := int(C.mstAudioDevices(nil, 0))
		if n < 0 {
			return nil, errors.New("hardware: query audio device list failed")
		}
		if n == 0 {
			return nil, nil
		}
		ids := make([]C.AudioObjectID, n)
		got := int(C.mstAudioDevices(&ids[0], C.int(n)))
		if got < 0 {
			return nil, errors.New("hardware: read audio device list failed")
		}
		if got > n {
			continue
		}
		out := make([]device.Handle, 0, got)
		for _, id := range ids[:got] {
			out = append(out, audioHandle{id: id})
		}
		return out, nil
	}
	return nil, errors.New("hardware: audio device list kept changing")
}

func (s *audioSource) Subscribe(h device.Handler) (device.Token, error) {
	if st := C.mstAudioBindRunLoop(); st != 0 {
		s.logger.Debug("bind audio notifications to run loop", "status", int32(st))
	}

	sub := &callbackSubscription{handler: h}
	sub.ref = cgo.NewHandle(sub)
	if st := C.mstAudioAddListener(C.uintptr_t(sub.ref)); st != 0 {
		sub.ref.Delete()
		return 0, fmt.Errorf("%w: AudioObjectAddPropertyListener: %d", ErrSubscribe, int32(st))
	}
	return s.subs.add(sub), nil
}

func (s *audioSource) Unsubscribe(t device.Token) error {
	sub, ok := s.subs.take(t)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownToken, t)
	}
	defer sub.ref.Delete()
	if st := C.mstAudioRemoveListener(C.uintptr_t(sub.ref)); st != 0 {
		return fmt.Errorf("hardware: AudioObjectRemovePropertyListener: %d", int32(st))
	}
	return nil
}

// ---- Displays ----

type displayHandle struct{ id C.CGDirectDisplayID }

func newDisplayHandle(id uint32) displayHandle {
	return displayHandle{id: C.CGDirectDisplayID(id)}
}

func (h displayHandle) ID() device.ID { return device.ID(h.id) }

func (h displayHandle) Name() (string, error) {
	cname := C.mstDisplayName(h.id)
	if cname == nil {
		return "", errNoName
	}
	defer C.free(unsafe.Pointer(cname))
	return C.GoString(cname), nil
}

type displaySource struct {
	subs   *subscriptions[*callbackSubscription]
	logger *slog.Logger
}

func (s *displaySource) Class() device.Class { return device.ClassDisplay }

func (s *displaySource) Enumerate() ([]device.Handle, error) {
	n := int(C.mstDisplays(nil, 0))
	if n < 0 {
		return nil, errors.New("hardware: CGGetOnlineDisplayList failed")
	}
	if n == 0 {
		return nil, nil
	}
	ids := make([]C.CGDirectDisplayID, n)
	got := int(C.mstDisplays(&ids[0], C.int(n)))
	if got < 0 {
		return nil, errors.New("hardware: CGGetOnlineDisplayList failed")
	}
	out := make([]device.Handle, 0, got)
	for _, id := range ids[:got] {
		out = append(out, displayHandle{id: id})
	}
	return out, nil
}

func (s *displaySource) Subscribe(h device.Handler) (device.Token, error) {
	sub := &callbackSubscription{handler: h}
	sub.ref = cgo.NewHandle(sub)
	if cerr := C.mstDisplayRegister(C.uintptr_t(sub.ref)); cerr != C.kCGErrorSuccess {
		sub.ref.Delete()
		return 0, fmt.Errorf("%w: CGDisplayRegisterReconfigurationCallback: %d", ErrSubscribe, int32(cerr))
	}
	return s.subs.add(sub), nil
}

func (s *displaySource) Unsubscribe(t device.Token) error {
	sub, ok := s.subs.take(t)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownToken, t)
	}
	defer sub.ref.Delete()
	if cerr := C.mstDisplayUnregister(C.uintptr_t(sub.ref)); cerr != C.kCGErrorSuccess {
		return fmt.Errorf("hardware: CGDisplayRemoveReconfigurationCallback: %d", int32(cerr))
	}
	return nil
}
