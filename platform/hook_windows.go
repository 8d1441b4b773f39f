//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"markestedt/sonarkey/combo"
	"markestedt/sonarkey/config"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	getMessage          = user32.NewProc("GetMessageW")
	postThreadMessage   = user32.NewProc("PostThreadMessageW")
)

const (
	whKeyboardLL = 13
	wmQuit       = 0x0012
	wmKeydown    = 0x0100
	wmKeyup      = 0x0101
	wmSyskeydown = 0x0104
	wmSyskeyup   = 0x0105
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

var (
	// Callbacks created by windows.NewCallback are never freed, so a single
	// one serves every hook and forwards to the active handler
	hookCallback     uintptr
	hookCallbackOnce sync.Once
	activeHandler    atomic.Pointer[KeyHandler]
)

// WindowsHook implements KeyboardHook with a low-level keyboard hook
type WindowsHook struct {
	*feed

	mu       sync.Mutex
	threadID uint32
	started  bool
}

// NewKeyboardHook creates a new Windows keyboard hook
func NewKeyboardHook(cfg config.HookConfig) KeyboardHook {
	return &WindowsHook{feed: newFeed()}
}

// Start installs the hook on a dedicated OS thread
func (h *WindowsHook) Start(ctx context.Context, handle KeyHandler) error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return fmt.Errorf("hook already started")
	}
	h.started = true
	h.mu.Unlock()

	hookCallbackOnce.Do(func() {
		hookCallback = windows.NewCallback(hookProc)
	})
	activeHandler.Store(&handle)

	// Start hook in a goroutine
	errCh := make(chan error, 1)
	go h.runHook(errCh)

	// Wait for hook to be installed or error
	select {
	case err := <-errCh:
		if err != nil {
			activeHandler.CompareAndSwap(&handle, nil)
			h.lost(err)
			return err
		}
	case <-ctx.Done():
		h.Close()
		return ctx.Err()
	}

	// Monitor context cancellation
	go func() {
		select {
		case <-ctx.Done():
			h.Close()
		case <-h.Done():
		}
	}()

	return nil
}

// Close stops the message loop; the hook is removed on its own thread
func (h *WindowsHook) Close() error {
	select {
	case <-h.Done():
		return nil
	default:
	}

	h.mu.Lock()
	tid := h.threadID
	h.mu.Unlock()

	if tid == 0 {
		h.stop()
		return nil
	}
	r, _, err := postThreadMessage.Call(uintptr(tid), wmQuit, 0, 0)
	if r == 0 {
		return fmt.Errorf("PostThreadMessageW failed: %w", err)
	}
	<-h.Done()
	return nil
}

func hookProc(nCode uintptr, wParam uintptr, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		if handle := activeHandler.Load(); handle != nil {
			kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			switch wParam {
			case wmKeydown, wmSyskeydown:
				(*handle)(combo.Down(FromVirtualKey(kbInfo.vkCode)))
			case wmKeyup, wmSyskeyup:
				(*handle)(combo.Up(FromVirtualKey(kbInfo.vkCode)))
			}
		}
	}
	r, _, _ := callNextHookEx.Call(0, nCode, wParam, lParam)
	return r
}

func (h *WindowsHook) runHook(errCh chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// Install keyboard hook
	hook, _, err := setWindowsHookEx.Call(
		whKeyboardLL,
		hookCallback,
		0,
		0,
	)

	if hook == 0 {
		errCh <- fmt.Errorf("SetWindowsHookEx failed: %w", err)
		return
	}

	h.mu.Lock()
	h.threadID = windows.GetCurrentThreadId()
	h.mu.Unlock()

	errCh <- nil

	// Message loop; the hook only fires while this thread pumps messages
	var m msg
	var loopErr error
	for {
		r, _, err := getMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) == -1 {
			loopErr = fmt.Errorf("GetMessageW failed: %w", err)
			break
		}
		if r == 0 {
			break // WM_QUIT
		}
	}

	unhookWindowsHookEx.Call(hook)
	activeHandler.Store(nil)

	if loopErr != nil {
		h.lost(loopErr)
		return
	}
	h.stop()
}
