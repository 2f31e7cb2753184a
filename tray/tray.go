// Package tray puts sotto in the system tray: a record/stop toggle, a
// copy-last-transcription entry, and a quit item, with the icon doubling as
// a recording indicator.
package tray

import (
	"sync"
	"time"

	"fyne.io/systray"
)

const idleTooltip = "sotto – push to talk"

// Handlers are invoked from the tray's own goroutine; they must hand work
// off instead of blocking.
type Handlers struct {
	OnRecord   func()
	OnStop     func()
	OnCopyLast func()
}

var (
	mu        sync.Mutex
	mRecord   *systray.MenuItem
	mCopy     *systray.MenuItem
	recording bool
	ready     bool

	quitCh   = make(chan struct{})
	quitOnce sync.Once
)

// Start launches the tray loop in the background and returns a channel that
// closes when the user picks Quit.
func Start(h Handlers) <-chan struct{} {
	go systray.Run(func() { onReady(h) }, func() {
		quitOnce.Do(func() { close(quitCh) })
	})
	return quitCh
}

func onReady(h Handlers) {
	systray.SetTemplateIcon(iconIdle, iconIdle)
	systray.SetTooltip(idleTooltip)

	mu.Lock()
	mRecord = systray.AddMenuItem("Start Recording", "Start a dictation session")
	mCopy = systray.AddMenuItem("Copy Last Transcription", "Copy the last transcribed text")
	mCopy.Disable()
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit sotto")
	ready = true
	mu.Unlock()

	go func() {
		for {
			select {
			case <-mRecord.ClickedCh:
				mu.Lock()
				rec := recording
				mu.Unlock()
				if rec {
					if h.OnStop != nil {
						h.OnStop()
					}
				} else if h.OnRecord != nil {
					h.OnRecord()
				}
			case <-mCopy.ClickedCh:
				if h.OnCopyLast != nil {
					h.OnCopyLast()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

// SetRecording flips the icon and the record item between start and stop.
func SetRecording(rec bool) {
	mu.Lock()
	defer mu.Unlock()
	recording = rec
	if !ready {
		return
	}
	if rec {
		systray.SetIcon(iconRecording)
		mRecord.SetTitle("Stop Recording")
	} else {
		systray.SetTemplateIcon(iconIdle, iconIdle)
		mRecord.SetTitle("Start Recording")
	}
}

// SetHaveTranscription enables the copy item once a transcription exists.
func SetHaveTranscription() {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		mCopy.Enable()
	}
}

// SetError surfaces an error in the tooltip for a few seconds.
func SetError(msg string) {
	mu.Lock()
	ok := ready
	mu.Unlock()
	if !ok {
		return
	}
	systray.SetTooltip("sotto – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		systray.SetTooltip(idleTooltip)
	}()
}

func Quit() {
	mu.Lock()
	ok := ready
	mu.Unlock()
	if ok {
		systray.Quit()
	}
	quitOnce.Do(func() { close(quitCh) })
}
