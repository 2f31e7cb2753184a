package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"sotto/audio"
	"sotto/config"
	"sotto/hotkey"
	"sotto/insert"
	"sotto/log"
	"sotto/overlay"
	"sotto/session"
	"sotto/shutdown"
	"sotto/stats"
	"sotto/transcriber"
	"sotto/tray"
)

var version = "dev"

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	suffix := ""
	if dev != nil {
		name = dev.Name
		if audio.IsBluetooth(dev.Name) {
			suffix = " (BT!)"
		}
	}
	return "mic: " + name + suffix
}

// selectDevice prints the capture devices and reads a pick from stdin.
// Returning nil means system default.
func selectDevice(actx audio.Context) (*audio.DeviceInfo, error) {
	devices, err := actx.Devices()
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, nil
	}
	fmt.Println("Capture devices:")
	fmt.Println("  0: system default")
	for i, d := range devices {
		fmt.Printf("  %d: %s\n", i+1, d.Name)
	}
	fmt.Print("Select device [0]: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSpace(line)
	if line == "" || line == "0" {
		return nil, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(devices) {
		return nil, fmt.Errorf("invalid selection %q", line)
	}
	return &devices[n-1], nil
}

func main() {
	deviceFlag := flag.String("device", "", "Microphone device name or substring (default: system default)")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	langFlag := flag.String("lang", "", "Language code for transcription (overrides config; empty = auto-detect)")
	toggleFlag := flag.Bool("toggle", false, "Toggle mode: one hotkey press starts, the next stops")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("sotto %s\n", version)
		return
	}

	logDir, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logDir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		log.Warnf("config load failed, using defaults: %v", err)
		cfg = config.Default()
	}
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}
	if *langFlag != "" {
		cfg.Language = *langFlag
	}
	if *toggleFlag {
		cfg.ToggleMode = true
	}

	tr, err := transcriber.New()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}

	var dev *audio.DeviceInfo
	if *setupFlag {
		dev, err = selectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: %v\nFalling back to default device\n", err)
			dev = nil
		}
		if dev != nil {
			cfg.Device = dev.Name
			if err := config.Save(config.DefaultPath(), cfg); err != nil {
				log.Warnf("could not persist device choice: %v", err)
			}
		}
	} else {
		dev, err = audio.FindDevice(actx, cfg.Device)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: %v\nFalling back to default device\n", err)
			dev = nil
		}
	}
	rec := audio.NewRecorder(actx, dev)

	vp, err := newVADProcessor()
	if err != nil {
		log.Warnf("VAD init failed, silence warnings disabled: %v", err)
		vp = nil
	} else {
		rec.SetTap(vp.Process)
	}

	var sink session.StatisticsSink
	st, err := stats.Open(stats.DefaultPath())
	if err != nil {
		log.Warnf("stats store unavailable: %v", err)
		st = nil
	} else {
		sink = st
	}

	trk := overlay.New(func(s overlay.Snapshot) {
		tuiSend(OverlayMsg{Snapshot: s})
		tray.SetRecording(s.State == overlay.StateRecording)
	})

	orch := session.New(session.Config{
		InactivityTimeout: cfg.InactivityTimeout(),
		TalkingThreshold:  cfg.TalkingThreshold,
	}, session.Deps{
		Audio:       rec,
		Transcriber: tr,
		Delivery:    insert.New(),
		Stats:       sink,
		Settings:    cfg,
		Overlay:     trk,
	})

	reportError := func(err error) {
		log.Errorf("session error: %v", err)
		tuiSend(ErrorMsg{Text: err.Error()})
		tray.SetError(err.Error())
	}

	// publish pushes the latest completed transcription (or failure) to the
	// TUI and tray. It is called from the event loop and from the monitor
	// tick, so delivery triggered by the inactivity timer surfaces too.
	var pubMu sync.Mutex
	var pubText, pubErr string
	publish := func() {
		if orch.IsRecording() || orch.IsTranscribing() {
			return
		}
		pubMu.Lock()
		defer pubMu.Unlock()
		if text := orch.TranscribedText(); text != "" && text != pubText {
			pubText = text
			tuiSend(TranscriptionMsg{
				Text:       text,
				Confidence: orch.Confidence(),
				Copied:     orch.LastTranscriptionCopiedToClipboard(),
				ShowPrompt: orch.ShowAccessibilityPrompt(),
			})
			tray.SetHaveTranscription()
		}
		if msg := orch.ErrorMessage(); msg != "" && msg != pubErr {
			pubErr = msg
			tuiSend(ErrorMsg{Text: msg})
			tray.SetError(msg)
		}
	}

	trayRecord := make(chan struct{}, 1)
	trayStop := make(chan struct{}, 1)
	trayQuit := tray.Start(tray.Handlers{
		OnRecord: func() {
			select {
			case trayRecord <- struct{}{}:
			default:
			}
		},
		OnStop: func() {
			select {
			case trayStop <- struct{}{}:
			default:
			}
		},
		OnCopyLast: func() {
			if text := orch.TranscribedText(); text != "" {
				clipboard.WriteAll(text)
			}
		},
	})

	sigChan := shutdown.Signals()

	var shutdownOnce sync.Once
	gracefulShutdown := func() {
		shutdownOnce.Do(func() {
			orch.Cancel()
			if st != nil {
				if t, err := st.Totals(); err == nil && t.Sessions > 0 {
					log.Infof("totals: sessions=%d succeeded=%d words=%d recorded=%s",
						t.Sessions, t.Succeeded, t.Words, t.Recorded.Round(time.Second))
				}
				st.Close()
			}
			actx.Close()
			log.Close()
			tray.Quit()
			os.Exit(0)
		})
	}

	chord, err := hotkey.ParseChord(cfg.Hotkey)
	if err != nil {
		log.Warnf("invalid hotkey %q, using default: %v", cfg.Hotkey, err)
		chord, _ = hotkey.ParseChord(config.Default().Hotkey)
	}
	hk := hotkey.New(chord)
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	if !*tuiFlag {
		tuiReadyOnce.Do(func() { close(tuiReady) })
	} else {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(chord.String())
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()

		<-tuiReady
	}

	langLabel := cfg.Language
	if langLabel == "" {
		langLabel = "auto"
	}
	tuiSend(ModeLineMsg{Text: fmt.Sprintf("[flac | %s (%s)]", tr.Name(), langLabel)})
	tuiSend(DeviceLineMsg{Text: deviceLineText(dev)})

	// Silence monitor: raises quiet-microphone warnings while a recording is
	// open and refreshes delivered results once per tick.
	go func() {
		mon := newSilenceMonitor(func() bool { return cfg.ToggleMode })
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		wasRecording := false
		for range ticker.C {
			recording := orch.IsRecording()
			if recording && !wasRecording {
				mon.Reset()
				if vp != nil {
					vp.Reset()
				}
			}
			wasRecording = recording
			if !recording {
				publish()
				continue
			}
			if vp == nil {
				continue
			}
			switch mon.Tick(vp.HasSpeechTick()) {
			case SilenceWarn:
				log.Info("no_voice_warning")
				tuiSend(NoVoiceWarningMsg{})
			case SilenceWarnClear:
				tuiSend(VoiceClearedMsg{})
			case SilenceRepeat:
				log.Info("silence_during_warning")
				tuiSend(NoVoiceWarningMsg{})
			}
		}
	}()

	// stopWith runs the blocking stop-and-deliver path off the event loop so
	// a long transcription cannot delay the next hotkey press.
	stopWith := func(fn func() error) {
		go func() {
			if err := fn(); err != nil && !errors.Is(err, session.ErrNotRecording) {
				reportError(err)
			}
			publish()
		}()
	}

	startSession := func() {
		log.Info("hotkey_down")
		if err := orch.Start(); err != nil {
			reportError(err)
		}
	}

	for {
		select {
		case <-hk.Keydown():
			if cfg.ToggleMode && orch.IsRecording() {
				stopWith(orch.Stop)
			} else {
				startSession()
			}

		case <-hk.Keyup():
			if !cfg.ToggleMode {
				stopWith(orch.OnHotkeyReleased)
			}

		case <-trayRecord:
			log.Info("tray_record_start")
			if err := orch.Start(); err != nil {
				reportError(err)
			}

		case <-trayStop:
			stopWith(orch.Stop)

		case <-sigChan:
			gracefulShutdown()

		case <-trayQuit:
			gracefulShutdown()
		}
	}
}
