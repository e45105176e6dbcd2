// This file is part of GopherBoy.
//
// GopherBoy is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherBoy is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherBoy.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/debugger"
	"github.com/jetsetilly/gopherboy/digest"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/hardware/gb"
	"github.com/jetsetilly/gopherboy/hardware/gba"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/hardware/preferences"
	"github.com/jetsetilly/gopherboy/logger"
	"github.com/jetsetilly/gopherboy/modalflag"
	"github.com/jetsetilly/gopherboy/paths"
	"github.com/jetsetilly/gopherboy/performance"
	"github.com/jetsetilly/gopherboy/performance/limiter"
	"github.com/jetsetilly/gopherboy/prefs"
	"github.com/jetsetilly/gopherboy/recorder"
	"github.com/jetsetilly/gopherboy/rewind"
	"github.com/jetsetilly/gopherboy/statsview"
	"github.com/jetsetilly/gopherboy/version"
	"github.com/jetsetilly/gopherboy/wavwriter"
)

func main() {
	os.Exit(launch(os.Stdout, os.Args[1:]))
}

// launch the mode selected by the command line arguments. the return value is
// the exit status of the program.
func launch(output io.Writer, args []string) int {
	md := &modalflag.Modes{Output: output}
	md.NewArgs(args)
	md.NewMode()
	md.AddSubModes("RUN", "PERFORMANCE", "DEBUG", "VERSION")

	p, err := md.Parse()
	switch p {
	case modalflag.ParseHelp:
		return 0

	case modalflag.ParseError:
		fmt.Fprintf(output, "* error: %v\n", err)
		return 10
	}

	switch md.Mode() {
	case "RUN":
		err = run(md)

	case "PERFORMANCE":
		err = perform(md)

	case "DEBUG":
		err = debug(md)

	case "VERSION":
		fmt.Fprintln(output, version.Version())
	}

	if err != nil {
		fmt.Fprintf(output, "* error in %s mode: %s\n", md.String(), err)
		return 20
	}

	return 0
}

// preferences are created with the command line group at the top of the
// stack. any entries that were not used by the preferences are reported
func newPreferences(output io.Writer, cl string) (*preferences.Preferences, error) {
	prefs.PushCommandLineStack(cl)
	p, err := preferences.NewPreferences()
	if unused := prefs.PopCommandLineStack(); unused != "" {
		fmt.Fprintf(output, "* unused preferences: %s\n", unused)
	}
	return p, err
}

// load the cartridge and the optional BIOS
func loadMachine(romFile string, biosFile string, p *preferences.Preferences) (*hardware.Machine, error) {
	cl := cartridgeloader.NewLoader(romFile)
	if err := cl.Load(); err != nil {
		return nil, err
	}

	var bios []uint8
	if biosFile != "" {
		bl := cartridgeloader.NewLoader(biosFile)
		if err := bl.Load(); err != nil {
			return nil, err
		}
		bios = bl.Data
	}

	return hardware.LoadROMWithBIOS(cl.Data, bios, p)
}

// log entries are echoed with colour if the output is a terminal
func echoLog(output io.Writer) {
	if f, ok := output.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logger.SetEcho(logger.NewColorizer(output))
		return
	}
	logger.SetEcho(output)
}

// the number of frames per second of the real hardware
func frameRate(m *hardware.Machine) float64 {
	if m.Kind() == "GBA" {
		return float64(m.ClockRate()) / gba.CyclesPerFrame
	}
	return float64(m.ClockRate()) / gb.DotsPerFrame
}

func run(md *modalflag.Modes) error {
	md.NewMode()

	frames := md.AddInt("frames", 600, "number of frames to run (0 to run until interrupted)")
	wav := md.AddString("wav", "", "record audio to wav file")
	persistent := md.AddString("persistent", "", "file to load persistent memory from and save it to (AUTO for default location)")
	state := md.AddString("state", "", "save state to file at the end of the run (AUTO for unique file)")
	loadState := md.AddString("loadstate", "", "load state from file before the run")
	bios := md.AddString("bios", "", "BIOS image (GBA only)")
	buttons := md.AddString("input", "", "buttons held for the duration of the run (eg. A+START)")
	realtime := md.AddBool("realtime", false, "limit emulation to the speed of the real hardware")
	record := md.AddString("record", "", "record input to transcript file (AUTO for unique file)")
	playback := md.AddString("playback", "", "play input from transcript file (-frames 0 to run until the end)")
	digests := md.AddBool("digest", false, "print video and audio digests at the end of the run")
	prefsCL := md.AddString("prefs", "", "preferences: \"key::value; key::value\"")
	log := md.AddBool("log", false, "echo debugging log to output")
	stats := md.AddBool("statsview", false, fmt.Sprintf("run stats server (%s)", statsview.Address))

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	switch len(md.RemainingArgs()) {
	case 0:
		return fmt.Errorf("cartridge required for %s mode", md)
	case 1:
	default:
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	if *log {
		echoLog(md.Output)
		defer logger.SetEcho(nil)
	}

	if *stats {
		if !statsview.Available() {
			fmt.Fprintln(md.Output, "* statsview not available in this build")
		} else {
			statsview.Launch(md.Output)
		}
	}

	held, err := input.ParseButtons(*buttons)
	if err != nil {
		return err
	}

	if *record != "" && *playback != "" {
		return fmt.Errorf("cannot record and playback at the same time")
	}

	name := cartridgeloader.NewLoader(md.GetArg(0)).ShortName()
	for _, f := range []struct {
		value  *string
		subPth string
		file   string
	}{
		{persistent, "persistent", name + ".sav"},
		{state, "states", paths.UniqueFilename("state", name)},
		{record, "transcripts", paths.UniqueFilename("transcript", name)},
	} {
		if strings.EqualFold(*f.value, "AUTO") {
			*f.value, err = paths.ResourcePath(f.subPth, f.file)
			if err != nil {
				return err
			}
		}
	}

	pr, err := newPreferences(md.Output, *prefsCL)
	if err != nil {
		return err
	}

	m, err := loadMachine(md.GetArg(0), *bios, pr)
	if err != nil {
		return err
	}
	defer m.Close()

	rw := rewind.NewRewind(m)

	if *loadState != "" {
		data, err := os.ReadFile(*loadState)
		if err != nil {
			return err
		}
		if err := rw.LoadState(data); err != nil {
			return err
		}
	}

	if *persistent != "" {
		data, err := os.ReadFile(*persistent)
		if err == nil {
			if err := m.LoadPersistentMemory(data); err != nil {
				return err
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	var aw *wavwriter.WavWriter
	if *wav != "" {
		aw, err = wavwriter.New(*wav, m.Mixer().OutputRate())
		if err != nil {
			return err
		}
		defer aw.Close()
	}

	var lim *limiter.Limiter
	if *realtime {
		lim, err = limiter.NewLimiter(frameRate(m))
		if err != nil {
			return err
		}
		defer lim.Stop()
	}

	var runner recorder.Runner = rw

	var rec *recorder.Recorder
	var plb *recorder.Playback
	switch {
	case *record != "":
		rec, err = recorder.NewRecorder(*record, m, runner)
		if err != nil {
			return err
		}
		runner = rec
	case *playback != "":
		plb, err = recorder.NewPlayback(*playback, m, runner)
		if err != nil {
			return err
		}
		runner = plb
	}

	vdig := digest.NewVideo()
	adig := digest.NewAudio()

	intChan := make(chan os.Signal, 1)
	signal.Notify(intChan, os.Interrupt)
	defer signal.Stop(intChan)

	m.SetInput(held)

	var n int
	for interrupted := false; !interrupted && (*frames == 0 || n < *frames); n++ {
		select {
		case <-intChan:
			interrupted = true
			continue
		default:
		}

		if plb != nil && plb.EndFrame() {
			break // for loop
		}

		if lim != nil {
			lim.Wait()
		}

		out, err := runner.RunFrame()
		if err != nil {
			return err
		}

		if *digests {
			if err := vdig.Frame(out.Frame); err != nil {
				return err
			}
			adig.Samples(out.Audio)
		}

		if aw != nil {
			if err := aw.Write(out.Audio); err != nil {
				return err
			}
		}
	}

	if rec != nil {
		if err := rec.End(); err != nil {
			return err
		}
	}

	if f := m.Fault(); f != nil {
		fmt.Fprintf(md.Output, "* %v\n", f)
	}

	if *persistent != "" {
		if data := m.PersistentMemory(); len(data) > 0 {
			if err := os.WriteFile(*persistent, data, 0o644); err != nil {
				return err
			}
		}
	}

	if *state != "" {
		data, err := m.SaveState()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*state, data, 0o644); err != nil {
			return err
		}
	}

	fmt.Fprintf(md.Output, "%s: %d frames (%d cycles)\n", m.Kind(), m.Frames(), m.Now())
	if *digests {
		fmt.Fprintf(md.Output, "video: %s\naudio: %s\n", vdig.Hash(), adig.Hash())
	}

	return nil
}

func perform(md *modalflag.Modes) error {
	md.NewMode()

	frames := md.AddInt("frames", 600, "number of frames to run for each measurement")
	bios := md.AddString("bios", "", "BIOS image (GBA only)")
	profile := md.AddString("profile", "none", "run performance check with profiling: CPU, MEM, TRACE, ALL (comma sep)")
	prefsCL := md.AddString("prefs", "", "preferences: \"key::value; key::value\"")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	switch len(md.RemainingArgs()) {
	case 0:
		return fmt.Errorf("cartridge required for %s mode", md)
	case 1:
	default:
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	prf, err := performance.ParseProfileString(*profile)
	if err != nil {
		return err
	}

	// the interpreter and then the translator. a new machine is created for
	// each so that both measurements start from power on
	for _, jit := range []bool{false, true} {
		pr, err := newPreferences(md.Output, *prefsCL)
		if err != nil {
			return err
		}
		if err := pr.JITEnabled.Set(jit); err != nil {
			return err
		}

		m, err := loadMachine(md.GetArg(0), *bios, pr)
		if err != nil {
			return err
		}

		label := "interpreter"
		if jit {
			label = "jit"
		}

		_, err = performance.Check(md.Output, prf, m, label, *frames)
		m.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// parse a comma separated list of addresses. each address can be in decimal
// or in hex with the 0x prefix
func parseAddresses(s string) ([]uint32, error) {
	var addrs []uint32
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		v, err := strconv.ParseUint(a, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("address: %w", err)
		}
		addrs = append(addrs, uint32(v))
	}
	return addrs, nil
}

func debug(md *modalflag.Modes) error {
	md.NewMode()

	frames := md.AddInt("frames", 0, "number of frames to run before debugging")
	cycles := md.AddInt("cycles", 70224, "number of cycles to run the debugger for")
	breaks := md.AddString("break", "", "breakpoint addresses (comma sep)")
	traps := md.AddString("trap", "", "memory addresses to trap on change (comma sep)")
	bios := md.AddString("bios", "", "BIOS image (GBA only)")
	memviz := md.AddString("memviz", "", "write graphviz description of machine to file")
	prefsCL := md.AddString("prefs", "", "preferences: \"key::value; key::value\"")
	log := md.AddBool("log", false, "echo debugging log to output")

	p, err := md.Parse()
	if err != nil || p != modalflag.ParseContinue {
		return err
	}

	switch len(md.RemainingArgs()) {
	case 0:
		return fmt.Errorf("cartridge required for %s mode", md)
	case 1:
	default:
		return fmt.Errorf("too many arguments for %s mode", md)
	}

	if *log {
		echoLog(md.Output)
		defer logger.SetEcho(nil)
	}

	breakAddrs, err := parseAddresses(*breaks)
	if err != nil {
		return err
	}
	trapAddrs, err := parseAddresses(*traps)
	if err != nil {
		return err
	}

	pr, err := newPreferences(md.Output, *prefsCL)
	if err != nil {
		return err
	}

	m, err := loadMachine(md.GetArg(0), *bios, pr)
	if err != nil {
		return err
	}
	defer m.Close()

	for i := 0; i < *frames; i++ {
		if _, err := m.RunFrame(); err != nil {
			return err
		}
	}

	dbg := debugger.NewDebugger(m)
	for _, a := range breakAddrs {
		m.SetBreakpoint(a)
	}
	for _, a := range trapAddrs {
		dbg.AddTrap(a)
	}

	halt, err := dbg.Run(uint64(*cycles))
	if err != nil {
		return err
	}

	fmt.Fprintln(md.Output, halt.String())
	fmt.Fprint(md.Output, dbg.MachineInfo())

	if *memviz != "" {
		w := &bytes.Buffer{}
		dbg.Memviz(w)
		if err := os.WriteFile(*memviz, w.Bytes(), 0o644); err != nil {
			return err
		}
	}

	return nil
}
