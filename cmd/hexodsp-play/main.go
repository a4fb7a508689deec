package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/cmd"
	"github.com/hexosynth/hexodsp/oto"
	"github.com/hexosynth/hexodsp/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, files are written to the working directory.")
	play := flag.Bool("p", false, "Play the matrix (default behaviour when no other output is defined).")
	seconds := flag.Float64("d", 10, "Duration in seconds to render or play. Zero or negative plays until interrupted.")
	rawOut := flag.Bool("r", false, "Render the matrix into a .raw file of stereo float32 samples.")
	wavOut := flag.Bool("w", false, "Render the matrix into a .wav file.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	settingsFile := flag.String("settings", "", "Read the engine settings from this file instead of the user settings.yml.")
	midiInput := flag.String("midi-input", "", "Connect the MIDI input whose name starts with this prefix.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String("hexodsp-play"))
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true
	}
	settings, err := cmd.Settings(*settingsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	logger := cmd.Logger(settings)
	filename := flag.Arg(0)
	retval := 0
	if *rawOut || *wavOut {
		if *seconds <= 0 {
			fmt.Fprintf(os.Stderr, "rendering needs a positive duration\n")
			os.Exit(1)
		}
		buffer, err := render(filename, settings, *seconds)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not render %v: %v\n", filename, err)
			os.Exit(1)
		}
		output := func(extension string, contents []byte) error {
			dir := *directory
			if dir == "" {
				if dir, err = os.Getwd(); err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			_, name := filepath.Split(filename)
			f := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+extension)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		if *rawOut {
			raw, err := hexodsp.Raw(buffer, *pcm)
			if err == nil {
				err = output(".raw", raw)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "error outputting .raw file: %v\n", err)
				retval = 1
			}
		}
		if *wavOut {
			wav, err := hexodsp.Wav(buffer, int(settings.SampleRate), *pcm)
			if err == nil {
				err = output(".wav", wav)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "error outputting .wav file: %v\n", err)
				retval = 1
			}
		}
	}
	if *play {
		m, exec, err := cmd.LoadMatrix(filename, settings, logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		midiContext := cmd.NewMidiContext(m)
		if isFlagPassed("midi-input") {
			if err := midiContext.OpenByPrefix(*midiInput); err != nil {
				logger.Warn("failed to open MIDI input", "prefix", *midiInput, "err", err)
			}
		}
		audioContext, err := oto.NewContext(int(settings.SampleRate))
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto audio context: %v\n", err)
			os.Exit(1)
		}
		out := audioContext.Play(exec)
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		var deadline <-chan time.Time
		if *seconds > 0 {
			deadline = time.After(time.Duration(*seconds * float64(time.Second)))
		}
		ticker := time.NewTicker(20 * time.Millisecond)
	loop:
		for {
			select {
			case <-ticker.C:
				m.Update()
			case <-deadline:
				break loop
			case <-interrupt:
				break loop
			}
		}
		ticker.Stop()
		midiContext.Close()
		if err := out.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

// render runs the matrix offline and returns interleaved stereo samples.
func render(filename string, settings hexodsp.Settings, seconds float64) ([]float32, error) {
	m, exec, err := cmd.LoadMatrix(filename, settings, cmd.Logger(settings))
	if err != nil {
		return nil, err
	}
	frames := int(seconds * float64(settings.SampleRate))
	buffer := make([]float32, 0, 2*frames)
	block := hexodsp.NewBlock()
	for done := 0; done < frames; done += block.NFrames {
		block.NFrames = min(hexodsp.MaxBlockSize, frames-done)
		exec.ProcessGraphUpdates()
		exec.Process(block)
		buffer = block.Interleave(buffer)
		m.Update()
	}
	return buffer, nil
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "hexodsp command line utility for playing and rendering matrix files.\nUsage: %s [flags] file.yml\n", os.Args[0])
	flag.PrintDefaults()
}
