// Package ffmpeg finds the external ffmpeg executable and uses it to turn arbitrary audio
// containers into the 16 kHz mono WAV the whisper engine consumes.
package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// BinaryEnv is the variable that records the explicit path of the located executable.
const BinaryEnv = "FFMPEG_BINARY"

// Location is where the ffmpeg executable was found. The zero value means "not found".
type Location struct {
	Dir    string
	Binary string
}

func (l Location) Found() bool {
	return l.Binary != ""
}

func (l Location) String() string {
	if !l.Found() {
		return "not found"
	}
	return l.Binary
}

// Env is the slice of process state Publish mutates.
type Env interface {
	Getenv(key string) string
	Setenv(key, value string) error
}

type processEnv struct{}

func (processEnv) Getenv(key string) string       { return os.Getenv(key) }
func (processEnv) Setenv(key, value string) error { return os.Setenv(key, value) }

// ProcessEnv is the real process environment.
var ProcessEnv Env = processEnv{}

func BinaryName() string {
	return binaryNameFor(runtime.GOOS)
}

func binaryNameFor(goos string) string {
	if goos == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// Locate returns the first candidate directory holding an executable ffmpeg. A miss is
// reported through the boolean, never as an error.
func Locate(candidates []string) (Location, bool) {
	name := BinaryName()
	for _, dir := range candidates {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		exe := filepath.Join(dir, name)
		if err := ensureExecutable(exe); err != nil {
			continue
		}
		return Location{Dir: dir, Binary: exe}, true
	}
	return Location{}, false
}

// Publish makes loc visible to child processes: loc.Dir goes to the front of PATH and
// BinaryEnv records the executable. Calling it again with the same location is a no-op;
// a different location overrides the previous one.
func Publish(loc Location, env Env) error {
	if !loc.Found() {
		return nil
	}
	if env == nil {
		env = ProcessEnv
	}

	if err := env.Setenv(BinaryEnv, loc.Binary); err != nil {
		return fmt.Errorf("set %s: %w", BinaryEnv, err)
	}

	current := env.Getenv("PATH")
	entries := filepath.SplitList(current)
	if len(entries) > 0 && filepath.Clean(entries[0]) == filepath.Clean(loc.Dir) {
		return nil
	}

	dir := filepath.Clean(loc.Dir)
	next := []string{loc.Dir}
	for _, entry := range entries {
		if entry == "" || filepath.Clean(entry) == dir {
			continue
		}
		next = append(next, entry)
	}
	if err := env.Setenv("PATH", strings.Join(next, string(os.PathListSeparator))); err != nil {
		return fmt.Errorf("set PATH: %w", err)
	}
	return nil
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
