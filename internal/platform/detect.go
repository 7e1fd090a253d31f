package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "transcriptor"

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{
		OS:   runtime.GOOS,
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

// Dirs carries the environment-derived roots the per-OS layout is computed from.
type Dirs struct {
	Home          string
	XDGDataHome   string
	XDGConfigHome string
	LocalAppData  string
	AppData       string
}

func CurrentDirs() (Dirs, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Dirs{}, fmt.Errorf("resolve user home: %w", err)
	}
	return Dirs{
		Home:          homeDir,
		XDGDataHome:   os.Getenv("XDG_DATA_HOME"),
		XDGConfigHome: os.Getenv("XDG_CONFIG_HOME"),
		LocalAppData:  os.Getenv("LOCALAPPDATA"),
		AppData:       os.Getenv("APPDATA"),
	}, nil
}

func DefaultModelDirFor(goos string, dirs Dirs) (string, error) {
	dataDir, err := dataDirFor(goos, dirs)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "models"), nil
}

func DefaultLogPathFor(goos string, dirs Dirs) (string, error) {
	dataDir, err := dataDirFor(goos, dirs)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, appName+".log"), nil
}

func ConfigPathFor(goos string, dirs Dirs) (string, error) {
	if dirs.Home == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if dirs.XDGConfigHome != "" {
			return filepath.Join(dirs.XDGConfigHome, appName, "config.yml"), nil
		}
		return filepath.Join(dirs.Home, ".config", appName, "config.yml"), nil
	case "darwin":
		return filepath.Join(dirs.Home, "Library", "Application Support", appName, "config.yml"), nil
	case "windows":
		if dirs.AppData != "" {
			return filepath.Join(dirs.AppData, appName, "config.yml"), nil
		}
		return filepath.Join(dirs.Home, "AppData", "Roaming", appName, "config.yml"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	dirs, err := CurrentDirs()
	if err != nil {
		return "", err
	}
	return DefaultModelDirFor(runtime.GOOS, dirs)
}

func ResolveLogPath() (string, error) {
	dirs, err := CurrentDirs()
	if err != nil {
		return "", err
	}
	return DefaultLogPathFor(runtime.GOOS, dirs)
}

func ResolveConfigPath(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	dirs, err := CurrentDirs()
	if err != nil {
		return "", err
	}
	return ConfigPathFor(runtime.GOOS, dirs)
}

// DecoderSearchDirs lists the directories probed for the ffmpeg executable, in priority
// order: explicit extras, next to the application, the working directory, then the
// conventional system locations for goos.
func DecoderSearchDirs(goos, appDir, workDir string, dirs Dirs, extra []string) []string {
	out := make([]string, 0, len(extra)+12)
	out = append(out, extra...)

	for _, root := range []string{appDir, workDir} {
		if root == "" {
			continue
		}
		out = append(out, filepath.Join(root, "ffmpeg"), filepath.Join(root, "ffmpeg", "bin"))
	}

	switch goos {
	case "windows":
		out = append(out, `C:\ffmpeg_local`, `C:\ffmpeg\bin`)
		if dirs.LocalAppData != "" {
			out = append(out, filepath.Join(dirs.LocalAppData, "ffmpeg", "bin"))
		}
	case "darwin":
		out = append(out, "/opt/homebrew/bin", "/usr/local/bin")
	case "linux":
		out = append(out, "/usr/local/bin", "/usr/bin", "/snap/bin")
	}

	return dedupe(out)
}

func dataDirFor(goos string, dirs Dirs) (string, error) {
	if dirs.Home == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if dirs.XDGDataHome != "" {
			return filepath.Join(dirs.XDGDataHome, appName), nil
		}
		return filepath.Join(dirs.Home, ".local", "share", appName), nil
	case "darwin":
		return filepath.Join(dirs.Home, "Library", "Application Support", appName), nil
	case "windows":
		if dirs.LocalAppData != "" {
			return filepath.Join(dirs.LocalAppData, appName), nil
		}
		return filepath.Join(dirs.Home, "AppData", "Local", appName), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if p == "" {
			continue
		}
		key := filepath.Clean(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
