package profiler

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// profileFilePaths holds the derived folded-stack output paths. They
// are computed once per process, on first use.
type profileFilePaths struct {
	time   string
	memory string
}

var (
	outputDirMu sync.Mutex
	outputDir   = "."

	pathsOnce sync.Once
	paths     profileFilePaths
)

func setOutputDir(dir string) {
	outputDirMu.Lock()
	outputDir = dir
	outputDirMu.Unlock()
}

// currentExeDisplay is the executable path stamped into file headers.
func currentExeDisplay() string {
	exe, err := os.Executable()
	if err != nil {
		return "unknown"
	}
	return exe
}

func executableStem() string {
	exe, err := os.Executable()
	if err != nil {
		return "unknown"
	}
	base := filepath.Base(exe)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// profilePaths derives the folded file paths from the executable stem
// and the enable wall-clock, once per process:
//
//	{stem}-{YYYYmmdd-HHMMSS}.folded
//	{stem}-{YYYYmmdd-HHMMSS}-memory.folded
func profilePaths() profileFilePaths {
	pathsOnce.Do(func() {
		outputDirMu.Lock()
		dir := outputDir
		outputDirMu.Unlock()
		folder, err := ensureFolder(dir)
		if err != nil {
			folder = "."
		}
		stem := executableStem()
		stamp := time.Now().Format("20060102-150405")
		paths = profileFilePaths{
			time:   filepath.Join(folder, stem+"-"+stamp+".folded"),
			memory: filepath.Join(folder, stem+"-"+stamp+"-memory.folded"),
		}
	})
	return paths
}

// ensureFolder makes the requested folder tree. If that fails, a unique
// temp folder is used instead so a bad path never loses the profile.
func ensureFolder(folder string) (string, error) {
	if err := os.MkdirAll(folder, 0o777); err != nil {
		fallback, terr := os.MkdirTemp(os.TempDir(), "profiler")
		if terr != nil {
			return "", ioError("failed to create profile folder", terr)
		}
		return fallback, nil
	}
	return folder, nil
}
