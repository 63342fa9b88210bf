package producer

import (
	"fmt"
	"strings"
)

const (
	ShellModeAuto      = "auto"
	ShellModeNative    = "native"
	ShellModeAlternate = "alternate"

	DefaultNativeShell        = "bash"
	DefaultAlternateShellPath = `C:\Program Files\Git\bin\bash.exe`
)

// CommandBuilder turns a script invocation into an executable and argv for
// one target shell environment.
type CommandBuilder interface {
	Build(script string, args ...string) (name string, argv []string)
}

// NativeShell runs the script with the host's own shell.
type NativeShell struct {
	Shell string
}

func (b NativeShell) Build(script string, args ...string) (string, []string) {
	shell := b.Shell
	if shell == "" {
		shell = DefaultNativeShell
	}
	return shell, append([]string{script}, args...)
}

// AlternateShell runs the script with a shell installed at a fixed path that
// expects POSIX style paths (Git Bash, WSL).
type AlternateShell struct {
	Path      string
	MountRoot string
}

func (b AlternateShell) Build(script string, args ...string) (string, []string) {
	path := b.Path
	if path == "" {
		path = DefaultAlternateShellPath
	}
	return path, append([]string{ToShellPath(script, b.MountRoot)}, args...)
}

// ToShellPath rewrites a drive-letter path into the mount syntax of a POSIX
// shell: C:\git\project becomes <mountRoot>/c/git/project. Other paths only
// get their separators normalized.
func ToShellPath(path, mountRoot string) string {
	normalized := strings.ReplaceAll(path, `\`, "/")
	if len(normalized) < 2 || normalized[1] != ':' || !isDriveLetter(normalized[0]) {
		return normalized
	}

	drive := strings.ToLower(normalized[:1])
	root := strings.TrimSuffix(mountRoot, "/")
	rest := strings.TrimLeft(normalized[2:], "/")
	if rest == "" {
		return root + "/" + drive
	}
	return root + "/" + drive + "/" + rest
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type ShellOptions struct {
	Mode          string
	NativeShell   string
	AlternatePath string
	MountRoot     string
}

func SelectCommandBuilder(goos string, opts ShellOptions) (CommandBuilder, error) {
	mode := opts.Mode
	if mode == "" || mode == ShellModeAuto {
		mode = ShellModeNative
		if goos == "windows" {
			mode = ShellModeAlternate
		}
	}

	switch mode {
	case ShellModeNative:
		return NativeShell{Shell: opts.NativeShell}, nil
	case ShellModeAlternate:
		return AlternateShell{Path: opts.AlternatePath, MountRoot: opts.MountRoot}, nil
	default:
		return nil, fmt.Errorf("invalid shell mode '%s': must be one of auto, native, alternate", opts.Mode)
	}
}
