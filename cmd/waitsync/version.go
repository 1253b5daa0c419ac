package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"github.com/kolkov/waitsync/waitsync"
)

// errGoTooOld is returned when a checked go.mod targets a Go release older
// than waitsync supports.
var errGoTooOld = errors.New("go version older than supported minimum")

const (
	checkOK      = "ok"
	checkTooOld  = "too old"
	checkUnknown = "unknown"
)

func newVersionCmd(a *app) *cobra.Command {
	var gomod string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version and check Go toolchain compatibility",
		Long: `Prints the waitsync version and compares the running Go toolchain with the
minimum supported release. With --gomod, the go directive of that go.mod
is checked too and the command fails if it is older than the minimum.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := versionInfo(runtime.Version(), gomod)
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), a.cfg.Output, r); err != nil {
				return err
			}
			if r.GoModCheck == checkTooOld {
				return fmt.Errorf("%w: %s requires go %s, waitsync needs %s",
					errGoTooOld, r.GoMod, r.GoModGo, waitsync.MinGoVersion)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gomod, "gomod", "", "path of a go.mod whose go directive to check")
	return cmd
}

type versionReport struct {
	Version      string `yaml:"version"`
	MinGo        string `yaml:"min_go"`
	Runtime      string `yaml:"runtime"`
	RuntimeCheck string `yaml:"runtime_check"`
	GoMod        string `yaml:"gomod,omitempty"`
	Module       string `yaml:"module,omitempty"`
	GoModGo      string `yaml:"gomod_go,omitempty"`
	GoModCheck   string `yaml:"gomod_check,omitempty"`
}

func (r *versionReport) text(w io.Writer) {
	fmt.Fprintf(w, "waitsync version %s\n", r.Version)
	fmt.Fprintf(w, "  runtime: %s (%s, minimum %s)\n", r.Runtime, r.RuntimeCheck, r.MinGo)
	if r.GoMod != "" {
		fmt.Fprintf(w, "  %s: module %s, go %s (%s)\n", r.GoMod, r.Module, r.GoModGo, r.GoModCheck)
	}
}

func versionInfo(goVersion, gomod string) (*versionReport, error) {
	r := &versionReport{
		Version:      waitsync.Version,
		MinGo:        waitsync.MinGoVersion,
		Runtime:      goVersion,
		RuntimeCheck: checkGo(goVersion),
	}
	if gomod == "" {
		return r, nil
	}

	data, err := os.ReadFile(gomod)
	if err != nil {
		return nil, fmt.Errorf("read go.mod: %w", err)
	}
	f, err := modfile.ParseLax(gomod, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", gomod, err)
	}
	if f.Go == nil {
		return nil, fmt.Errorf("%s has no go directive", gomod)
	}

	r.GoMod = gomod
	if f.Module != nil {
		r.Module = f.Module.Mod.Path
	}
	r.GoModGo = f.Go.Version
	r.GoModCheck = checkGo(f.Go.Version)
	return r, nil
}

// checkGo compares a Go version ("go1.24.3", "1.24") with the minimum.
func checkGo(v string) string {
	sv := toSemver(v)
	if !semver.IsValid(sv) {
		return checkUnknown
	}
	if semver.Compare(sv, waitsync.MinGoVersion) < 0 {
		return checkTooOld
	}
	return checkOK
}

// toSemver maps Go release names to semver. Pre-releases such as
// "go1.25rc1" become "v1.25.0-rc1".
func toSemver(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "go")
	for _, tag := range []string{"rc", "beta"} {
		if i := strings.Index(v, tag); i > 0 {
			base := v[:i]
			if strings.Count(base, ".") == 1 {
				base += ".0"
			}
			return "v" + base + "-" + v[i:]
		}
	}
	return "v" + v
}
