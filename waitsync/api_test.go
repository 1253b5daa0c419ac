package waitsync

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/mod/semver"

	"github.com/kolkov/waitsync/internal/waitsync/platform/platformtest"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if !semver.IsValid("v" + info.Version) {
		t.Errorf("Version %q is not valid semver", info.Version)
	}
	if !semver.IsValid(info.MinGoVersion) {
		t.Errorf("MinGoVersion %q is not valid semver", info.MinGoVersion)
	}
}

func TestConstructorsUsePlatform(t *testing.T) {
	p := platformtest.New()

	m := NewMutexOn(p, 1)
	g, err := m.Lock()
	if err != nil {
		t.Fatal(err)
	}
	g.Unlock()

	c := NewOnceCellOn[int](p)
	c.GetOrInit(func() int { return 2 })

	l := NewRawLock(p)
	l.Lock()
	l.Unlock()
	if l.Platform() != Platform(p) {
		t.Error("RawLock not bound to the given platform")
	}
	if c.Platform() != Platform(p) {
		t.Error("OnceCell not bound to the given platform")
	}
}

func TestRelockPanicsWithDeadlock(t *testing.T) {
	var l RawLock
	l.Lock()
	defer l.Unlock()

	defer func() {
		err, _ := recover().(error)
		var de *DeadlockError
		if !errors.Is(err, ErrDeadlock) || !errors.As(err, &de) {
			t.Fatalf("recovered %v, want *DeadlockError", err)
		}
		if de.Owner != CurrentThread() {
			t.Errorf("Owner = %v, want %v", de.Owner, CurrentThread())
		}
	}()
	l.Lock()
}

func TestDefaultPlatformMetrics(t *testing.T) {
	if DefaultPlatform() == nil {
		t.Fatal("DefaultPlatform returned nil")
	}
	_ = DefaultPlatformStats()

	var buf bytes.Buffer
	WriteDefaultPlatformMetrics(&buf)
	if !strings.Contains(buf.String(), "waitsync_park_waits_total") {
		t.Errorf("metrics output missing waits counter:\n%s", buf.String())
	}
}
