package daemon

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestChromedriverProfileDefaults(t *testing.T) {
	p := Chromedriver()
	if p.Name != "chromedriver" || p.Binary != "chromedriver" {
		t.Fatalf("unexpected name/binary: %q/%q", p.Name, p.Binary)
	}
	if p.ProbePath != "/status" {
		t.Fatalf("unexpected probe path: %q", p.ProbePath)
	}
	if p.HostAlias != DefaultHostAlias {
		t.Fatalf("unexpected host alias: %q", p.HostAlias)
	}
	if runtime.GOOS == "darwin" || runtime.GOOS == "linux" {
		if _, ok := p.Install[runtime.GOOS]; !ok {
			t.Fatalf("no install hint for %s", runtime.GOOS)
		}
	}
}

func TestArgsBindPortAndOpenAccess(t *testing.T) {
	p := Chromedriver()
	args := p.Args(9515)
	want := []string{"--port=9515", "--allowed-origins=*", "--allowed-ips="}
	if len(args) != len(want) {
		t.Fatalf("args mismatch: got %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d]: got %q want %q", i, args[i], want[i])
		}
	}
}

func TestArgsAppendsExtraArgs(t *testing.T) {
	p := Chromedriver()
	p.ExtraArgs = []string{"--verbose"}
	args := p.Args(4444)
	if args[0] != "--port=4444" {
		t.Fatalf("port flag: got %q", args[0])
	}
	if args[len(args)-1] != "--verbose" {
		t.Fatalf("extra arg not appended: %v", args)
	}
}

func TestURLs(t *testing.T) {
	p := Chromedriver()
	if got := p.ProbeURL(9515); got != "http://127.0.0.1:9515/status" {
		t.Fatalf("probe url: %q", got)
	}
	if got := p.PublishedURL(9515); got != "http://host.docker.internal:9515" {
		t.Fatalf("published url: %q", got)
	}
}

func TestPathsAreDeterministic(t *testing.T) {
	p := Chromedriver()
	if p.PIDPath() != p.PIDPath() || p.LogPath() != p.LogPath() {
		t.Fatal("paths must be stable across calls")
	}
	if filepath.Base(p.PIDPath()) != "chromedriver.pid" {
		t.Fatalf("pid path: %q", p.PIDPath())
	}
	if !strings.HasSuffix(p.LogPath(), "chromedriver.log") {
		t.Fatalf("log path: %q", p.LogPath())
	}
}
