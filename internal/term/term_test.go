package term

import (
	"testing"

	"github.com/backmassage/campaigndelta/internal/config"
)

func TestConfigure_Never(t *testing.T) {
	Configure(config.ColorNever)
	if Enabled() {
		t.Fatal("colors should be disabled")
	}
	if got := Paint(Red, "x"); got != "x" {
		t.Errorf("Paint with colors off = %q, want %q", got, "x")
	}
}

func TestConfigure_Always(t *testing.T) {
	Configure(config.ColorAlways)
	defer Configure(config.ColorNever)

	if !Enabled() {
		t.Fatal("colors should be enabled")
	}
	want := "\033[1;92m" + "ok" + "\033[0m"
	if got := Paint(Green, "ok"); got != want {
		t.Errorf("Paint = %q, want %q", got, want)
	}
}

func TestConfigure_AutoHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	Configure(config.ColorAuto)
	if Enabled() {
		t.Error("NO_COLOR must disable auto colors")
	}
}
