package shared

import (
	"strings"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	t.Run("Unsupported Platform", func(t *testing.T) {
		orig := getRuntime
		t.Cleanup(func() { getRuntime = orig })
		getRuntime = func() string { return "plan9" }

		err := OpenBrowser("http://localhost")
		if err == nil || !strings.Contains(err.Error(), "unsupported platform") {
			t.Fatalf("expected unsupported platform error, got %v", err)
		}
	})

	t.Run("Launcher Per Platform", func(t *testing.T) {
		tt := []struct {
			goos string
			bin  string
		}{
			{goos: "darwin", bin: "open"},
			{goos: "linux", bin: "xdg-open"},
			{goos: "windows", bin: "rundll32"},
		}

		for _, tc := range tt {
			cmd, err := browserCommand(tc.goos, "http://localhost")
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.goos, err)
			}
			if cmd.Args[0] != tc.bin {
				t.Errorf("%s: launcher = %s, want %s", tc.goos, cmd.Args[0], tc.bin)
			}
			if cmd.Args[len(cmd.Args)-1] != "http://localhost" {
				t.Errorf("%s: url not passed as last argument", tc.goos)
			}
		}
	})
}
