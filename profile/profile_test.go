package profile

import "testing"

func TestMake(t *testing.T) {
	p := Make(WithMode("cpu"), WithPath("/tmp/p"), WithQuiet(true))

	if p.Mode != "cpu" || p.Path != "/tmp/p" || !p.Quiet {
		t.Errorf("unexpected profiler: %+v", p)
	}
}

func TestStart_NoMode(t *testing.T) {
	stop := Make(WithPath(t.TempDir())).Start()
	if _, ok := stop.(ignore); !ok {
		t.Errorf("expected no-op profiler, got %T", stop)
	}

	stop.Stop()
}
