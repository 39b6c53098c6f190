package musicio_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	Ms "github.com/maroda/musicio/server"
	"go.uber.org/goleak"
)

func TestConfigWatcher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "musicio.json")
	assertError(t, os.WriteFile(path, []byte(`{"mix_mode": "additive", "tempo": 60}`), 0o644), nil)

	t.Run("Reapplies settings when the file changes", func(t *testing.T) {
		changes := make(chan Ms.ConfigFile, 4)
		cw := Ms.NewConfigWatcher(path, func(cf Ms.ConfigFile) { changes <- cf })
		cw.Debounce = 10 * time.Millisecond
		assertError(t, cw.Start(), nil)
		defer cw.Stop()

		assertError(t, os.WriteFile(path, []byte(`{"mix_mode": "priority", "tempo": 120}`), 0o644), nil)

		select {
		case cf := <-changes:
			assertString(t, cf.MixMode, "priority")
			assertInt(t, cf.Tempo, 120)
		case <-time.After(3 * time.Second):
			t.Fatal("no reload seen")
		}
	})

	t.Run("Bad file keeps the running settings", func(t *testing.T) {
		called := false
		cw := Ms.NewConfigWatcher(path, func(Ms.ConfigFile) { called = true })
		assertError(t, os.WriteFile(path, []byte(``), 0o644), nil)

		err := cw.Reload()
		assertError(t, err, Ms.ErrEmptyConfig)
		assertBool(t, called, false)
	})

	t.Run("Empty path is a no-op", func(t *testing.T) {
		cw := Ms.NewConfigWatcher("", nil)
		assertError(t, cw.Start(), nil)
		cw.Stop()
	})
}
