package varplot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
)

// Presenter shows a rendered figure to the user.
type Presenter interface {
	Present(ctx context.Context, f *Figure) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, f *Figure) error

func (fn PresenterFunc) Present(ctx context.Context, f *Figure) error { return fn(ctx, f) }

// ViewerPresenter writes the figure to a temporary PNG and opens it with
// Command. An empty Command falls back to the platform viewer (xdg-open or
// open); when none is installed nothing is written.
type ViewerPresenter struct {
	Command string
	Dir     string
	DPI     int
	Logger  *slog.Logger
}

// platformViewer returns the installed desktop opener, or "".
var platformViewer = func() string {
	name := "xdg-open"
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		return ""
	}
	if _, err := exec.LookPath(name); err != nil {
		return ""
	}
	return name
}

func (v ViewerPresenter) Present(ctx context.Context, f *Figure) error {
	log := v.Logger
	if log == nil {
		log = slog.Default()
	}
	viewer := v.Command
	if viewer == "" {
		viewer = platformViewer()
	}
	if viewer == "" {
		log.Warn("no figure viewer available; use -save to keep the figure")
		return nil
	}

	tmp, err := os.CreateTemp(v.Dir, "figure-*.png")
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	if err := f.Save(path, v.DPI); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("display: %w", err)
	}
	// the viewer may still be reading the file after it returns, so it stays
	cmd := exec.CommandContext(ctx, viewer, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("display with %s: %w: %s", viewer, err, out)
	}
	log.Debug("figure displayed", "path", path, "viewer", viewer)
	return nil
}
