// Command imagecache-demo drives the image cache through a headless frame
// loop on the noop GPU backend and reports how it behaved.
//
// Each frame draws a window of WorkingSet images that slides by one image
// per frame, so images continuously enter and leave the working set and
// the reclamation pass has real work to do.
//
// Usage:
//
//	imagecache-demo [-config demo.yaml] [-frames N] [-v]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/imagecache"
	"github.com/gogpu/imagecache/gpu"
	"github.com/gogpu/imagecache/image"
	"github.com/gogpu/imagecache/loader"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		frames     = flag.Int("frames", 0, "number of frames (overrides config)")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *frames > 0 {
		cfg.Frames = *frames
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	imagecache.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	report, err := run(cfg)
	if err != nil {
		log.Fatalf("Demo failed: %v", err)
	}
	fmt.Print(report)
}

// Report summarizes a run.
type Report struct {
	Frames       int
	Draws        int
	Dropped      int // draws skipped after ErrAllocation
	Placeholders int // draws of images that failed to decode
	Evicted      int
	FPS          float64
	LoaderHits   uint64
	Stats        imagecache.RendererStats
}

func (r Report) String() string {
	return fmt.Sprintf("Frames: %d\nDraws: %d (dropped %d, placeholders %d)\nEvicted: %d\nFPS (EMA): %.1f\nLoader hits: %d\n%s\n%s\nBindings: %d pending, %d destroyed\n",
		r.Frames, r.Draws, r.Dropped, r.Placeholders, r.Evicted, r.FPS, r.LoaderHits,
		r.Stats.Cache, r.Stats.Atlas, r.Stats.PendingBindings, r.Stats.DestroyedBindings)
}

func run(cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	device, queue, cleanup, err := gpu.OpenNoop()
	if err != nil {
		return Report{}, err
	}
	defer cleanup()

	memo, err := loader.New(cfg.LoaderCapacity)
	if err != nil {
		return Report{}, err
	}

	r, err := imagecache.New(device, queue,
		imagecache.WithAtlasConfig(cfg.AtlasSettings()),
		imagecache.WithMaxTextureDimension(cfg.MaxTextureDimension),
		imagecache.WithLoader(memo),
		imagecache.WithLabel("demo"),
	)
	if err != nil {
		return Report{}, err
	}

	handles := buildHandles(cfg)
	var (
		report Report
		meter  fpsMeter
	)
	for frame := range cfg.Frames {
		start := frame % len(handles)
		for i := range min(cfg.WorkingSet, len(handles)) {
			d, err := r.Prepare(handles[(start+i)%len(handles)])
			switch {
			case errors.Is(err, imagecache.ErrAllocation):
				report.Dropped++
				continue
			case err != nil:
				_ = r.Close()
				return report, err
			case d.Failed:
				report.Placeholders++
			}
			report.Draws++
		}

		sub, err := queue.Submit(nil)
		if err != nil {
			_ = r.Close()
			return report, fmt.Errorf("submit frame %d: %w", frame, err)
		}
		report.Evicted += r.EndFrame(sub)
		meter.Tick(time.Now())
		report.Frames++
	}

	report.FPS = meter.FPS()
	report.LoaderHits = memo.Hits()
	report.Stats = r.Stats()
	if err := r.Close(); err != nil {
		return report, err
	}
	report.Stats.DestroyedBindings = r.Releaser().Destroyed()
	report.Stats.PendingBindings = r.Releaser().Pending()
	return report, nil
}

// buildHandles returns file handles for the configured images, or
// synthetic gradients of assorted sizes. Every eighth synthetic image is
// wider than an atlas layer so the dedicated binding path is exercised.
func buildHandles(cfg Config) []image.Handle {
	if len(cfg.Images) > 0 {
		handles := make([]image.Handle, len(cfg.Images))
		for i, p := range cfg.Images {
			handles[i] = image.FromPath(p)
		}
		return handles
	}

	handles := make([]image.Handle, cfg.Synthetic)
	for i := range handles {
		w, h := 16+(i%7)*24, 16+(i%5)*24
		if i%8 == 7 {
			w = cfg.Atlas.LayerSize + 1
		}
		handles[i] = image.FromRGBA(w, h, gradient(w, h, i))
	}
	return handles
}

// gradient fills an opaque w x h RGBA8 image with a seed-dependent ramp.
func gradient(w, h, seed int) []byte {
	pix := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			o := (y*w + x) * 4
			pix[o] = byte(x * 255 / w)
			pix[o+1] = byte(y * 255 / h)
			pix[o+2] = byte(seed * 37)
			pix[o+3] = 0xFF
		}
	}
	return pix
}

// fpsMeter keeps an exponential moving average of the frame rate.
type fpsMeter struct {
	last time.Time
	fps  float64
}

// Tick records a frame presented at now.
func (m *fpsMeter) Tick(now time.Time) {
	if !m.last.IsZero() {
		if dt := now.Sub(m.last).Seconds(); dt > 0 {
			instant := 1 / dt
			if m.fps == 0 {
				m.fps = instant
			} else {
				m.fps = m.fps*0.9 + instant*0.1
			}
		}
	}
	m.last = now
}

// FPS returns the smoothed frames per second.
func (m *fpsMeter) FPS() float64 { return m.fps }
