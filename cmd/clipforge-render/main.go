// Command clipforge-render renders a saved project file to a video in one
// shot, without the HTTP daemon. It prints pipeline progress to stderr and
// exits non-zero on failure or cancellation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clipforge/internal/logging"
	"clipforge/internal/probe"
	"clipforge/internal/project"
	"clipforge/internal/render"
)

func main() {
	var (
		projectPath = flag.String("project", "", "path to the project file (required)")
		outputPath  = flag.String("o", "", "destination video file (required)")
		ffmpegPath  = flag.String("ffmpeg", "ffmpeg", "ffmpeg binary")
		ffprobePath = flag.String("ffprobe", "ffprobe", "ffprobe binary")
		fps         = flag.Float64("fps", 0, "override project frame rate")
		codec       = flag.String("codec", "", "override project video codec")
		software    = flag.Bool("software", false, "force software encoding")
	)
	flag.Parse()

	if *projectPath == "" || *outputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	probe.SetBinary(*ffprobePath)

	proj, err := project.Load(*projectPath)
	if err != nil {
		logging.Fatal("Loading project: %v", err)
	}

	// Older project files omit source durations; fill them in from ffprobe
	// so the document round-trips complete if re-saved.
	for i := range proj.Clips {
		c := &proj.Clips[i]
		if c.Duration > 0 {
			continue
		}
		info, err := probe.Probe(context.Background(), c.Source)
		if err != nil {
			logging.Warn("Cannot probe %s for duration: %v", c.Source, err)
			continue
		}
		c.Duration = info.Duration
	}

	settings := proj.Settings
	if *fps > 0 {
		settings.FPS = *fps
	}
	if *codec != "" {
		settings.VideoCodec = *codec
	}
	if err := settings.Validate(); err != nil {
		logging.Fatal("Render settings: %v", err)
	}

	session := render.NewSession(proj.Timeline(), settings, *outputPath, render.Options{
		FFmpegPath:     *ffmpegPath,
		NVENCAvailable: !*software,
		Notifier: &render.Callbacks{
			OnLog:    func(msg string) { logging.Info("%s", msg) },
			OnStatus: func(msg string) { fmt.Fprintf(os.Stderr, "\r%-60s", msg) },
		},
	})

	// First signal cancels cleanly; a second one lets the default handler
	// kill the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.Warn("Received %s, cancelling render", sig)
		session.Cancel()
		signal.Stop(sigChan)
	}()

	res := session.Render(context.Background())
	fmt.Fprintln(os.Stderr)
	if !res.OK {
		logging.Error("%s", res.Message)
		os.Exit(1)
	}
	logging.Info("%s: %s", res.Message, *outputPath)
}
