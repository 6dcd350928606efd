package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/glog"
	"github.com/richinsley/dancecurve/audio"
	"github.com/richinsley/dancecurve/gldevice"
	"github.com/richinsley/dancecurve/glfwcontext"
	"github.com/richinsley/dancecurve/graphics"
	"github.com/richinsley/dancecurve/options"
	"github.com/richinsley/dancecurve/playlist"
	"github.com/richinsley/dancecurve/session"
	"github.com/richinsley/dancecurve/transport"
	"github.com/spf13/cobra"
)

const appName = "dancecurve"

func runVisualizer(opts *options.Options) error {
	feedbackSource, err := os.ReadFile(opts.FeedbackShader)
	if err != nil {
		return fmt.Errorf("failed to load feedback shader: %w", err)
	}
	displaySource, err := os.ReadFile(opts.DisplayShader)
	if err != nil {
		return fmt.Errorf("failed to load display shader: %w", err)
	}

	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	ctx, err := glfwcontext.New(opts.Width, opts.Height, appName)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer ctx.Shutdown()
	ctx.MakeCurrent()
	glfw.SwapInterval(1)

	device, err := gldevice.New(ctx.IsGLES())
	if err != nil {
		return err
	}
	defer device.Destroy()

	output, err := audio.NewOutput(opts.OutputSampleRate, opts.OutputBuffer)
	if err != nil {
		return err
	}
	defer output.Close()

	sess, err := session.NewSession(session.Config{
		Options:        opts,
		Device:         device,
		Mixer:          output.Mixer(),
		FeedbackSource: string(feedbackSource),
		DisplaySource:  string(displaySource),
		Playlist:       playlist.New(),
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	if opts.WebSocketAddr != "" {
		ws := transport.NewWebSocket(opts.WebSocketAddr)
		if err := ws.Start(); err != nil {
			glog.Warningf("Event publisher disabled: %v", err)
		} else {
			defer ws.Close()
			defer ws.Attach(&sess.Events)()
		}
	}

	ingest := func(paths []string) {
		if err := sess.Ingest(paths); err != nil {
			return
		}
		ctx.SetTitle(fmt.Sprintf("%s - %s", appName, filepath.Base(sess.Stream().Path)))
	}
	ctx.SetDropCallback(ingest)
	ctx.RegisterKeyCallback(glfw.KeySpace, sess.TogglePause)

	if opts.AudioFile != "" {
		ingest([]string{opts.AudioFile})
	} else {
		glog.Info("Drop an audio file on the window to start")
	}

	renderLoop(ctx, device, sess)
	return nil
}

// renderLoop ticks the session once per frame until the window closes.
func renderLoop(ctx graphics.Context, device *gldevice.Device, sess *session.Session) {
	glog.Info("Starting render loop...")
	last := ctx.Time()
	for !ctx.ShouldClose() {
		now := ctx.Time()
		dt := time.Duration((now - last) * float64(time.Second))
		last = now

		width, height := ctx.GetFramebufferSize()
		device.SetDisplaySize(width, height)
		sess.SetDisplaySize(width, height)

		sess.Tick(dt)
		ctx.EndFrame()
	}
}

// applyLogLevel maps log_level onto glog's stderr threshold.
func applyLogLevel(level string) {
	threshold := map[string]string{"info": "INFO", "warning": "WARNING", "error": "ERROR"}[level]
	if threshold == "" {
		return
	}
	if err := flag.Set("stderrthreshold", threshold); err != nil {
		glog.Warningf("cannot set log level: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	flags := options.Default()

	rootCmd := &cobra.Command{
		Use:           appName + " [audio-file]",
		Short:         "Audio-reactive feedback shader visualizer",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options.Load(configPath)
			if err != nil {
				return err
			}

			// Command-line flags override the config file.
			f := cmd.Flags()
			if f.Changed("capture") {
				opts.CaptureSource = flags.CaptureSource
			}
			if f.Changed("finish") {
				opts.FinishPolicy = flags.FinishPolicy
			}
			if f.Changed("fix-delay") {
				opts.FixDelay = flags.FixDelay
			}
			if f.Changed("width") {
				opts.Width = flags.Width
			}
			if f.Changed("height") {
				opts.Height = flags.Height
			}
			if f.Changed("feedback-shader") {
				opts.FeedbackShader = flags.FeedbackShader
			}
			if f.Changed("display-shader") {
				opts.DisplayShader = flags.DisplayShader
			}
			if f.Changed("effect-audible") {
				opts.EffectAudible = flags.EffectAudible
			}
			if f.Changed("ws-addr") {
				opts.WebSocketAddr = flags.WebSocketAddr
			}
			if f.Changed("log-level") {
				opts.LogLevel = flags.LogLevel
			}
			if len(args) == 1 {
				opts.AudioFile = args[0]
			}
			if err := opts.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			applyLogLevel(opts.LogLevel)
			return runVisualizer(opts)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&flags.CaptureSource, "capture", options.DefaultCaptureSource,
		"Envelope capture source: effect, mic, none or ffmpeg:<format>:<device>")
	pf.StringVar(&flags.FinishPolicy, "finish", options.DefaultFinishPolicy,
		"What to do when a track ends: stop, loop or next")
	pf.Float64Var(&flags.FixDelay, "fix-delay", options.DefaultFixDelay,
		"Seconds the analysis channel leads the audible one")
	pf.IntVar(&flags.Width, "width", options.DefaultWidth, "Width of the window and feedback targets")
	pf.IntVar(&flags.Height, "height", options.DefaultHeight, "Height of the window and feedback targets")
	pf.StringVar(&flags.FeedbackShader, "feedback-shader", options.DefaultFeedbackShader, "Feedback program source")
	pf.StringVar(&flags.DisplayShader, "display-shader", options.DefaultDisplayShader, "Display program source")
	pf.BoolVar(&flags.EffectAudible, "effect-audible", false, "Also play the analysis channel")
	pf.StringVar(&flags.WebSocketAddr, "ws-addr", "", "Publish events on ws://<addr>/ws (empty disables)")
	pf.StringVar(&flags.LogLevel, "log-level", options.DefaultLogLevel, "info, warning or error")

	// glog registers its flags on the standard flag set.
	pf.AddGoFlagSet(flag.CommandLine)
	return rootCmd
}

func init() {
	runtime.LockOSThread()
}

func main() {
	// Keeps glog from complaining that flags were never parsed; cobra
	// parses them through the pflag wrapper.
	flag.CommandLine.Parse(nil)

	err := newRootCmd().Execute()
	glog.Flush()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		}
		os.Exit(1)
	}
}
