package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/golang/glog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// FFmpegCapture runs ffmpeg against a live input device and reads
// interleaved f32le stereo from its stdout pipe into a FrameRing.
type FFmpegCapture struct {
	format     string
	device     string
	sampleRate int
	ring       *FrameRing
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	done       chan struct{}
}

// NewFFmpegCapture starts ffmpeg with input format (e.g. "pulse",
// "avfoundation", "dshow") reading device.
func NewFFmpegCapture(format, device string, sampleRate, ringFrames int) (*FFmpegCapture, error) {
	if device == "" {
		return nil, errors.New("ffmpeg capture: no input device given")
	}
	c := &FFmpegCapture{
		format:     format,
		device:     device,
		sampleRate: sampleRate,
		ring:       NewFrameRing(ringFrames),
		done:       make(chan struct{}),
	}
	c.pipeReader, c.pipeWriter = io.Pipe()

	inputArgs := ffmpeg.KwArgs{"fflags": "nobuffer"}
	if format != "" {
		inputArgs["f"] = format
	}
	ffmpegCmd := ffmpeg.Input(device, inputArgs).
		Output("pipe:", ffmpeg.KwArgs{
			"f":   "f32le",
			"c:a": "pcm_f32le",
			"ac":  "2",
			"ar":  strconv.Itoa(sampleRate),
		}).
		WithOutput(c.pipeWriter).
		ErrorToStdOut()

	glog.Infof("Executing FFmpeg to capture from device '%s' with format '%s'...", device, format)
	go func() {
		if err := ffmpegCmd.Run(); err != nil {
			glog.Warningf("FFmpeg capture finished with error: %v", err)
		}
		// Unblocks the reader once ffmpeg exits.
		c.pipeWriter.Close()
	}()
	go c.readLoop()
	return c, nil
}

func (c *FFmpegCapture) readLoop() {
	defer close(c.done)
	const frameBytes = 8
	buf := make([]byte, 1024*frameBytes)
	samples := make([]float32, 0, 2048)
	for {
		n, err := io.ReadFull(c.pipeReader, buf)
		n -= n % frameBytes
		samples = samples[:0]
		for i := 0; i < n; i += 4 {
			samples = append(samples, math.Float32frombits(binary.LittleEndian.Uint32(buf[i:])))
		}
		if len(samples) > 0 {
			c.ring.WriteInterleaved(samples, 2)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.ErrClosedPipe) {
				glog.Warningf("FFmpeg capture read error: %v", err)
			}
			return
		}
	}
}

func (c *FFmpegCapture) Name() string { return fmt.Sprintf("ffmpeg:%s:%s", c.format, c.device) }

func (c *FFmpegCapture) Available() int { return c.ring.Available() }

func (c *FFmpegCapture) Read(n int) [][2]float32 { return c.ring.Read(n) }

func (c *FFmpegCapture) Dropped() int64 { return c.ring.Dropped() }

// Close stops reading; ffmpeg exits on the broken pipe.
func (c *FFmpegCapture) Close() error {
	c.pipeReader.CloseWithError(io.ErrClosedPipe)
	<-c.done
	return nil
}
