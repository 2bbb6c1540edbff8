package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/tensorstream/cmd/tensorstream/internal/config"
	"github.com/haivivi/tensorstream/pkg/convert"
	"github.com/haivivi/tensorstream/pkg/media"
	"github.com/haivivi/tensorstream/pkg/stream"
)

var (
	flagConvMedia     string
	flagConvPixel     string
	flagConvWidth     int
	flagConvHeight    int
	flagConvFramerate string
	flagConvSample    string
	flagConvChannels  int
	flagConvRate      int
	flagConvSamples   int
	flagConvFrames    int
	flagConvOutput    string
)

var convertCmd = &cobra.Command{
	Use:   "convert FILE",
	Short: "Convert a raw media file into a tensor dump",
	Long: `Convert a raw media file into a tensor dump.

The input file holds raw frames of the format given by the media flags.
Each converted tensor buffer is appended to the output dump as one
msgpack record.

Example:
  tensorstream convert frames.rgb --pixel RGB --width 160 --height 120 -o frames.tsd`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&flagConvMedia, "media", "video", "Media type (video, audio, text)")
	convertCmd.Flags().StringVar(&flagConvPixel, "pixel", "RGB", "Pixel format (RGB, BGRx, GRAY8)")
	convertCmd.Flags().IntVar(&flagConvWidth, "width", 0, "Video width in pixels")
	convertCmd.Flags().IntVar(&flagConvHeight, "height", 0, "Video height in pixels")
	convertCmd.Flags().StringVar(&flagConvFramerate, "framerate", "30/1", "Video frame rate as N/D")
	convertCmd.Flags().StringVar(&flagConvSample, "sample", "S16LE", "Audio sample format")
	convertCmd.Flags().IntVar(&flagConvChannels, "channels", 1, "Audio channel count")
	convertCmd.Flags().IntVar(&flagConvRate, "rate", 16000, "Audio sample rate in Hz")
	convertCmd.Flags().IntVar(&flagConvSamples, "samples", 0, "Audio samples per input buffer")
	convertCmd.Flags().IntVar(&flagConvFrames, "frames", 1, "Media frames per tensor")
	convertCmd.Flags().StringVarP(&flagConvOutput, "output", "o", "out.tsd", "Output dump path")
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	src := config.Source{
		Media:     flagConvMedia,
		Pixel:     flagConvPixel,
		Width:     flagConvWidth,
		Height:    flagConvHeight,
		Framerate: flagConvFramerate,
		Sample:    flagConvSample,
		Channels:  flagConvChannels,
		Rate:      flagConvRate,
	}
	format, err := src.Format()
	if err != nil {
		return err
	}

	conv, err := convert.New(flagConvFrames)
	if err != nil {
		return err
	}

	out, err := os.Create(flagConvOutput)
	if err != nil {
		return err
	}
	defer out.Close()
	dump := stream.NewDumpWriter(out)

	samples := flagConvSamples
	if samples == 0 {
		samples = flagConvFrames
	}

	written := 0
	pushed, err := feedSource(args[0], format, samples, func(in media.Buffer) error {
		bufs, err := conv.Push(in)
		if err != nil {
			return err
		}
		for _, b := range bufs {
			if err := dump.Write(b); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("convert %s: %w", args[0], err)
	}
	if n := conv.Flush(); n > 0 {
		logger.Info("dropped incomplete frames at end of stream", "frames", n)
	}

	desc, ok := conv.Descriptor()
	if !ok {
		return fmt.Errorf("convert %s: empty input", args[0])
	}
	logger.Info("conversion finished",
		"input", args[0],
		"buffers_in", pushed,
		"buffers_out", written,
		"caps", desc.Caps(),
		"output", flagConvOutput)
	return nil
}
