package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/tensorstream/cmd/tensorstream/internal/config"
	"github.com/haivivi/tensorstream/pkg/convert"
	"github.com/haivivi/tensorstream/pkg/tensor"
)

var (
	flagCapsMedia     string
	flagCapsPixel     string
	flagCapsWidth     int
	flagCapsHeight    int
	flagCapsFramerate string
	flagCapsSample    string
	flagCapsChannels  int
	flagCapsRate      int
	flagCapsFrames    int
)

var capsCmd = &cobra.Command{
	Use:   "caps [TENSOR-CAPS]",
	Short: "Show the tensor caps a media format maps to",
	Long: `Show the tensor caps a media format maps to.

Without an argument, the media flags describe an input format and the
mapped tensor caps string is printed:

  tensorstream caps --media video --pixel RGB --width 160 --height 120 --framerate 30/1

With a tensor caps string argument, the string is parsed and printed
back in canonical form:

  tensorstream caps "other/tensor,dimension=3:160:120:1,type=uint8,framerate=30/1"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCaps,
}

func init() {
	capsCmd.Flags().StringVar(&flagCapsMedia, "media", "video", "Media type (video, audio, text)")
	capsCmd.Flags().StringVar(&flagCapsPixel, "pixel", "RGB", "Pixel format (RGB, BGRx, GRAY8)")
	capsCmd.Flags().IntVar(&flagCapsWidth, "width", 0, "Video width in pixels")
	capsCmd.Flags().IntVar(&flagCapsHeight, "height", 0, "Video height in pixels")
	capsCmd.Flags().StringVar(&flagCapsFramerate, "framerate", "30/1", "Video frame rate as N/D")
	capsCmd.Flags().StringVar(&flagCapsSample, "sample", "S16LE", "Audio sample format")
	capsCmd.Flags().IntVar(&flagCapsChannels, "channels", 1, "Audio channel count")
	capsCmd.Flags().IntVar(&flagCapsRate, "rate", 16000, "Audio sample rate in Hz")
	capsCmd.Flags().IntVar(&flagCapsFrames, "frames", 1, "Media frames per tensor")
}

func runCaps(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		desc, err := tensor.ParseCaps(args[0])
		if err != nil {
			return err
		}
		fmt.Println(desc.Caps())
		fmt.Printf("bytes per buffer: %d\n", desc.ByteSize())
		return nil
	}

	src := config.Source{
		Media:     flagCapsMedia,
		Pixel:     flagCapsPixel,
		Width:     flagCapsWidth,
		Height:    flagCapsHeight,
		Framerate: flagCapsFramerate,
		Sample:    flagCapsSample,
		Channels:  flagCapsChannels,
		Rate:      flagCapsRate,
	}
	format, err := src.Format()
	if err != nil {
		return err
	}
	desc, err := convert.Map(format, flagCapsFrames)
	if err != nil {
		return err
	}
	fmt.Println(desc.Caps())
	fmt.Printf("bytes per buffer: %d\n", desc.ByteSize())
	return nil
}
