package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/haivivi/tensorstream/pkg/media"
)

// feedSource reads raw frames from path and hands fn one media buffer at
// a time, synthesizing timestamps from the stream position. samples is
// the number of audio samples per buffer; video pushes one frame per
// buffer and text one line per buffer. It returns the number of buffers
// pushed.
func feedSource(path string, format media.Format, samples int, fn func(media.Buffer) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch v := format.(type) {
	case media.Video:
		frameDur := time.Duration(0)
		if v.RateN > 0 {
			frameDur = time.Second * time.Duration(v.RateD) / time.Duration(v.RateN)
		}
		return feedChunks(f, v, v.BufferSize(), frameDur, fn)
	case media.Audio:
		if samples < 1 {
			samples = 1
		}
		chunkDur := time.Second * time.Duration(samples) / time.Duration(v.Rate)
		return feedChunks(f, v, v.FrameSize()*samples, chunkDur, fn)
	case media.Text:
		sc := bufio.NewScanner(f)
		n := 0
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			if err := fn(media.Buffer{Format: v, Data: line}); err != nil {
				return n, err
			}
			n++
		}
		return n, sc.Err()
	}
	return 0, fmt.Errorf("unsupported media format %v", format)
}

func feedChunks(r io.Reader, format media.Format, size int, dur time.Duration, fn func(media.Buffer) error) (int, error) {
	n := 0
	for {
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return n, nil
			}
			return n, err
		}
		buf := media.Buffer{Format: format, Data: data, PTS: time.Duration(n) * dur}
		if err := fn(buf); err != nil {
			return n, err
		}
		n++
	}
}
