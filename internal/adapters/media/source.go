package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	pmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFrameDuration = 33 * time.Millisecond
	oggPageDuration      = 20 * time.Millisecond
	opusSampleRate       = 48000
)

var ErrUnsupportedCodec = errors.New("media: unsupported ivf codec")

// FileSource publishes an IVF video file and an Ogg/Opus audio file. Either
// path may be empty.
type FileSource struct {
	streamID string

	video     *webrtc.TrackLocalStaticSample
	videoFile *os.File
	ivf       *ivfreader.IVFReader
	frameDur  time.Duration

	audio     *webrtc.TrackLocalStaticSample
	audioFile *os.File
	ogg       *oggreader.OggReader

	videoFrames atomic.Int64
	audioPages  atomic.Int64
}

// Open reads the container headers and creates a local track per file.
func Open(streamID, videoPath, audioPath string) (*FileSource, error) {
	s := &FileSource{streamID: streamID}
	if videoPath != "" {
		if err := s.openVideo(videoPath); err != nil {
			s.Close()
			return nil, err
		}
	}
	if audioPath != "" {
		if err := s.openAudio(audioPath); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func mimeForFourCC(fourcc string) (string, error) {
	switch fourcc {
	case "VP80":
		return webrtc.MimeTypeVP8, nil
	case "VP90":
		return webrtc.MimeTypeVP9, nil
	case "AV01":
		return webrtc.MimeTypeAV1, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, fourcc)
	}
}

func (s *FileSource) openVideo(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("media: open video: %w", err)
	}
	s.videoFile = f

	reader, header, err := ivfreader.NewWith(f)
	if err != nil {
		return fmt.Errorf("media: read ivf header: %w", err)
	}
	mime, err := mimeForFourCC(header.FourCC)
	if err != nil {
		return err
	}
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: mime}, "video", s.streamID)
	if err != nil {
		return err
	}

	s.ivf = reader
	s.video = track
	s.frameDur = defaultFrameDuration
	if header.TimebaseDenominator != 0 {
		s.frameDur = time.Duration(float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	}
	if s.frameDur <= 0 {
		s.frameDur = defaultFrameDuration
	}
	return nil
}

func (s *FileSource) openAudio(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("media: open audio: %w", err)
	}
	s.audioFile = f

	reader, _, err := oggreader.NewWith(f)
	if err != nil {
		return fmt.Errorf("media: read ogg header: %w", err)
	}
	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", s.streamID)
	if err != nil {
		return err
	}
	s.ogg = reader
	s.audio = track
	return nil
}

func (s *FileSource) VideoTracks() []webrtc.TrackLocal {
	if s.video == nil {
		return nil
	}
	return []webrtc.TrackLocal{s.video}
}

func (s *FileSource) AudioTracks() []webrtc.TrackLocal {
	if s.audio == nil {
		return nil
	}
	return []webrtc.TrackLocal{s.audio}
}

// Sent returns how many video frames and audio pages were written so far.
func (s *FileSource) Sent() (videoFrames, audioPages int64) {
	return s.videoFrames.Load(), s.audioPages.Load()
}

// Start paces both files into their tracks until each reaches EOF or ctx is
// done.
func (s *FileSource) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.video != nil {
		g.Go(func() error { return s.pumpVideo(ctx) })
	}
	if s.audio != nil {
		g.Go(func() error { return s.pumpAudio(ctx) })
	}
	return g.Wait()
}

func (s *FileSource) pumpVideo(ctx context.Context) error {
	ticker := time.NewTicker(s.frameDur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, _, err := s.ivf.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			log.Info().Str("module", "media").Int64("frames", s.videoFrames.Load()).Msg("video file done")
			return nil
		}
		if err != nil {
			return fmt.Errorf("media: read ivf frame: %w", err)
		}
		if err := s.video.WriteSample(pmedia.Sample{Data: frame, Duration: s.frameDur}); err != nil {
			return fmt.Errorf("media: write video sample: %w", err)
		}
		s.videoFrames.Add(1)
	}
}

func (s *FileSource) pumpAudio(ctx context.Context) error {
	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		page, header, err := s.ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			log.Info().Str("module", "media").Int64("pages", s.audioPages.Load()).Msg("audio file done")
			return nil
		}
		if err != nil {
			return fmt.Errorf("media: read ogg page: %w", err)
		}

		dur := oggPageDuration
		if header.GranulePosition > lastGranule {
			samples := header.GranulePosition - lastGranule
			dur = time.Duration(samples) * time.Second / opusSampleRate
		}
		lastGranule = header.GranulePosition

		if err := s.audio.WriteSample(pmedia.Sample{Data: page, Duration: dur}); err != nil {
			return fmt.Errorf("media: write audio sample: %w", err)
		}
		s.audioPages.Add(1)
	}
}

func (s *FileSource) Close() {
	if s.videoFile != nil {
		_ = s.videoFile.Close()
	}
	if s.audioFile != nil {
		_ = s.audioFile.Close()
	}
}
