// Package media owns the local audio capture handle shared by every peer
// session. Capture happens once per process; sessions attach references to
// the same tracks.
package media

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/webrtc/v4"

	// Registers the malgo-backed microphone driver.
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
)

// Source is the local audio capture handle. All sessions send the same
// tracks; Muted is a single room-wide flag that applies to every session
// uniformly. Level metering and other visualization belongs to the caller,
// which can read the tracks directly.
type Source interface {
	Tracks() []webrtc.TrackLocal

	// PopulateEngine registers the codecs this source encodes with, so peer
	// connections negotiate a format the capture pipeline can produce.
	PopulateEngine(engine *webrtc.MediaEngine)

	SetMuted(muted bool)
	Muted() bool

	Close() error
}

// micSource implements Source over a pion/mediadevices microphone stream.
type micSource struct {
	stream   mediadevices.MediaStream
	selector *mediadevices.CodecSelector
	tracks   []webrtc.TrackLocal
	muted    atomic.Bool
}

// CaptureMicrophone opens the default microphone and returns an
// opus-encoding audio Source.
func CaptureMicrophone() (Source, error) {
	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}

	selector := mediadevices.NewCodecSelector(
		mediadevices.WithAudioEncoders(&opusParams),
	)

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {},
		Codec: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("microphone capture: %w", err)
	}

	audio := stream.GetAudioTracks()
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio tracks in capture stream")
	}

	tracks := make([]webrtc.TrackLocal, 0, len(audio))
	for _, t := range audio {
		tracks = append(tracks, t)
	}

	return &micSource{
		stream:   stream,
		selector: selector,
		tracks:   tracks,
	}, nil
}

func (s *micSource) Tracks() []webrtc.TrackLocal {
	return s.tracks
}

func (s *micSource) PopulateEngine(engine *webrtc.MediaEngine) {
	s.selector.Populate(engine)
}

func (s *micSource) SetMuted(muted bool) {
	s.muted.Store(muted)
}

func (s *micSource) Muted() bool {
	return s.muted.Load()
}

// Close stops every capture track.
func (s *micSource) Close() error {
	var errs []error
	for _, t := range s.stream.GetTracks() {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
