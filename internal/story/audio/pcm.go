package audio

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Narration audio arrives from the synthesis service in exactly one format.
const (
	SampleRate     = 24000
	Channels       = 1
	BytesPerSample = 2 // signed 16-bit little-endian PCM
)

var (
	// ErrDecode reports a malformed base64 payload.
	ErrDecode = errors.New("malformed base64 audio payload")
	// ErrAudioFormat reports raw PCM whose length does not divide into
	// whole frames for the requested channel count.
	ErrAudioFormat = errors.New("pcm byte length is not a whole number of frames")
)

// Buffer holds decoded narration audio: normalized float64 samples in
// [-1.0, 1.0], de-interleaved one slice per channel.
type Buffer struct {
	Samples     [][]float64
	SampleRate  int
	NumChannels int
}

// Len returns the number of frames per channel.
func (b *Buffer) Len() int {
	if len(b.Samples) == 0 {
		return 0
	}
	return len(b.Samples[0])
}

// Decode decodes a base64-encoded raw PCM payload as delivered by the
// speech service.
func Decode(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}

// DecodeAudioData interprets data as signed little-endian 16-bit PCM,
// normalizes each sample to [-1.0, 1.0] and de-interleaves it into
// channelCount channels. No resampling and no format sniffing: the service
// output format is fixed, so sampleRate and channelCount are caller-supplied
// constants.
func DecodeAudioData(data []byte, sampleRate, channelCount int) (*Buffer, error) {
	if channelCount < 1 {
		return nil, fmt.Errorf("%w: channel count %d", ErrAudioFormat, channelCount)
	}
	frameSize := BytesPerSample * channelCount
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes, %d channels", ErrAudioFormat, len(data), channelCount)
	}

	frames := len(data) / frameSize
	channels := make([][]float64, channelCount)
	for c := range channels {
		channels[c] = make([]float64, frames)
	}

	for f := 0; f < frames; f++ {
		for c := 0; c < channelCount; c++ {
			off := f*frameSize + c*BytesPerSample
			sample := int16(data[off]) | int16(data[off+1])<<8
			channels[c][f] = float64(sample) / 32768.0
		}
	}

	return &Buffer{
		Samples:     channels,
		SampleRate:  sampleRate,
		NumChannels: channelCount,
	}, nil
}
