package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// DecodeWAV reads a PCM WAV stream and returns a normalized mono waveform and
// its sample rate. Multi-channel audio is downmixed by averaging; integer
// samples are scaled to [-1, 1] by the file's bit depth.
func DecodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, errors.New("audio: not a valid WAV file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: read WAV data: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, 0, errors.New("audio: WAV file has no PCM data")
	}
	rate := buf.Format.SampleRate
	if rate <= 0 {
		return nil, 0, fmt.Errorf("audio: WAV reports sample rate %d", rate)
	}
	if len(buf.Data) == 0 {
		return nil, rate, nil
	}

	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return DownmixMono(samples, buf.Format.NumChannels), rate, nil
}

// ReadWAVFile decodes the WAV file at path. See [DecodeWAV].
func ReadWAVFile(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: %w", err)
	}
	defer f.Close()
	return DecodeWAV(f)
}
