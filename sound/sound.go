// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sound holds synthesized audio as PCM wave data: conversion from float
// samples, WAV encoding and decoding, and playback.
package sound

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BitDepth is the sample size of written waves.
const BitDepth = 16

// ErrInvalidWave is returned for files that do not decode as WAV.
var ErrInvalidWave = errors.New("invalid wav file")

// Wave is PCM audio.
type Wave struct {
	Buf *audio.IntBuffer `inactive:"+"`
}

// FromFloats converts mono samples in [-1, 1] to 16 bit PCM. Values outside the range
// are clipped.
func FromFloats(samples []float64, sampleRate int) *Wave {
	data := make([]int, len(samples))
	for i, v := range samples {
		if math.IsNaN(v) {
			v = 0
		}
		v = math.Max(-1, math.Min(1, v))
		data[i] = int(math.Round(v * 0x7FFF))
	}
	return &Wave{Buf: &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}}
}

// Load loads the sound file and decodes it.
func (snd *Wave) Load(fn string) error {
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := snd.Decode(f); err != nil {
		return fmt.Errorf("%w: %s", err, fn)
	}
	return nil
}

// Decode reads WAV data.
func (snd *Wave) Decode(r io.ReadSeeker) error {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return ErrInvalidWave
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWave, err)
	}
	snd.Buf = buf
	return nil
}

// WriteWave encodes the signal data and writes it to file using the sample rate and
// other values of the buf object.
func (snd *Wave) WriteWave(fn string) error {
	out, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := snd.Encode(out); err != nil {
		out.Close()
		return fmt.Errorf("%s: %w", fn, err)
	}
	return out.Close()
}

// Encode writes the wave as PCM WAV data.
func (snd *Wave) Encode(w io.WriteSeeker) error {
	const pcm = 1
	e := wav.NewEncoder(w, snd.SampleRate(), snd.Buf.SourceBitDepth, snd.Channels(), pcm)
	if err := e.Write(snd.Buf); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}
	if err := e.Close(); err != nil {
		return fmt.Errorf("closing encoder: %w", err)
	}
	return nil
}

// Bytes returns the WAV file content of the wave.
func (snd *Wave) Bytes() ([]byte, error) {
	var m memFile
	if err := snd.Encode(&m); err != nil {
		return nil, err
	}
	return m.buf, nil
}

// memFile is an in-memory io.WriteSeeker; the WAV encoder seeks back to patch
// the chunk sizes.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(m.pos) + offset
	case io.SeekEnd:
		pos = int64(len(m.buf)) + offset
	}
	if pos < 0 {
		return 0, errors.New("seek before start")
	}
	m.pos = int(pos)
	return pos, nil
}

// SampleRate returns the sample rate of the sound or 0 if snd is nil.
func (snd *Wave) SampleRate() int {
	if snd == nil || snd.Buf == nil {
		return 0
	}
	return snd.Buf.Format.SampleRate
}

// Channels returns the number of channels in the wav data or 0 if snd is nil.
func (snd *Wave) Channels() int {
	if snd == nil || snd.Buf == nil {
		return 0
	}
	return snd.Buf.Format.NumChannels
}

// NumFrames returns the number of samples per channel.
func (snd *Wave) NumFrames() int {
	if snd == nil || snd.Buf == nil {
		return 0
	}
	return snd.Buf.NumFrames()
}

// Duration returns the length in seconds.
func (snd *Wave) Duration() float64 {
	sr := snd.SampleRate()
	if sr == 0 {
		return 0
	}
	return float64(snd.NumFrames()) / float64(sr)
}

// Floats returns one channel normalized to [-1, 1].
func (snd *Wave) Floats(channel int) []float64 {
	nc := snd.Channels()
	if channel < 0 || channel >= nc {
		return nil
	}
	n := snd.NumFrames()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = snd.FloatAtIdx(i*nc + channel)
	}
	return out
}

// FloatAtIdx returns the raw data value at idx normalized by the bit depth.
func (snd *Wave) FloatAtIdx(idx int) float64 {
	buf := snd.Buf
	switch buf.SourceBitDepth {
	case 32:
		return float64(buf.Data[idx]) / float64(0x7FFFFFFF)
	case 24:
		return float64(buf.Data[idx]) / float64(0x7FFFFF)
	case 16:
		return float64(buf.Data[idx]) / float64(0x7FFF)
	case 8:
		return float64(buf.Data[idx]) / float64(0x7F)
	}
	return 0
}

// PCMBytes returns the data as little endian 16 bit samples.
func (snd *Wave) PCMBytes() []byte {
	b := make([]byte, 2*len(snd.Buf.Data))
	for i := range snd.Buf.Data {
		v := int16(math.Round(snd.FloatAtIdx(i) * 0x7FFF))
		b[2*i] = byte(v)
		b[2*i+1] = byte(uint16(v) >> 8)
	}
	return b
}
