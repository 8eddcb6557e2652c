// Copyright (c) 2021, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sound

import (
	"github.com/hajimehoshi/oto"
)

// Play plays the wave on the default audio device and returns when it is done.
func Play(snd *Wave) error {
	c, err := oto.NewContext(snd.SampleRate(), snd.Channels(), 2, 4096)
	if err != nil {
		return err
	}
	defer c.Close()
	p := c.NewPlayer()
	if _, err := p.Write(snd.PCMBytes()); err != nil {
		p.Close()
		return err
	}
	return p.Close()
}

// PlayFile loads a WAV file and plays it.
func PlayFile(fn string) error {
	var snd Wave
	if err := snd.Load(fn); err != nil {
		return err
	}
	return Play(&snd)
}
