// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"os"
	"strconv"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"

	"github.com/emer/vtsynth/synth"
)

// FeedbackTable returns one row per frame: section areas (cm²), lengths (cm) and
// articulator codes, incisor position (cm), velum opening (cm²) and aspiration (dB).
func FeedbackTable(br *synth.BlockResult) *etable.Table {
	ns := 0
	if len(br.Tubes) > 0 {
		ns = br.Tubes[0].Len()
	}
	dt := &etable.Table{}
	dt.SetMetaData("name", "Feedback")
	dt.SetMetaData("desc", "tube geometry per frame")
	dt.SetMetaData("precision", strconv.Itoa(6))
	sch := etable.Schema{
		{"Frame", etensor.INT64, nil, nil},
		{"Area", etensor.FLOAT64, []int{ns}, []string{"Section"}},
		{"Length", etensor.FLOAT64, []int{ns}, []string{"Section"}},
		{"Articulators", etensor.STRING, nil, nil},
		{"IncisorPos", etensor.FLOAT64, nil, nil},
		{"VelumArea", etensor.FLOAT64, nil, nil},
		{"Aspiration", etensor.FLOAT64, nil, nil},
	}
	dt.SetFromSchema(sch, len(br.Tubes))
	for row := range br.Tubes {
		st := &br.Tubes[row]
		codes := make([]byte, st.Len())
		for i, s := range st.Sections {
			dt.SetCellTensorFloat1D("Area", row, i, s.Area*1e4)
			dt.SetCellTensorFloat1D("Length", row, i, s.Length*1e2)
			codes[i] = s.Articulator.Code()
		}
		dt.SetCellFloat("Frame", row, float64(row))
		dt.SetCellString("Articulators", row, string(codes))
		dt.SetCellFloat("IncisorPos", row, st.IncisorPos*1e2)
		dt.SetCellFloat("VelumArea", row, st.VelumArea*1e4)
		dt.SetCellFloat("Aspiration", row, st.AspirationDB)
	}
	return dt
}

// WriteFeedback writes the feedback table as tab separated values.
func WriteFeedback(path string, br *synth.BlockResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	if err := FeedbackTable(br).WriteCSV(f, etable.Tab, etable.Headers); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}
	return nil
}
