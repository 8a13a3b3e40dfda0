/*
Copyright 2017 Google Inc. All Rights Reserved.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package detector

import "testing"

func TestConstantPhaseDiscriminatorRisingEdge(t *testing.T) {
	d := ConstantPhaseDiscriminator{Threshold: 100, Direction: DirectionRising, MinDuration: 2}
	// Samples 2..4 are above threshold, then 2 samples below to close it.
	voltage := []uint16{0, 0, 150, 160, 140, 0, 0, 0}

	pulses := d.DetectChannel(voltage)
	if len(pulses) != 1 {
		t.Fatalf("DetectChannel() returned %d pulses, want 1: %+v", len(pulses), pulses)
	}
	if pulses[0].sampleIndex != 2 {
		t.Errorf("pulse start index = %d, want 2 (the first sample at/above threshold)", pulses[0].sampleIndex)
	}
	if pulses[0].amplitude != 0 {
		t.Errorf("pulse amplitude = %v, want 0 (mode A records timing only)", pulses[0].amplitude)
	}
}

func TestConstantPhaseDiscriminatorRequiresMinDurationToClose(t *testing.T) {
	d := ConstantPhaseDiscriminator{Threshold: 100, Direction: DirectionRising, MinDuration: 3}
	// Only 2 low samples interrupt the high run; pulse should not close.
	voltage := []uint16{150, 150, 0, 0, 150, 0, 0, 0}

	pulses := d.DetectChannel(voltage)
	if len(pulses) != 1 {
		t.Fatalf("DetectChannel() returned %d pulses, want 1 (brief dip should not split the pulse): %+v", len(pulses), pulses)
	}
	if pulses[0].sampleIndex != 0 {
		t.Errorf("pulse start index = %d, want 0", pulses[0].sampleIndex)
	}
}

func TestConstantPhaseDiscriminatorFallingDirection(t *testing.T) {
	d := ConstantPhaseDiscriminator{Threshold: 50, Direction: DirectionFalling, MinDuration: 1}
	voltage := []uint16{100, 100, 10, 5, 100, 100}

	pulses := d.DetectChannel(voltage)
	if len(pulses) != 1 {
		t.Fatalf("DetectChannel() returned %d pulses, want 1: %+v", len(pulses), pulses)
	}
	if pulses[0].sampleIndex != 2 {
		t.Errorf("pulse start index = %d, want 2", pulses[0].sampleIndex)
	}
}

func TestConstantPhaseDiscriminatorUnterminatedPulseNotEmitted(t *testing.T) {
	d := ConstantPhaseDiscriminator{Threshold: 100, Direction: DirectionRising, MinDuration: 2}
	voltage := []uint16{150, 150, 150}

	pulses := d.DetectChannel(voltage)
	if len(pulses) != 0 {
		t.Errorf("DetectChannel() returned %d pulses, want 0 (pulse never falls back below threshold)", len(pulses))
	}
}
