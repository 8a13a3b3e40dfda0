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

// ThresholdDuration is a {threshold, min_duration} pair gating one of the
// Advanced Muon Detector's state transitions (spec §4.1).
type ThresholdDuration struct {
	Threshold   float64
	MinDuration int
}

// muonState is the per-channel state of the Advanced Muon Detector's state
// machine.
type muonState int

const (
	stateLevel muonState = iota
	stateRising
	stateFalling
)

// AdvancedMuonDetector is Mode B (spec §4.1): a baseline-subtracted,
// smoothed derivative stream driving a Level/Rising/Falling state
// machine, gated by per-transition persistence counters.
type AdvancedMuonDetector struct {
	BaselineWarmUp    int
	BaselineSmoothing float64 // alpha, 0 < alpha <= 1
	SmoothingWindow   int
	Onset             ThresholdDuration
	Fall              ThresholdDuration
	Termination       ThresholdDuration
	// MuonDuration is a pulse duration in derivative-stream samples. It is
	// carried in the configuration only: the state machine does not read
	// it, so a pulse's length from Onset is not bounded.
	MuonDuration int
	MinAmplitude *float64
	MaxAmplitude *float64
}

// assembly is one in-flight Onset..End(|EndOnset) pulse candidate.
type assembly struct {
	startIdx int
	startVal float64

	steepestRiseIdx   int
	steepestRiseDeriv float64
	peakIdx           int
	peakVal           float64

	fallSet           bool
	sharpestFallIdx   int
	sharpestFallDeriv float64

	endIdx int
	endVal float64
}

// DetectChannel implements ChannelAlgorithm.
func (d AdvancedMuonDetector) DetectChannel(voltage []uint16) []rawPulse {
	deriv, smoothed, originOffset, ok := d.derivativeStream(voltage)
	if !ok {
		return nil
	}
	return d.runStateMachine(deriv, smoothed, originOffset)
}

// derivativeStream runs steps 1-3 of spec §4.1's Mode B pipeline: baseline
// subtraction, centred smoothing, and a 2nd-order central difference. It
// returns the derivative stream, the smoothed amplitude aligned 1:1 with
// it, and the offset converting a derivative-stream index back into an
// original voltage sample index.
func (d AdvancedMuonDetector) derivativeStream(voltage []uint16) (deriv, smoothedAtDeriv []float64, originOffset int, ok bool) {
	n := len(voltage)
	warm := d.BaselineWarmUp
	if warm <= 0 || n <= warm {
		return nil, nil, 0, false
	}

	baseline := float64(voltage[0])
	alpha := d.BaselineSmoothing
	for i := 1; i < warm; i++ {
		baseline = alpha*float64(voltage[i]) + (1-alpha)*baseline
	}

	working := make([]float64, n-warm)
	for i := range working {
		working[i] = float64(voltage[warm+i]) - baseline
	}

	w := d.SmoothingWindow
	if w <= 0 || len(working) <= w {
		return nil, nil, 0, false
	}
	half := w / 2
	smoothedLen := len(working) - 2*half
	if smoothedLen <= 0 {
		return nil, nil, 0, false
	}
	smoothed := make([]float64, smoothedLen)
	var sum float64
	for i := 0; i < w; i++ {
		sum += working[i]
	}
	smoothed[0] = sum / float64(w)
	for i := 1; i < smoothedLen; i++ {
		sum += working[i+w-1] - working[i-1]
		smoothed[i] = sum / float64(w)
	}

	if smoothedLen < 3 {
		return nil, nil, 0, false
	}
	derivLen := smoothedLen - 2
	deriv = make([]float64, derivLen)
	smoothedAtDeriv = make([]float64, derivLen)
	for k := 0; k < derivLen; k++ {
		deriv[k] = (smoothed[k+2] - smoothed[k]) / 2
		smoothedAtDeriv[k] = smoothed[k+1]
	}

	// smoothed index j covers working[j:j+w], centred on working[j+half],
	// i.e. original voltage index warm+j+half. deriv[k] is centred on
	// smoothed[k+1].
	originOffset = warm + half + 1
	return deriv, smoothedAtDeriv, originOffset, true
}

func (d AdvancedMuonDetector) runStateMachine(deriv, smoothed []float64, originOffset int) []rawPulse {
	var pulses []rawPulse

	state := stateLevel
	var cur *assembly

	var onsetCounter, onsetStart int
	var fallCounter, fallStart int
	var termCounter, termStart int
	var reonsetCounter, reonsetStart int

	finishPulse := func(k int) {
		cur.endIdx = originOffset + k
		cur.endVal = smoothed[k]
		if p, ok := d.assemble(cur); ok {
			pulses = append(pulses, p)
		}
		cur = nil
		state = stateLevel
		onsetCounter = 0
	}

	for k, dv := range deriv {
		switch state {
		case stateLevel:
			if dv > d.Onset.Threshold {
				if onsetCounter == 0 {
					onsetStart = k
				}
				onsetCounter++
				if onsetCounter >= d.Onset.MinDuration {
					idx := onsetStart
					cur = &assembly{
						startIdx:          originOffset + idx,
						startVal:          smoothed[idx],
						steepestRiseIdx:   originOffset + idx,
						steepestRiseDeriv: deriv[idx],
						peakIdx:           originOffset + idx,
						peakVal:           smoothed[idx],
					}
					state = stateRising
					onsetCounter = 0
					fallCounter = 0
				}
			} else {
				onsetCounter = 0
			}

		case stateRising:
			if dv > cur.steepestRiseDeriv {
				cur.steepestRiseDeriv = dv
				cur.steepestRiseIdx = originOffset + k
			}
			if dv < d.Fall.Threshold {
				if fallCounter == 0 {
					fallStart = k
				}
				fallCounter++
				if fallCounter >= d.Fall.MinDuration {
					// Peak: realised at the start of the persistent fall.
					cur.peakIdx = originOffset + fallStart
					cur.peakVal = smoothed[fallStart]
					state = stateFalling
					fallCounter = 0
					termCounter = 0
					reonsetCounter = 0
				}
			} else {
				fallCounter = 0
			}

		case stateFalling:
			if !cur.fallSet || dv < cur.sharpestFallDeriv {
				cur.sharpestFallDeriv = dv
				cur.sharpestFallIdx = originOffset + k
				cur.fallSet = true
			}

			if dv > d.Termination.Threshold {
				if termCounter == 0 {
					termStart = k
				}
				termCounter++
			} else {
				termCounter = 0
			}
			if dv > d.Onset.Threshold {
				if reonsetCounter == 0 {
					reonsetStart = k
				}
				reonsetCounter++
			} else {
				reonsetCounter = 0
			}

			// A back-to-back pulse (Falling -> Rising) and a clean
			// termination (Falling -> Level) can both be pending at once;
			// whichever persistence requirement is satisfied first wins.
			if termCounter >= d.Termination.MinDuration && (reonsetCounter < d.Onset.MinDuration || termStart <= reonsetStart) {
				finishPulse(termStart)
				continue
			}
			if reonsetCounter >= d.Onset.MinDuration {
				// EndOnset: close the current pulse at the re-onset edge
				// and immediately open the next one, without passing
				// through Level.
				finishPulse(reonsetStart)
				idx := reonsetStart
				cur = &assembly{
					startIdx:          originOffset + idx,
					startVal:          smoothed[idx],
					steepestRiseIdx:   originOffset + idx,
					steepestRiseDeriv: deriv[idx],
					peakIdx:           originOffset + idx,
					peakVal:           smoothed[idx],
				}
				state = stateRising
				fallCounter = 0
			}
		}
	}

	return pulses
}

// assemble converts a completed assembly into a rawPulse, applying the
// min/max amplitude cut (spec §4.1 step 5). Its time is the steepest-rise
// sample, its amplitude the peak value.
func (d AdvancedMuonDetector) assemble(a *assembly) (rawPulse, bool) {
	if d.MinAmplitude != nil && a.peakVal < *d.MinAmplitude {
		return rawPulse{}, false
	}
	if d.MaxAmplitude != nil && a.peakVal > *d.MaxAmplitude {
		return rawPulse{}, false
	}
	return rawPulse{sampleIndex: a.steepestRiseIdx, amplitude: a.peakVal}, true
}
