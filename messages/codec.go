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

package messages

import (
	"encoding/json"
	"fmt"
)

// SchemaID is the short tag every envelope carries ahead of its payload, in
// the same spirit as the flatbuffers schema names used by the upstream
// streaming-types definitions this pipeline was distilled from (da00,
// f144, se00, al00, ...). The pipeline itself treats the bytes beyond the
// tag as opaque JSON; only the tag is inspected before dispatch.
type SchemaID string

const (
	SchemaDigitizerAnalogTrace    SchemaID = "da00"
	SchemaDigitiserEventList      SchemaID = "de00"
	SchemaFrameAssembledEventList SchemaID = "fe00"
	SchemaRunStart                SchemaID = "rs00"
	SchemaRunStop                 SchemaID = "rp00"
	SchemaLogData                 SchemaID = "f144"
	SchemaSampleEnvData           SchemaID = "se00"
	SchemaAlarm                   SchemaID = "al00"
)

// envelope is the on-the-wire framing: a schema tag plus a raw payload,
// deferring payload decode until the tag says what type to decode into.
type envelope struct {
	SchemaID SchemaID        `json:"schema_id"`
	Payload  json.RawMessage `json:"payload"`
}

// Encode wraps payload in an envelope tagged with schemaID.
func Encode(schemaID SchemaID, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("messages: encoding %s payload: %w", schemaID, err)
	}
	return json.Marshal(envelope{SchemaID: schemaID, Payload: body})
}

// PeekSchemaID reports the schema tag of an encoded envelope without
// decoding its payload, so a consumer can dispatch on it (spec §5's
// per-message-kind handler selection).
func PeekSchemaID(data []byte) (SchemaID, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return "", fmt.Errorf("messages: reading schema id: %w", err)
	}
	if e.SchemaID == "" {
		return "", fmt.Errorf("messages: envelope missing schema_id")
	}
	return e.SchemaID, nil
}

// decode unwraps the envelope and checks its tag matches want before
// unmarshalling the payload into out.
func decode(data []byte, want SchemaID, out interface{}) error {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("messages: reading envelope: %w", err)
	}
	if e.SchemaID != want {
		return fmt.Errorf("messages: schema mismatch: got %q, want %q", e.SchemaID, want)
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("messages: decoding %s payload: %w", want, err)
	}
	return nil
}

// DecodeDigitizerAnalogTrace decodes a da00 envelope.
func DecodeDigitizerAnalogTrace(data []byte) (DigitizerAnalogTraceMessage, error) {
	var m DigitizerAnalogTraceMessage
	err := decode(data, SchemaDigitizerAnalogTrace, &m)
	return m, err
}

// DecodeDigitiserEventList decodes a de00 envelope.
func DecodeDigitiserEventList(data []byte) (DigitiserEventListMessage, error) {
	var m DigitiserEventListMessage
	err := decode(data, SchemaDigitiserEventList, &m)
	return m, err
}

// DecodeFrameAssembledEventList decodes an fe00 envelope.
func DecodeFrameAssembledEventList(data []byte) (FrameAssembledEventListMessage, error) {
	var m FrameAssembledEventListMessage
	err := decode(data, SchemaFrameAssembledEventList, &m)
	return m, err
}

// DecodeRunStart decodes an rs00 envelope.
func DecodeRunStart(data []byte) (RunStart, error) {
	var m RunStart
	err := decode(data, SchemaRunStart, &m)
	return m, err
}

// DecodeRunStop decodes an rp00 envelope.
func DecodeRunStop(data []byte) (RunStop, error) {
	var m RunStop
	err := decode(data, SchemaRunStop, &m)
	return m, err
}

// DecodeLogData decodes an f144 envelope.
func DecodeLogData(data []byte) (LogData, error) {
	var m LogData
	err := decode(data, SchemaLogData, &m)
	return m, err
}

// DecodeSampleEnvData decodes an se00 envelope.
func DecodeSampleEnvData(data []byte) (SampleEnvData, error) {
	var m SampleEnvData
	err := decode(data, SchemaSampleEnvData, &m)
	return m, err
}

// DecodeAlarm decodes an al00 envelope.
func DecodeAlarm(data []byte) (Alarm, error) {
	var m Alarm
	err := decode(data, SchemaAlarm, &m)
	return m, err
}
