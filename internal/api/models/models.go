// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/boardnode/internal/board"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// LED models

// LEDLine is the state of one LED.
type LEDLine struct {
	Bit  int    `json:"bit" example:"0" doc:"Bit of the bank value carried by this LED"`
	Name string `json:"name" example:"GPIO_GREEN1" doc:"Line name"`
	On   bool   `json:"on" example:"true" doc:"Whether the LED is lit"`
}

// LEDData is the LED bank as read through the device.
type LEDData struct {
	Value  uint8     `json:"value" example:"6" minimum:"0" maximum:"63" doc:"LED bank value"`
	Binary string    `json:"binary" example:"000110" doc:"Value as six bits, most significant first"`
	Lines  []LEDLine `json:"lines" doc:"Per-LED state, bit 0 first"`
}

type LEDResponse struct {
	Body LEDData
}

// LEDWriteRequest writes one byte to the LED device. Bits 7..6 select the
// mode (00 absolute, 01 set bits, 10 clear bits) and bits 5..0 the mask.
type LEDWriteRequest struct {
	Body struct {
		Value uint8 `json:"value" example:"66" minimum:"0" maximum:"255" doc:"Raw byte written to the LED device"`
	}
}

// Speaker models

// SpeakerWriteRequest writes to the speaker device. The first character is
// the written byte: "0" turns the speaker off, anything else on.
type SpeakerWriteRequest struct {
	Body struct {
		Value string `json:"value" example:"1" minLength:"1" doc:"Byte written to the speaker device; \"0\" turns it off"`
	}
}

type SpeakerData struct {
	On bool `json:"on" example:"true" doc:"Whether the speaker line is driven high"`
}

type SpeakerResponse struct {
	Body SpeakerData
}

// Button models

type PressRequest struct {
	Button string `path:"button" example:"button1" doc:"Button to press"`
}

type PressData struct {
	Button  string `json:"button" example:"button1" doc:"Button that was pressed"`
	Message string `json:"message" example:"edge delivered" doc:"Outcome; the button action runs asynchronously"`
}

type PressResponse struct {
	Body PressData
}

// Board models

type BoardResponse struct {
	Body board.Info
}

// Logging models

type LogLevelsData struct {
	Levels map[string]string `json:"levels" example:"{\"board\":\"info\",\"debounce\":\"debug\"}" doc:"Effective level of every module logger"`
}

type LogLevelsResponse struct {
	Body LogLevelsData
}
