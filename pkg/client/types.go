// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// GenerateRequest creates a new slide.
type GenerateRequest struct {
	// Prompt describes the slide to create. Required.
	Prompt string `json:"prompt"`

	// Image is an optional reference image as a data URL or bare base64.
	Image string `json:"image,omitempty"`
}

// EditRequest edits one slide file.
type EditRequest struct {
	// Prompt is the change to make. Required.
	Prompt string `json:"prompt"`

	// FilePath is the slide file, relative to the project root. Required.
	FilePath string `json:"filePath"`

	// SessionID resumes an earlier conversation about this file.
	SessionID string `json:"sessionId,omitempty"`
}

// EditDesignSystemRequest edits the design system.
type EditDesignSystemRequest struct {
	// Prompt is the change to make. Required.
	Prompt string `json:"prompt"`

	// SessionID resumes an earlier design-system conversation. Without it the
	// server sends the prompt that lists the design-system files.
	SessionID string `json:"sessionId,omitempty"`

	// Images are optional reference images as data URLs or bare base64.
	Images []string `json:"images,omitempty"`
}

// CreateDesignSystemRequest designs a new design system.
type CreateDesignSystemRequest struct {
	// Description of the look to create. Required.
	Description string `json:"description"`

	// URLs of reference sites.
	URLs []string `json:"urls,omitempty"`

	// Images are inline reference images (data URLs or bare base64).
	Images []string `json:"images,omitempty"`

	// ImagePaths are reference images already in the project, relative to its root.
	ImagePaths []string `json:"imagePaths,omitempty"`

	// PlanOnly asks for a plan without writing any files.
	PlanOnly bool `json:"planOnly,omitempty"`
}

// AssessDesignSystemRequest starts a background assessment.
type AssessDesignSystemRequest struct {
	// Description of the intended design system. Required.
	Description string `json:"description"`

	// ImagePaths are reference images in the project, relative to its root.
	ImagePaths []string `json:"imagePaths,omitempty"`
}

type applyDesignSystemRequest struct {
	FileKey string `json:"fileKey"`
}

// Health is the server's liveness report.
type Health struct {
	OK bool `json:"ok"`

	// Generators is the number of generator processes currently running.
	Generators int `json:"generators"`

	// PIDs are their process ids.
	PIDs []int `json:"pids"`
}

// Event is a server event, such as a generation starting or design-system files
// changing on disk.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`

	// Type is the event type, e.g. "generation.finished" or "design_system.changed".
	Type string `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Item is the slide key or "design-system" the event concerns, if any.
	Item string `json:"item,omitempty"`

	// Payload holds event-specific data.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Event types.
const (
	EventGenerationStarted    = "generation.started"
	EventGenerationFinished   = "generation.finished"
	EventGenerationFailed     = "generation.failed"
	EventGenerationCancelled  = "generation.cancelled"
	EventDesignSystemChanged  = "design_system.changed"
	EventDesignSystemAssessed = "design_system.assessed"
)

// ListOptions configures event listing.
type ListOptions struct {
	// Limit is the maximum number of events to return (the most recent ones).
	Limit int

	// Types filters to these event type patterns (e.g. "generation.*").
	Types []string

	// Item filters to events about this slide key or "design-system".
	Item string

	// Since filters to events after this time.
	Since time.Time

	// Until filters to events before this time.
	Until time.Time
}
