// Package dispatch routes resolved intents to their handlers.
//
// Every intent the assistant understands is a [Tag]. A [Dispatcher] holds a
// table from tag to [Handler] built once at construction; [Validate] compares
// that table with the tags of the training corpus at startup.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Tag is an intent tag.
type Tag string

// Intent tags.
const (
	TagTime            Tag = "time"
	TagDate            Tag = "date"
	TagDay             Tag = "day"
	TagUptime          Tag = "uptime"
	TagCPU             Tag = "cpu"
	TagRAM             Tag = "ram"
	TagDisk            Tag = "disk"
	TagBattery         Tag = "battery"
	TagTemperature     Tag = "temperature"
	TagNetwork         Tag = "network"
	TagIP              Tag = "ip"
	TagHostname        Tag = "hostname"
	TagVolumeUp        Tag = "volume_up"
	TagVolumeDown      Tag = "volume_down"
	TagMute            Tag = "mute"
	TagBrightnessUp    Tag = "brightness_up"
	TagBrightnessDown  Tag = "brightness_down"
	TagOpenCamera      Tag = "open_camera"
	TagTakePhoto       Tag = "take_photo"
	TagRecordVideo     Tag = "record_video"
	TagRecordAudio     Tag = "record_audio"
	TagOpenBrowser     Tag = "open_browser"
	TagShutdown        Tag = "shutdown"
	TagRestart         Tag = "restart"
	TagAssistantName   Tag = "assistant_name"
	TagAssistantStatus Tag = "assistant_status"
	TagHistory         Tag = "history"
	TagIndianHistory   Tag = "indian_history"
	TagPolitics        Tag = "politics"
	TagWorldGK         Tag = "world_gk"
	TagIndiaGK         Tag = "india_gk"
	TagExit            Tag = "exit"
)

// AllTags lists every known tag.
var AllTags = []Tag{
	TagTime, TagDate, TagDay, TagUptime, TagCPU, TagRAM, TagDisk, TagBattery,
	TagTemperature, TagNetwork, TagIP, TagHostname,
	TagVolumeUp, TagVolumeDown, TagMute, TagBrightnessUp, TagBrightnessDown,
	TagOpenCamera, TagTakePhoto, TagRecordVideo, TagRecordAudio, TagOpenBrowser,
	TagShutdown, TagRestart,
	TagAssistantName, TagAssistantStatus,
	TagHistory, TagIndianHistory, TagPolitics, TagWorldGK, TagIndiaGK,
	TagExit,
}

// IsValid reports whether t is a known tag.
func (t Tag) IsValid() bool { return slices.Contains(AllTags, t) }

// Request is what a handler receives.
type Request struct {
	// Tag is the resolved intent.
	Tag Tag

	// Text is the utterance as recognised.
	Text string
}

// Response is what the assistant does after a handler ran.
type Response struct {
	// Text is spoken to the user. When Fallback is set it is only spoken if
	// the generative fallback produces nothing.
	Text string

	// Fallback asks the caller to answer the utterance generatively.
	Fallback bool

	// Stop ends the turn loop after Text has been spoken.
	Stop bool
}

// Handler answers one intent.
type Handler func(ctx context.Context, req Request) (Response, error)

// Dispatcher maps tags to handlers. It is read-only after construction and
// safe for concurrent use.
type Dispatcher struct {
	handlers map[Tag]Handler
}

// New creates a Dispatcher from handlers. Nil handlers are dropped.
func New(handlers map[Tag]Handler) *Dispatcher {
	d := &Dispatcher{handlers: make(map[Tag]Handler, len(handlers))}
	for tag, h := range handlers {
		if h != nil {
			d.handlers[tag] = h
		}
	}
	return d
}

// Tags returns the tags with a handler, sorted.
func (d *Dispatcher) Tags() []Tag {
	tags := make([]Tag, 0, len(d.handlers))
	for t := range d.handlers {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// Handles reports whether tag has a handler.
func (d *Dispatcher) Handles(tag Tag) bool {
	_, ok := d.handlers[tag]
	return ok
}

// Dispatch runs the handler for tag. A tag without a handler asks for the
// generative fallback.
func (d *Dispatcher) Dispatch(ctx context.Context, tag Tag, text string) (Response, error) {
	h, ok := d.handlers[tag]
	if !ok {
		return Response{Fallback: true}, nil
	}
	resp, err := h(ctx, Request{Tag: tag, Text: text})
	if err != nil {
		return Response{}, fmt.Errorf("dispatch: %s: %w", tag, err)
	}
	return resp, nil
}

// Validate compares the corpus tags with the handler table. It reports every
// corpus tag that has no handler and every handler whose tag never appears
// in the corpus.
func Validate(corpusTags []string, d *Dispatcher) error {
	var errs []error
	seen := make(map[Tag]bool, len(corpusTags))
	for _, raw := range corpusTags {
		tag := Tag(raw)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		if !d.Handles(tag) {
			errs = append(errs, fmt.Errorf("dispatch: corpus tag %q has no handler", tag))
		}
	}
	for _, tag := range d.Tags() {
		if !seen[tag] {
			errs = append(errs, fmt.Errorf("dispatch: handler %q has no corpus tag", tag))
		}
	}
	return errors.Join(errs...)
}
