// Package audio handles microphone discovery and selection, PCM capture at
// the fixed recording profile, and chunk accumulation.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
	// Monitor marks a sink monitor: it records playback, not a microphone.
	Monitor bool
}

// unusable reports why d cannot record, or "" when it can.
func (d Device) unusable() string {
	switch {
	case !d.Available:
		return "unavailable"
	case d.Muted:
		return "muted"
	default:
		return ""
	}
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("scancap"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns every Pulse input source, monitors included.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var replies pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &replies); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(replies))
	for _, reply := range replies {
		if reply == nil {
			continue
		}
		devices = append(devices, deviceFromReply(reply, defaultSource.ID()))
	}
	return devices, nil
}

func deviceFromReply(reply *pulseproto.GetSourceInfoReply, defaultID string) Device {
	return Device{
		ID:          reply.SourceName,
		Description: reply.Device,
		State:       sourceStateString(reply.State),
		Available:   sourceAvailable(reply),
		Muted:       reply.Mute,
		Default:     reply.SourceName == defaultID,
		Monitor:     strings.HasSuffix(reply.SourceName, ".monitor"),
	}
}

// SelectDevice resolves audio.input/audio.fallback preferences against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList picks the preferred input when it can record and the
// fallback otherwise. "default" (or empty) names the server default source.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	primary, err := resolveDevice(devices, input)
	if err != nil {
		return Selection{}, fmt.Errorf("audio.input: %w", err)
	}
	reason := primary.unusable()
	if reason == "" {
		return Selection{Device: primary}, nil
	}

	backup, err := resolveDevice(devices, fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("primary input %q is %s and audio.fallback: %w", primary.ID, reason, err)
	}
	if backupReason := backup.unusable(); backupReason != "" {
		return Selection{}, fmt.Errorf("audio fallback device %q is %s", backup.ID, backupReason)
	}

	return Selection{
		Device:   backup,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, backup.ID),
		Fallback: backup.ID != primary.ID,
	}, nil
}

// resolveDevice maps one preference onto a device. An exact ID wins over a
// substring match on ID or description; monitors only match by exact ID.
func resolveDevice(devices []Device, preference string) (Device, error) {
	term := strings.ToLower(strings.TrimSpace(preference))
	if term == "" || term == "default" {
		for _, d := range devices {
			if d.Default {
				return d, nil
			}
		}
		return Device{}, errors.New("default audio source is unavailable")
	}

	for _, d := range devices {
		if strings.ToLower(d.ID) == term {
			return d, nil
		}
	}
	for _, d := range devices {
		if !d.Monitor && deviceMatches(d, term) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%q did not match any device", preference)
}

// deviceMatches reports whether a lowercase term is a substring of a
// device's ID or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable is true unless the active port reports "no" (1).
// Sources without ports are always available.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available != 1
		}
	}
	return true
}
