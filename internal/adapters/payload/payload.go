// Package payload encodes and decodes the JSON heartbeat message shared by
// the MQTT and Redis Streams transports:
//
//	{"device_id": "device_001", "timestamp": 1735725600}
//
// timestamp is epoch seconds (integer or fractional) or an RFC3339 string.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"uptimeboard/internal/core/domain"
)

// TopicPrefix is the MQTT topic family heartbeats are published under.
const TopicPrefix = "device/heartbeat"

var (
	// ErrMissingDeviceID is returned when neither the body nor the topic names a device.
	ErrMissingDeviceID = errors.New("payload: missing device_id")

	// ErrBadTimestamp is returned for timestamps that are neither numbers nor RFC3339.
	ErrBadTimestamp = errors.New("payload: unparseable timestamp")
)

// Message is the wire form of a heartbeat.
type Message struct {
	DeviceID  string          `json:"device_id"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// Decode parses data into a heartbeat. fallbackID is used when the body has
// no device_id; received is used when it has no timestamp.
func Decode(data []byte, fallbackID string, received time.Time) (domain.Heartbeat, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Heartbeat{}, fmt.Errorf("payload: %w", err)
	}

	id := strings.TrimSpace(msg.DeviceID)
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		return domain.Heartbeat{}, ErrMissingDeviceID
	}

	ts := received.UTC()
	raw := bytes.TrimSpace(msg.Timestamp)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var err error
		if ts, err = ParseTimestamp(raw); err != nil {
			return domain.Heartbeat{}, err
		}
	}

	return domain.NewHeartbeat(id, ts)
}

// ParseTimestamp accepts a JSON number of epoch seconds or a JSON string
// holding RFC3339 or epoch seconds.
func ParseTimestamp(raw []byte) (time.Time, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrBadTimestamp, err)
		}
		return ParseTimestampString(s)
	}
	return parseEpoch(string(raw))
}

// ParseTimestampString accepts RFC3339 or epoch seconds.
func ParseTimestampString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return parseEpoch(s)
}

func parseEpoch(s string) (time.Time, error) {
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	sec, frac := math.Modf(f)
	// microsecond rounding keeps float noise out of the nanoseconds
	nsec := int64(math.Round(frac*1e6)) * int64(time.Microsecond)
	return time.Unix(int64(sec), nsec).UTC(), nil
}

// Encode renders hb as a Message. Whole-second timestamps are written as
// integers, anything finer as fractional seconds.
func Encode(hb domain.Heartbeat) ([]byte, error) {
	var ts string
	if hb.Timestamp.Nanosecond() == 0 {
		ts = strconv.FormatInt(hb.Timestamp.Unix(), 10)
	} else {
		f := float64(hb.Timestamp.UnixNano()) / float64(time.Second)
		ts = strconv.FormatFloat(f, 'f', 6, 64)
	}
	return json.Marshal(Message{DeviceID: hb.DeviceID, Timestamp: json.RawMessage(ts)})
}

// DeviceIDFromTopic returns <id> for topics of the form device/heartbeat/<id>
// and "" for anything else, including the bare prefix.
func DeviceIDFromTopic(topic string) string {
	rest, ok := strings.CutPrefix(topic, TopicPrefix+"/")
	if !ok || rest == "" {
		return ""
	}
	if i := strings.LastIndexByte(rest, '/'); i >= 0 {
		rest = rest[i+1:]
	}
	return rest
}

// Topic is the per-device publish topic.
func Topic(deviceID string) string {
	return TopicPrefix + "/" + deviceID
}
