package transport

import (
	"errors"

	"github.com/pion/webrtc/v4"
)

// ErrNoMedia means the connection cannot carry a media stream (chat-only
// peers, in-process test connections).
var ErrNoMedia = errors.New("connection does not carry media")

// MediaSource is the host's capture of the shared file or screen.
type MediaSource interface {
	Track() webrtc.TrackLocal
}

type mediaCarrier interface {
	attachTrack(webrtc.TrackLocal) (*webrtc.RTPSender, error)
	detachTrack(*webrtc.RTPSender) error
}

// AttachOutboundMedia adds the host's capture track to an existing
// connection. It is separate from Open because not every connection
// carries media.
func AttachOutboundMedia(c Connection, src MediaSource) (*webrtc.RTPSender, error) {
	mc, ok := c.(mediaCarrier)
	if !ok {
		return nil, ErrNoMedia
	}
	return mc.attachTrack(src.Track())
}

// DetachOutboundMedia stops sending a previously attached track.
func DetachOutboundMedia(c Connection, sender *webrtc.RTPSender) error {
	mc, ok := c.(mediaCarrier)
	if !ok {
		return ErrNoMedia
	}
	return mc.detachTrack(sender)
}

func (c *rtcConn) attachTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return c.pc.AddTrack(track)
}

func (c *rtcConn) detachTrack(sender *webrtc.RTPSender) error {
	return c.pc.RemoveTrack(sender)
}
