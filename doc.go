// Package srsrtc publishes and plays WebRTC streams through the HTTP
// signaling API of an SRS media server.
//
// A Publisher sends the first video and audio track of a MediaSource to
// /rtc/v1/publish/; a Player receives a stream from /rtc/v1/play/ and exposes
// its inbound tracks through a MediaStream. Both hold at most one peer
// connection: a new Publish or Play closes the previous one, Dispose closes
// it for good.
//
//	pub := srsrtc.NewPublisher(srsrtc.Option{IP: "203.0.113.5", Stream: "cam1"})
//	defer pub.Dispose()
//	if err := pub.Publish(ctx, srsrtc.NewLocalStream(video, audio)); err != nil {
//		return err
//	}
package srsrtc
