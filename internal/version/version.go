package version

// Version is the current version of the duo client and signaling server.
// Release builds override it with:
//
//	go build -ldflags="-X 'github.com/kerry-okpere/ai-video-conferencing/internal/version.Version=v1.0.0'"
var Version = "dev"
