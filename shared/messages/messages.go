// Package messages defines the game's wire catalog: every message the client
// and server exchange, plus the codec that puts them on the wire. It must have
// zero dependencies on the transport or any graphics library so both binaries
// and the tests can share it.
package messages

// GameVersion is carried in every Connect request. The server refuses peers
// built against a different protocol revision.
const GameVersion uint32 = 0

// Virtual stream ids. Streams scope ordering and sequencing on the transport,
// so input traffic can never stall behind state traffic. Chat and voice are
// reserved for traffic that does not exist yet.
const (
	StreamInput     uint8 = 0
	StreamGameState uint8 = 1
	StreamChat      uint8 = 2
	StreamVoice     uint8 = 3
)
