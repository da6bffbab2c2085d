package messages

import (
	"fmt"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// ClientMessage is anything a client may send to the server. The interface is
// sealed so the codec carries exactly the kinds enumerated in this package.
type ClientMessage interface{ clientMessage() }

// ServerMessage is anything the server may send to a client.
type ServerMessage interface{ serverMessage() }

func (Connect) clientMessage()     {}
func (PlayerInput) clientMessage() {}

func (ConnectAck) serverMessage()    {}
func (NewPlayer) serverMessage()     {}
func (FullGameState) serverMessage() {}
func (LobbyTick) serverMessage()     {}

// Discriminant bytes, one space per direction. Bodies are msgpack.
const (
	kindConnect     byte = 1
	kindPlayerInput byte = 2

	kindConnectAck    byte = 1
	kindNewPlayer     byte = 2
	kindFullGameState byte = 3
	kindLobbyTick     byte = 4
)

// Handles are goroutine safe as long as nobody mutates them after init.
var msgpackHandle = &codec.MsgpackHandle{}

func encode(kind byte, body any) ([]byte, error) {
	var raw []byte
	if err := codec.NewEncoderBytes(&raw, msgpackHandle).Encode(body); err != nil {
		return nil, fmt.Errorf("encode message body: %w", err)
	}
	out := make([]byte, 0, len(raw)+1)
	out = append(out, kind)
	return append(out, raw...), nil
}

func decode(data []byte, out any) error {
	return codec.NewDecoderBytes(data, msgpackHandle).Decode(out)
}

// EncodeClient serializes a client-to-server message.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	switch m := msg.(type) {
	case Connect:
		return encode(kindConnect, m)
	case PlayerInput:
		return encode(kindPlayerInput, m)
	default:
		return nil, fmt.Errorf("unencodable client message %T", msg)
	}
}

// DecodeClient parses a client-to-server message. Unknown discriminants and
// truncated bodies come back as errors, never panics.
func DecodeClient(data []byte) (ClientMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty client message")
	}
	switch data[0] {
	case kindConnect:
		var m Connect
		if err := decode(data[1:], &m); err != nil {
			return nil, fmt.Errorf("decode connect: %w", err)
		}
		return m, nil
	case kindPlayerInput:
		var m PlayerInput
		if err := decode(data[1:], &m); err != nil {
			return nil, fmt.Errorf("decode player input: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown client message kind %d", data[0])
	}
}

// EncodeServer serializes a server-to-client message.
func EncodeServer(msg ServerMessage) ([]byte, error) {
	switch m := msg.(type) {
	case ConnectAck:
		return encode(kindConnectAck, m)
	case NewPlayer:
		return encode(kindNewPlayer, m)
	case FullGameState:
		return encode(kindFullGameState, m)
	case LobbyTick:
		return encode(kindLobbyTick, m)
	default:
		return nil, fmt.Errorf("unencodable server message %T", msg)
	}
}

// DecodeServer parses a server-to-client message.
func DecodeServer(data []byte) (ServerMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty server message")
	}
	switch data[0] {
	case kindConnectAck:
		var m ConnectAck
		if err := decode(data[1:], &m); err != nil {
			return nil, fmt.Errorf("decode connect ack: %w", err)
		}
		return m, nil
	case kindNewPlayer:
		var m NewPlayer
		if err := decode(data[1:], &m); err != nil {
			return nil, fmt.Errorf("decode new player: %w", err)
		}
		return m, nil
	case kindFullGameState:
		var m FullGameState
		if err := decode(data[1:], &m); err != nil {
			return nil, fmt.Errorf("decode full game state: %w", err)
		}
		return m, nil
	case kindLobbyTick:
		var m LobbyTick
		if err := decode(data[1:], &m); err != nil {
			return nil, fmt.Errorf("decode lobby tick: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown server message kind %d", data[0])
	}
}
