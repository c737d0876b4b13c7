package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeAuth         MessageType = "auth"
	MessageTypeListRooms    MessageType = "list_rooms"
	MessageTypeCreateRoom   MessageType = "create_room"
	MessageTypeJoinRoom     MessageType = "join_room"
	MessageTypeLeaveRoom    MessageType = "leave_room"
	MessageTypeStartGame    MessageType = "start_game"
	MessageTypeCloseRoom    MessageType = "close_room"
	MessageTypePlayerAction MessageType = "player_action"
	MessageTypeBalance      MessageType = "balance"
	MessageTypeTopPlayers   MessageType = "top_players"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeRoomList     MessageType = "room_list"
	MessageTypeRoomCreated  MessageType = "room_created"
	MessageTypeRoomJoined   MessageType = "room_joined"
	MessageTypeRoomLeft     MessageType = "room_left"
	MessageTypeNotice       MessageType = "notice"
	MessageTypeTurnPrompt   MessageType = "turn_prompt"
	MessageTypeHandResult   MessageType = "hand_result"
	MessageTypeError        MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
