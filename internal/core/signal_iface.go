package core

// Frame is a raw encoded message.
type Frame []byte

// ConnID identifies one client connection (the client token).
type ConnID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
