package channel

import "context"

// Message represents a message from a channel
type Message struct {
	ID        string
	Channel   string
	UserID    string
	Content   string
	Metadata  map[string]string
	Timestamp int64
}

// Response represents a response to send back to a channel
type Response struct {
	Content  string
	Metadata map[string]string
}

// Identity is a chat platform account as resolved by the transport.
type Identity struct {
	ID            uint64
	Name          string
	Discriminator string
}

// Tag renders the identity the way the platform displays it.
func (i *Identity) Tag() string {
	if i.Discriminator == "" {
		return i.Name
	}
	return i.Name + "#" + i.Discriminator
}

// ChannelAdapter is the interface for channel adapters
type ChannelAdapter interface {
	// Start starts the channel adapter
	Start(ctx context.Context) error

	// Stop stops the channel adapter
	Stop() error

	// SendMessage sends a message to the channel. When the response carries
	// a "channel_id" metadata entry the adapter replies there, otherwise it
	// falls back to a direct message to userID.
	SendMessage(userID string, resp *Response) error

	// Incoming returns a channel of incoming messages
	Incoming() <-chan *Message

	// Name returns the name of the channel adapter
	Name() string

	// IsEnabled returns whether the channel is enabled
	IsEnabled() bool
}

// IdentityResolver is implemented by adapters that can look up platform
// accounts by numeric ID. The lookup is network-bound: it may fail, or
// return (nil, nil) when no such account exists.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id uint64) (*Identity, error)
}
