package transport

// Transport defines a generic interface for publishing live detection data (pop events, status
// frames). Implementations must be safe for concurrent use and must not block the caller for
// long: the live pipeline calls Send from its block-owner goroutine.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans a message out to several transports. Send reports the first error but still
// delivers to the remaining transports.
type Multi []Transport

// Send delivers data to every transport.
func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every transport and reports the first error.
func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi(nil)
