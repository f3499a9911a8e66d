package mesh

// Sink receives display lines: chat lines read from the network, the local
// echo of authored messages and connection status notices.  Implementations
// must be safe for concurrent use since every connection reader calls Append
// from its own goroutine.
type Sink interface {
	Append(line string)
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(line string)

// Append calls f(line).
func (f SinkFunc) Append(line string) {
	f(line)
}

// DiscardSink drops every line.
var DiscardSink Sink = SinkFunc(func(string) {})
