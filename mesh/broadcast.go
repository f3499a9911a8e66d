package mesh

import (
	"fmt"
	"strings"
)

// FormatMessage renders an authored message the way it travels on the wire,
// without the line terminator.
func FormatMessage(identity, text string) string {
	return fmt.Sprintf("%s: %s", identity, text)
}

// normalizeText trims text and folds embedded line breaks into spaces so one
// authored message is always exactly one frame.
func normalizeText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.ContainsAny(text, "\r\n") {
		return text
	}
	return strings.Join(strings.FieldsFunc(text, func(r rune) bool {
		return r == '\r' || r == '\n'
	}), " ")
}

// Broadcast writes "identity: text" followed by a newline to every peer in a
// snapshot of the registry, then echoes the line to the sink.  A failed write
// is logged and does not stop delivery to the remaining peers; the failing
// peer is left for its reader to deregister.  Empty or whitespace-only text
// is ignored.  It returns the number of peers written to.
func (n *Node) Broadcast(text, identity string) int {
	text = normalizeText(text)
	if text == "" {
		return 0
	}

	line := FormatMessage(identity, text)
	frame := []byte(line + "\n")

	var sent int
	for _, pc := range n.registry.Snapshot() {
		if err := pc.write(frame); err != nil {
			log.Warnf("Failed to send message to %s: %v", pc.addr, err)
			n.notice("[error] failed to send to %s: %v", pc.addr, err)
			continue
		}
		sent++
	}
	log.Tracef("Broadcast to %d peer(s): %q", sent, line)

	n.cfg.Sink.Append(line)
	return sent
}
