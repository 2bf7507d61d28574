package rpcwire

import (
	"github.com/hashicorp/go-version"
)

// ProtocolVersion is the current wire-protocol version this server
// implements. Bumped whenever CallRequest/CallReply or an event
// envelope's shape changes in an incompatible way.
const ProtocolVersion = "1.0.0"

// compatConstraint is the range of client protocol versions this server
// accepts. Widened deliberately past an exact-match check so older
// 1.x clients aren't locked out by a patch-level server bump.
var compatConstraint = version.MustConstraints(version.NewConstraint(">= 1.0.0, < 2.0.0"))

// Handshake validates a client's stated protocol version against this
// server's compatibility range, per SPEC_FULL.md §3's version-handshake
// addition to the RPC boundary.
func Handshake(req HandshakeRequest) (HandshakeReply, error) {
	reply := HandshakeReply{ServerVersion: ProtocolVersion}

	clientVer, err := version.NewVersion(req.ClientVersion)
	if err != nil {
		return reply, nil // malformed version: reply with Compatible=false, not a transport error
	}
	reply.Compatible = compatConstraint.Check(clientVer)
	return reply, nil
}
