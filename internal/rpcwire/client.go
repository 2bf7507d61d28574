package rpcwire

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
)

// Dial connects to target using the sdrctl-json codec in place of the
// usual generated-proto codec, then performs the protocol-version
// handshake before returning.
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)))
	conn, err := grpc.DialContext(ctx, target, opts...)
	if err != nil {
		return nil, err
	}
	c := &Client{conn: conn}

	reply, err := c.handshake(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !reply.Compatible {
		conn.Close()
		return nil, fmt.Errorf("rpcwire: server protocol version %s is incompatible with client %s", reply.ServerVersion, ProtocolVersion)
	}
	return c, nil
}

// Client is a thin wrapper around a grpc.ClientConn speaking the
// hand-written Call/Subscribe/VfoSubscribe methods.
type Client struct {
	conn *grpc.ClientConn
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) handshake(ctx context.Context) (*HandshakeReply, error) {
	req := &HandshakeRequest{ClientVersion: ProtocolVersion}
	reply := new(HandshakeReply)
	err := c.conn.Invoke(ctx, "/"+ServiceName+"/Handshake", req, reply)
	return reply, err
}

// Call invokes method with params and decodes the result into result
// (pass nil if the method has no result payload). Returns the façade's
// ErrorKind outcome even on success, so callers can check it the same way
// a direct façade caller would.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) (int32, string, error) {
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return 0, "", err
		}
		raw = encoded
	}
	req := &CallRequest{Method: method, Params: raw}
	reply := new(CallReply)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Call", req, reply); err != nil {
		return 0, "", err
	}
	if result != nil && len(reply.Result) > 0 {
		if err := json.Unmarshal(reply.Result, result); err != nil {
			return reply.Code, reply.CodeName, err
		}
	}
	return reply.Code, reply.CodeName, nil
}

// Subscribe opens the receiver-scope event stream and returns a channel
// of decoded envelopes; the channel closes when ctx is cancelled or the
// stream ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan EventEnvelope, error) {
	desc := &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, "/"+ServiceName+"/Subscribe")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&SubscribeRequest{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	out := make(chan EventEnvelope, 64)
	go func() {
		defer close(out)
		for {
			env := new(EventEnvelope)
			if err := stream.RecvMsg(env); err != nil {
				return
			}
			select {
			case out <- *env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// VfoSubscribe is Subscribe's VFO-scope counterpart.
func (c *Client) VfoSubscribe(ctx context.Context, handle uint64) (<-chan EventEnvelope, error) {
	desc := &grpc.StreamDesc{StreamName: "VfoSubscribe", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, "/"+ServiceName+"/VfoSubscribe")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&VfoSubscribeRequest{Handle: handle}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	out := make(chan EventEnvelope, 64)
	go func() {
		defer close(out)
		for {
			env := new(EventEnvelope)
			if err := stream.RecvMsg(env); err != nil {
				return
			}
			select {
			case out <- *env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
