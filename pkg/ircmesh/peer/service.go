package peer

import (
	"context"

	"google.golang.org/grpc"
)

// ResyncRequest asks a peer to replay every event its log holds that is not
// yet reflected in Since, the clock the requester already has.
type ResyncRequest struct {
	Since wireClock `json:"since"`
}

const (
	serviceName = "ircmesh.peer.Peer"
	methodEventStream = "EventStream"
	methodResync = "Resync"
)

// PeerServer is implemented by a node's peer-transport listener: one
// EventStream per established peer link, carrying the ongoing gossip of
// newly-applied events, and a Resync handler for a peer catching itself up
// after a reconnect.
type PeerServer interface {
	EventStream(EventStreamServer) error
	Resync(*ResyncRequest, ResyncServer) error
}

// EventStreamServer is the server-side handle on a bidirectional
// EventStream: either side may Send at any time, and Recv blocks until the
// other side sends or closes.
type EventStreamServer interface {
	Send(*wireEvent) error
	Recv() (*wireEvent, error)
	Context() context.Context
}

// ResyncServer is the server-side handle on the Resync server-stream: the
// server Sends every backlog event, the client never sends anything back.
type ResyncServer interface {
	Send(*wireEvent) error
	Context() context.Context
}

type eventStreamServer struct {
	grpc.ServerStream
}

func (s *eventStreamServer) Send(e *wireEvent) error { return s.ServerStream.SendMsg(e) }
func (s *eventStreamServer) Recv() (*wireEvent, error) {
	var e wireEvent
	if err := s.ServerStream.RecvMsg(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

type resyncServer struct {
	grpc.ServerStream
}

func (s *resyncServer) Send(e *wireEvent) error { return s.ServerStream.SendMsg(e) }

func eventStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(PeerServer).EventStream(&eventStreamServer{stream})
}

func resyncHandler(srv interface{}, stream grpc.ServerStream) error {
	var req ResyncRequest
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}
	return srv.(PeerServer).Resync(&req, &resyncServer{stream})
}

// ServiceDesc is the hand-rolled equivalent of what protoc-gen-go-grpc would
// generate from a peer.proto — see codec.go for why no .proto file exists in
// this repo. RegisterPeerServer wires it up the same way generated code's
// RegisterXxxServer helper would.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PeerServer)(nil),
	Methods: []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName: methodEventStream,
			Handler: eventStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
		{
			StreamName: methodResync,
			Handler: resyncHandler,
			ServerStreams: true,
			ClientStreams: false,
		},
	},
}

// RegisterPeerServer registers srv against s the way a generated
// RegisterPeerServer function would.
func RegisterPeerServer(s *grpc.Server, srv PeerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// PeerClient is the client-side stub for the Peer service, dialled once per
// configured peer.
type PeerClient interface {
	EventStream(ctx context.Context, opts ...grpc.CallOption) (EventStreamClient, error)
	Resync(ctx context.Context, in *ResyncRequest, opts ...grpc.CallOption) (ResyncClient, error)
}

// EventStreamClient is the client-side handle on the bidirectional
// EventStream RPC.
type EventStreamClient interface {
	Send(*wireEvent) error
	Recv() (*wireEvent, error)
	grpc.ClientStream
}

// ResyncClient is the client-side handle on the Resync server-stream RPC.
type ResyncClient interface {
	Recv() (*wireEvent, error)
	grpc.ClientStream
}

type peerClient struct {
	cc *grpc.ClientConn
}

// NewPeerClient builds a PeerClient bound to cc, the way a generated
// NewPeerClient constructor would.
func NewPeerClient(cc *grpc.ClientConn) PeerClient {
	return &peerClient{cc: cc}
}

func (c *peerClient) EventStream(ctx context.Context, opts ...grpc.CallOption) (EventStreamClient, error) {
	opts = append(opts, grpc.CallContentSubtype(codecName))
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod(methodEventStream), opts...)
	if err != nil {
		return nil, err
	}
	return &eventStreamClient{stream}, nil
}

func (c *peerClient) Resync(ctx context.Context, in *ResyncRequest, opts ...grpc.CallOption) (ResyncClient, error) {
	opts = append(opts, grpc.CallContentSubtype(codecName))
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[1], fullMethod(methodResync), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &resyncClient{stream}, nil
}

type eventStreamClient struct {
	grpc.ClientStream
}

func (c *eventStreamClient) Send(e *wireEvent) error { return c.ClientStream.SendMsg(e) }
func (c *eventStreamClient) Recv() (*wireEvent, error) {
	var e wireEvent
	if err := c.ClientStream.RecvMsg(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

type resyncClient struct {
	grpc.ClientStream
}

func (c *resyncClient) Recv() (*wireEvent, error) {
	var e wireEvent
	if err := c.ClientStream.RecvMsg(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}
