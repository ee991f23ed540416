package notifyrpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "nexusboard.notify.v1.NotifyService"
	// NotifyBoardMethod is the full method name seen by interceptors.
	NotifyBoardMethod = "/" + ServiceName + "/NotifyBoard"
)

// NotifyRequest asks the gateway to broadcast a boardEvent to every member
// of BoardID.
type NotifyRequest struct {
	BoardID string          `json:"boardId"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NotifyResponse reports how many members the event was sent to.
type NotifyResponse struct {
	OK        bool `json:"ok"`
	Delivered int  `json:"delivered"`
}

// NotifyServer is the server API for NotifyService.
type NotifyServer interface {
	NotifyBoard(context.Context, *NotifyRequest) (*NotifyResponse, error)
}

// RegisterNotifyServer registers srv on s.
func RegisterNotifyServer(s grpc.ServiceRegistrar, srv NotifyServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func notifyBoardHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(NotifyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotifyServer).NotifyBoard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: NotifyBoardMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NotifyServer).NotifyBoard(ctx, req.(*NotifyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc for NotifyService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NotifyServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "NotifyBoard",
			Handler:    notifyBoardHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "nexusboard/notify/v1",
}

// NotifyClient is the client API for NotifyService.
type NotifyClient interface {
	NotifyBoard(ctx context.Context, in *NotifyRequest, opts ...grpc.CallOption) (*NotifyResponse, error)
}

type notifyClient struct {
	cc grpc.ClientConnInterface
}

// NewNotifyClient returns a NotifyClient over cc.
func NewNotifyClient(cc grpc.ClientConnInterface) NotifyClient {
	return &notifyClient{cc: cc}
}

func (c *notifyClient) NotifyBoard(ctx context.Context, in *NotifyRequest, opts ...grpc.CallOption) (*NotifyResponse, error) {
	out := new(NotifyResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, NotifyBoardMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
