package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "bulletinkeeper.BulletinService"

// AdminMethodPrefix prefixes the full method name of every operator RPC.
const AdminMethodPrefix = "/" + ServiceName + "/Admin"

// BulletinServiceServer is implemented by the gRPC front end.
type BulletinServiceServer interface {
	Ping(context.Context, *Empty) (*PingResponse, error)
	GetServerInformation(context.Context, *Empty) (*ResultResponse, error)
	AuthenticateServer(context.Context, *AuthenticateServerRequest) (*ResultResponse, error)
	RequestUploadRights(context.Context, *RequestUploadRightsRequest) (*CodeResponse, error)
	UploadBulletinChunk(context.Context, *ChunkUploadRequest) (*CodeResponse, error)
	PutBulletinChunk(context.Context, *ChunkUploadRequest) (*CodeResponse, error)
	GetBulletinChunk(context.Context, *GetBulletinChunkRequest) (*ChunkResponse, error)
	GetPacket(context.Context, *GetPacketRequest) (*PacketResponse, error)
	DownloadFieldDataPacket(context.Context, *DownloadFieldDataPacketRequest) (*PacketResponse, error)
	ListMySealedBulletinIDs(context.Context, *ListRequest) (*ResultResponse, error)
	ListMyDraftBulletinIDs(context.Context, *ListRequest) (*ResultResponse, error)
	ListFieldOfficeSealedBulletinIDs(context.Context, *ListRequest) (*ResultResponse, error)
	ListFieldOfficeDraftBulletinIDs(context.Context, *ListRequest) (*ResultResponse, error)
	ListFieldOfficeAccounts(context.Context, *ListRequest) (*ResultResponse, error)
	DeleteDraftBulletins(context.Context, *DeleteDraftsRequest) (*CodeResponse, error)
	PutContactInfo(context.Context, *PutContactInfoRequest) (*CodeResponse, error)
	GetContactInfo(context.Context, *GetContactInfoRequest) (*ResultResponse, error)
	GetNews(context.Context, *GetNewsRequest) (*ResultResponse, error)
	GetServerCompliance(context.Context, *Empty) (*ResultResponse, error)

	AdminAllowUploads(context.Context, *AllowUploadsRequest) (*Empty, error)
	AdminClearCanUploadList(context.Context, *Empty) (*Empty, error)
	AdminReloadConfiguration(context.Context, *Empty) (*Empty, error)
}

func unary[Req, Resp any](name string, call func(BulletinServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(BulletinServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BulletinServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", BulletinServiceServer.Ping),
		unary("GetServerInformation", BulletinServiceServer.GetServerInformation),
		unary("AuthenticateServer", BulletinServiceServer.AuthenticateServer),
		unary("RequestUploadRights", BulletinServiceServer.RequestUploadRights),
		unary("UploadBulletinChunk", BulletinServiceServer.UploadBulletinChunk),
		unary("PutBulletinChunk", BulletinServiceServer.PutBulletinChunk),
		unary("GetBulletinChunk", BulletinServiceServer.GetBulletinChunk),
		unary("GetPacket", BulletinServiceServer.GetPacket),
		unary("DownloadFieldDataPacket", BulletinServiceServer.DownloadFieldDataPacket),
		unary("ListMySealedBulletinIDs", BulletinServiceServer.ListMySealedBulletinIDs),
		unary("ListMyDraftBulletinIDs", BulletinServiceServer.ListMyDraftBulletinIDs),
		unary("ListFieldOfficeSealedBulletinIDs", BulletinServiceServer.ListFieldOfficeSealedBulletinIDs),
		unary("ListFieldOfficeDraftBulletinIDs", BulletinServiceServer.ListFieldOfficeDraftBulletinIDs),
		unary("ListFieldOfficeAccounts", BulletinServiceServer.ListFieldOfficeAccounts),
		unary("DeleteDraftBulletins", BulletinServiceServer.DeleteDraftBulletins),
		unary("PutContactInfo", BulletinServiceServer.PutContactInfo),
		unary("GetContactInfo", BulletinServiceServer.GetContactInfo),
		unary("GetNews", BulletinServiceServer.GetNews),
		unary("GetServerCompliance", BulletinServiceServer.GetServerCompliance),
		unary("AdminAllowUploads", BulletinServiceServer.AdminAllowUploads),
		unary("AdminClearCanUploadList", BulletinServiceServer.AdminClearCanUploadList),
		unary("AdminReloadConfiguration", BulletinServiceServer.AdminReloadConfiguration),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bulletinkeeper",
}

func RegisterBulletinServiceServer(s grpc.ServiceRegistrar, srv BulletinServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, name string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Ping(ctx context.Context, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c, "Ping", &Empty{}, opts...)
}

func (c *Client) GetServerInformation(ctx context.Context, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "GetServerInformation", &Empty{}, opts...)
}

func (c *Client) AuthenticateServer(ctx context.Context, in *AuthenticateServerRequest, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "AuthenticateServer", in, opts...)
}

func (c *Client) RequestUploadRights(ctx context.Context, in *RequestUploadRightsRequest, opts ...grpc.CallOption) (*CodeResponse, error) {
	return invoke[CodeResponse](ctx, c, "RequestUploadRights", in, opts...)
}

func (c *Client) UploadBulletinChunk(ctx context.Context, in *ChunkUploadRequest, opts ...grpc.CallOption) (*CodeResponse, error) {
	return invoke[CodeResponse](ctx, c, "UploadBulletinChunk", in, opts...)
}

func (c *Client) PutBulletinChunk(ctx context.Context, in *ChunkUploadRequest, opts ...grpc.CallOption) (*CodeResponse, error) {
	return invoke[CodeResponse](ctx, c, "PutBulletinChunk", in, opts...)
}

func (c *Client) GetBulletinChunk(ctx context.Context, in *GetBulletinChunkRequest, opts ...grpc.CallOption) (*ChunkResponse, error) {
	return invoke[ChunkResponse](ctx, c, "GetBulletinChunk", in, opts...)
}

func (c *Client) GetPacket(ctx context.Context, in *GetPacketRequest, opts ...grpc.CallOption) (*PacketResponse, error) {
	return invoke[PacketResponse](ctx, c, "GetPacket", in, opts...)
}

func (c *Client) DownloadFieldDataPacket(ctx context.Context, in *DownloadFieldDataPacketRequest, opts ...grpc.CallOption) (*PacketResponse, error) {
	return invoke[PacketResponse](ctx, c, "DownloadFieldDataPacket", in, opts...)
}

func (c *Client) ListMySealedBulletinIDs(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "ListMySealedBulletinIDs", in, opts...)
}

func (c *Client) ListMyDraftBulletinIDs(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "ListMyDraftBulletinIDs", in, opts...)
}

func (c *Client) ListFieldOfficeSealedBulletinIDs(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "ListFieldOfficeSealedBulletinIDs", in, opts...)
}

func (c *Client) ListFieldOfficeDraftBulletinIDs(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "ListFieldOfficeDraftBulletinIDs", in, opts...)
}

func (c *Client) ListFieldOfficeAccounts(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "ListFieldOfficeAccounts", in, opts...)
}

func (c *Client) DeleteDraftBulletins(ctx context.Context, in *DeleteDraftsRequest, opts ...grpc.CallOption) (*CodeResponse, error) {
	return invoke[CodeResponse](ctx, c, "DeleteDraftBulletins", in, opts...)
}

func (c *Client) PutContactInfo(ctx context.Context, in *PutContactInfoRequest, opts ...grpc.CallOption) (*CodeResponse, error) {
	return invoke[CodeResponse](ctx, c, "PutContactInfo", in, opts...)
}

func (c *Client) GetContactInfo(ctx context.Context, in *GetContactInfoRequest, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "GetContactInfo", in, opts...)
}

func (c *Client) GetNews(ctx context.Context, in *GetNewsRequest, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "GetNews", in, opts...)
}

func (c *Client) GetServerCompliance(ctx context.Context, opts ...grpc.CallOption) (*ResultResponse, error) {
	return invoke[ResultResponse](ctx, c, "GetServerCompliance", &Empty{}, opts...)
}

func (c *Client) AdminAllowUploads(ctx context.Context, in *AllowUploadsRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "AdminAllowUploads", in, opts...)
}

func (c *Client) AdminClearCanUploadList(ctx context.Context, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "AdminClearCanUploadList", &Empty{}, opts...)
}

func (c *Client) AdminReloadConfiguration(ctx context.Context, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c, "AdminReloadConfiguration", &Empty{}, opts...)
}
