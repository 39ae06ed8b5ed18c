package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/bulletinkeeper/internal/api"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/download"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/services"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/upload"
	"google.golang.org/grpc"
)

// Clients is the client-facing service behind the public RPCs.
type Clients interface {
	Ping(ctx context.Context) string
	GetServerInformation(ctx context.Context) services.Result
	AuthenticateServer(ctx context.Context, token string) services.Result
	RequestUploadRights(ctx context.Context, ip, accountID, magicWord string) string
	UploadBulletinChunk(ctx context.Context, c upload.Chunk, signature string) string
	PutBulletinChunk(ctx context.Context, c upload.Chunk, signature string) string
	GetBulletinChunk(ctx context.Context, callerID, authorID, localID string, offset int64, maxChunk int) download.Chunk
	GetPacket(ctx context.Context, callerID, authorID, localID, packetLocalID string) download.Packet
	DownloadFieldDataPacket(ctx context.Context, authorID, localID, packetLocalID, callerID, signature string) download.Packet
	ListMySealedBulletinIDs(ctx context.Context, callerID string, tags []string) services.Result
	ListMyDraftBulletinIDs(ctx context.Context, callerID string, tags []string) services.Result
	ListFieldOfficeSealedBulletinIDs(ctx context.Context, hqID, fieldOfficeID string, tags []string) services.Result
	ListFieldOfficeDraftBulletinIDs(ctx context.Context, hqID, fieldOfficeID string, tags []string) services.Result
	ListFieldOfficeAccounts(ctx context.Context, hqID string) services.Result
	DeleteDraftBulletins(ctx context.Context, accountID string, localIDs []string, signature string) string
	PutContactInfo(ctx context.Context, accountID string, info []string) string
	GetContactInfo(ctx context.Context, accountID string) services.Result
	GetNews(ctx context.Context, accountID, versionLabel, buildDate string) services.Result
	GetServerCompliance(ctx context.Context) services.Result
}

// Admin carries the operator RPCs.
type Admin interface {
	AllowUploads(ctx context.Context, accountID, magicWord string) error
	ClearCanUploadList(ctx context.Context) error
	ReloadConfiguration(ctx context.Context) error
}

type GRPCServer struct {
	address   string
	clients   Clients
	admin     Admin
	logger    logging.Logger
	jwtSecret []byte
}

var _ api.BulletinServiceServer = (*GRPCServer)(nil)

func NewgGRPCServer(a string, l logging.Logger, cs Clients, as Admin, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		clients:   cs,
		admin:     as,
		jwtSecret: []byte(secretKey),
	}, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.adminTokenInterceptor))

	// registers service
	api.RegisterBulletinServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
