package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/bulletinkeeper/internal/api"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/netx"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/services"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/upload"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func result(r services.Result) *api.ResultResponse {
	return &api.ResultResponse{Code: r.Code, Items: r.Items}
}

func chunk(req *api.ChunkUploadRequest) upload.Chunk {
	return upload.Chunk{
		UploaderID: req.UploaderID,
		AuthorID:   req.AuthorID,
		LocalID:    req.LocalID,
		TotalSize:  req.TotalSize,
		Offset:     req.Offset,
		ChunkSize:  req.ChunkSize,
		Data:       req.Data,
	}
}

func (s *GRPCServer) Ping(ctx context.Context, req *api.Empty) (*api.PingResponse, error) {
	return &api.PingResponse{Version: s.clients.Ping(ctx)}, nil
}

func (s *GRPCServer) GetServerInformation(ctx context.Context, req *api.Empty) (*api.ResultResponse, error) {
	return result(s.clients.GetServerInformation(ctx)), nil
}

func (s *GRPCServer) AuthenticateServer(ctx context.Context, req *api.AuthenticateServerRequest) (*api.ResultResponse, error) {
	return result(s.clients.AuthenticateServer(ctx, req.Token)), nil
}

func (s *GRPCServer) RequestUploadRights(ctx context.Context, req *api.RequestUploadRightsRequest) (*api.CodeResponse, error) {
	ip := netx.PeerIP(ctx)
	return &api.CodeResponse{Code: s.clients.RequestUploadRights(ctx, ip, req.AccountID, req.MagicWord)}, nil
}

func (s *GRPCServer) UploadBulletinChunk(ctx context.Context, req *api.ChunkUploadRequest) (*api.CodeResponse, error) {
	return &api.CodeResponse{Code: s.clients.UploadBulletinChunk(ctx, chunk(req), req.Signature)}, nil
}

func (s *GRPCServer) PutBulletinChunk(ctx context.Context, req *api.ChunkUploadRequest) (*api.CodeResponse, error) {
	if req.UploaderID == "" {
		return nil, status.Error(codes.InvalidArgument, "uploader id required")
	}
	return &api.CodeResponse{Code: s.clients.PutBulletinChunk(ctx, chunk(req), req.Signature)}, nil
}

func (s *GRPCServer) GetBulletinChunk(ctx context.Context, req *api.GetBulletinChunkRequest) (*api.ChunkResponse, error) {
	c := s.clients.GetBulletinChunk(ctx, req.CallerID, req.AuthorID, req.LocalID, req.Offset, req.MaxChunkSize)
	return &api.ChunkResponse{Code: c.Code, TotalLength: c.TotalLength, ChunkLength: c.ChunkLength, Data: c.Data}, nil
}

func (s *GRPCServer) GetPacket(ctx context.Context, req *api.GetPacketRequest) (*api.PacketResponse, error) {
	p := s.clients.GetPacket(ctx, req.CallerID, req.AuthorID, req.LocalID, req.PacketLocalID)
	return &api.PacketResponse{Code: p.Code, Data: p.Data}, nil
}

func (s *GRPCServer) DownloadFieldDataPacket(ctx context.Context, req *api.DownloadFieldDataPacketRequest) (*api.PacketResponse, error) {
	p := s.clients.DownloadFieldDataPacket(ctx, req.AuthorID, req.LocalID, req.PacketLocalID, req.CallerID, req.Signature)
	return &api.PacketResponse{Code: p.Code, Data: p.Data}, nil
}

func (s *GRPCServer) ListMySealedBulletinIDs(ctx context.Context, req *api.ListRequest) (*api.ResultResponse, error) {
	return result(s.clients.ListMySealedBulletinIDs(ctx, req.CallerID, req.Tags)), nil
}

func (s *GRPCServer) ListMyDraftBulletinIDs(ctx context.Context, req *api.ListRequest) (*api.ResultResponse, error) {
	return result(s.clients.ListMyDraftBulletinIDs(ctx, req.CallerID, req.Tags)), nil
}

func (s *GRPCServer) ListFieldOfficeSealedBulletinIDs(ctx context.Context, req *api.ListRequest) (*api.ResultResponse, error) {
	return result(s.clients.ListFieldOfficeSealedBulletinIDs(ctx, req.CallerID, req.FieldOfficeID, req.Tags)), nil
}

func (s *GRPCServer) ListFieldOfficeDraftBulletinIDs(ctx context.Context, req *api.ListRequest) (*api.ResultResponse, error) {
	return result(s.clients.ListFieldOfficeDraftBulletinIDs(ctx, req.CallerID, req.FieldOfficeID, req.Tags)), nil
}

func (s *GRPCServer) ListFieldOfficeAccounts(ctx context.Context, req *api.ListRequest) (*api.ResultResponse, error) {
	return result(s.clients.ListFieldOfficeAccounts(ctx, req.CallerID)), nil
}

func (s *GRPCServer) DeleteDraftBulletins(ctx context.Context, req *api.DeleteDraftsRequest) (*api.CodeResponse, error) {
	return &api.CodeResponse{Code: s.clients.DeleteDraftBulletins(ctx, req.AccountID, req.LocalIDs, req.Signature)}, nil
}

func (s *GRPCServer) PutContactInfo(ctx context.Context, req *api.PutContactInfoRequest) (*api.CodeResponse, error) {
	return &api.CodeResponse{Code: s.clients.PutContactInfo(ctx, req.AccountID, req.Info)}, nil
}

func (s *GRPCServer) GetContactInfo(ctx context.Context, req *api.GetContactInfoRequest) (*api.ResultResponse, error) {
	return result(s.clients.GetContactInfo(ctx, req.AccountID)), nil
}

func (s *GRPCServer) GetNews(ctx context.Context, req *api.GetNewsRequest) (*api.ResultResponse, error) {
	return result(s.clients.GetNews(ctx, req.AccountID, req.VersionLabel, req.BuildDate)), nil
}

func (s *GRPCServer) GetServerCompliance(ctx context.Context, req *api.Empty) (*api.ResultResponse, error) {
	return result(s.clients.GetServerCompliance(ctx)), nil
}

func (s *GRPCServer) adminError(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrInvalidArgument) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error(ctx, err.Error(), "operator", ctx.Value(OperatorKey))
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) AdminAllowUploads(ctx context.Context, req *api.AllowUploadsRequest) (*api.Empty, error) {
	if err := s.admin.AllowUploads(ctx, req.AccountID, req.MagicWord); err != nil {
		return nil, s.adminError(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) AdminClearCanUploadList(ctx context.Context, req *api.Empty) (*api.Empty, error) {
	if err := s.admin.ClearCanUploadList(ctx); err != nil {
		return nil, s.adminError(ctx, err)
	}
	return &api.Empty{}, nil
}

func (s *GRPCServer) AdminReloadConfiguration(ctx context.Context, req *api.Empty) (*api.Empty, error) {
	s.logger.Info(ctx, "configuration reload requested", "operator", ctx.Value(OperatorKey))
	if err := s.admin.ReloadConfiguration(ctx); err != nil {
		return nil, s.adminError(ctx, err)
	}
	return &api.Empty{}, nil
}
