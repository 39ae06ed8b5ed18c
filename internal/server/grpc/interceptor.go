package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/api"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const OperatorKey ctxKey = "operator"

func (s *GRPCServer) adminTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if strings.HasPrefix(info.FullMethod, api.AdminMethodPrefix) {

		var adminToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AdminTokenHeaderName)
			if len(values) > 0 {
				adminToken = values[0]
			}
		}
		if len(adminToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		operator, err := auth.OperatorFromToken(adminToken, s.jwtSecret)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = context.WithValue(ctx, OperatorKey, operator)

	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc", "request_id", uuid.NewString(), "method", info.FullMethod,
		"duration", time.Since(start), "code", status.Code(err).String())
	return resp, err
}
