// Package download serves stored bulletins to their authors, to HQ accounts
// and to mirrors, either as a chunked zip bundle or as single packets.
package download

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/filex"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
)

type Gate interface {
	IsBanned(accountID string) bool
}

type Lifecycle interface {
	IsShutdownRequested() bool
}

type Store interface {
	FindHeaderKey(ctx context.Context, uid bulletin.UniversalID) (bulletin.DatabaseKey, error)
	LoadHeader(ctx context.Context, key bulletin.DatabaseKey) (*bulletin.HeaderPacket, error)
	ReadPacket(ctx context.Context, key bulletin.DatabaseKey) ([]byte, error)
	ExportBundle(ctx context.Context, key bulletin.DatabaseKey, w io.Writer) error
	OutgoingInterimFile(uid bulletin.UniversalID) string
	OutgoingSignatureFile(uid bulletin.UniversalID) string
	LockOutgoing(uid bulletin.UniversalID) func()
}

// Chunk is the reply to GetChunk. Only Code is set unless it is OK or
// CHUNK_OK.
type Chunk struct {
	Code        string
	TotalLength int64
	ChunkLength int
	Data        string
}

// Packet is the reply to GetPacket. Data is the base64 of the stored
// envelope.
type Packet struct {
	Code string
	Data string
}

type Server struct {
	gate     Gate
	life     Lifecycle
	store    Store
	security *cryptox.Security
	logger   logging.Logger
}

func NewServer(gate Gate, life Lifecycle, store Store, security *cryptox.Security, l logging.Logger) *Server {
	return &Server{
		gate:     gate,
		life:     life,
		store:    store,
		security: security,
		logger:   l.With("module", "download"),
	}
}

// authorize resolves the header key for uid and checks callerID may read it.
// A non-empty code means the request must stop.
func (s *Server) authorize(ctx context.Context, callerID string, uid bulletin.UniversalID) (bulletin.DatabaseKey, string) {
	key, code := s.locate(ctx, uid)
	if code != "" {
		return key, code
	}
	return key, s.permit(ctx, callerID, key)
}

func (s *Server) locate(ctx context.Context, uid bulletin.UniversalID) (bulletin.DatabaseKey, string) {
	key, err := s.store.FindHeaderKey(ctx, uid)
	if errors.Is(err, common.ErrorNotFound) {
		return key, common.ResultNotFound
	}
	if err != nil {
		s.logger.Error(ctx, "header lookup failed", "local_id", uid.LocalID, "error", err)
		return key, common.ResultServerError
	}
	return key, ""
}

// permit lets the author and the HQs the header names read the revision.
func (s *Server) permit(ctx context.Context, callerID string, key bulletin.DatabaseKey) string {
	if callerID == key.UID.AccountID {
		return ""
	}

	h, err := s.store.LoadHeader(ctx, key)
	switch {
	case errors.Is(err, common.ErrSignatureVerification):
		return common.ResultSigError
	case err != nil:
		s.logger.Error(ctx, "header load failed", "local_id", key.UID.LocalID, "error", err)
		return common.ResultServerError
	case !h.IsHQAuthorizedToRead(callerID):
		return common.ResultNotYourBulletin
	}
	return ""
}

// GetChunk returns up to maxChunk bytes of the bulletin's zip bundle
// starting at offset. The bundle is exported once and cached on disk, signed
// by the server, until the final chunk has been handed out.
func (s *Server) GetChunk(ctx context.Context, callerID, authorID, localID string, offset int64, maxChunk int) Chunk {
	if s.gate.IsBanned(callerID) {
		return Chunk{Code: common.ResultRejected}
	}
	if s.life.IsShutdownRequested() {
		return Chunk{Code: common.ResultServerDown}
	}

	uid := bulletin.NewUniversalID(authorID, localID)
	key, code := s.authorize(ctx, callerID, uid)
	if code != "" {
		return Chunk{Code: code}
	}
	if offset < 0 || maxChunk <= 0 {
		return Chunk{Code: common.ResultInvalidData}
	}
	maxChunk = min(maxChunk, common.MaxChunkSize)

	unlock := s.store.LockOutgoing(uid)
	defer unlock()

	path, err := s.interimFile(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "cannot prepare download", "author", authorID, "local_id", localID, "error", err)
		return Chunk{Code: common.ResultServerError}
	}

	data, total, err := readChunk(path, offset, maxChunk)
	if err != nil {
		if errors.Is(err, errOffsetBeyondEnd) {
			return Chunk{Code: common.ResultInvalidData}
		}
		s.logger.Error(ctx, "cannot read download chunk", "local_id", localID, "error", err)
		return Chunk{Code: common.ResultServerError}
	}

	res := Chunk{
		Code:        common.ResultChunkOK,
		TotalLength: total,
		ChunkLength: len(data),
		Data:        base64.StdEncoding.EncodeToString(data),
	}
	if offset+int64(len(data)) >= total {
		res.Code = common.ResultOK
		s.discard(ctx, uid)
	}
	return res
}

// interimFile returns the cached, server-signed bundle for key, exporting
// it again when the cache is missing or no longer verifies.
func (s *Server) interimFile(ctx context.Context, key bulletin.DatabaseKey) (string, error) {
	path := s.store.OutgoingInterimFile(key.UID)
	sigPath := s.store.OutgoingSignatureFile(key.UID)

	if filex.Exists(path) && filex.Exists(sigPath) {
		if err := cryptox.VerifyFile(s.security.AccountID(), path, sigPath); err == nil {
			return path, nil
		}
		s.logger.Warn(ctx, "cached download failed verification", "local_id", key.UID.LocalID)
	}
	s.discard(ctx, key.UID)

	tmp := filex.TempSibling(path)
	if err := s.export(ctx, key, tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	if err := s.security.SignFile(path, sigPath); err != nil {
		return "", err
	}
	if err := cryptox.VerifyFile(s.security.AccountID(), path, sigPath); err != nil {
		return "", err
	}
	s.logger.Debug(ctx, "download prepared", "local_id", key.UID.LocalID, "status", key.Status)
	return path, nil
}

func (s *Server) export(ctx context.Context, key bulletin.DatabaseKey, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := s.store.ExportBundle(ctx, key, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Server) discard(ctx context.Context, uid bulletin.UniversalID) {
	for _, p := range []string{s.store.OutgoingInterimFile(uid), s.store.OutgoingSignatureFile(uid)} {
		if err := filex.RemoveIfExists(p); err != nil {
			s.logger.Error(ctx, "cannot remove download cache", "path", p, "error", err)
		}
	}
}

var errOffsetBeyondEnd = errors.New("offset beyond end of bundle")

func readChunk(path string, offset int64, maxChunk int) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	total := fi.Size()
	if offset >= total {
		return nil, total, errOffsetBeyondEnd
	}

	buf := make([]byte, min(int64(maxChunk), total-offset))
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, total, err
	}
	return buf, total, nil
}

// GetPacket returns one header or field data packet of a stored bulletin.
func (s *Server) GetPacket(ctx context.Context, callerID, authorID, localID, packetLocalID string) Packet {
	if s.gate.IsBanned(callerID) {
		return Packet{Code: common.ResultRejected}
	}
	if s.life.IsShutdownRequested() {
		return Packet{Code: common.ResultServerDown}
	}
	if !bulletin.IsHeaderLocalID(packetLocalID) && !bulletin.IsFieldDataLocalID(packetLocalID) {
		s.logger.Info(ctx, "disallowed packet type requested", "packet", packetLocalID)
		return Packet{Code: common.ResultInvalidData}
	}

	key, code := s.locate(ctx, bulletin.NewUniversalID(authorID, localID))
	if code != "" {
		return Packet{Code: code}
	}

	// a missing packet is NOT_FOUND whoever asks
	raw, err := s.store.ReadPacket(ctx, key.WithLocalID(packetLocalID))
	if errors.Is(err, common.ErrorNotFound) {
		return Packet{Code: common.ResultNotFound}
	}
	if err != nil {
		s.logger.Error(ctx, "packet read failed", "packet", packetLocalID, "error", err)
		return Packet{Code: common.ResultServerError}
	}
	if code := s.permit(ctx, callerID, key); code != "" {
		return Packet{Code: code}
	}
	return Packet{Code: common.ResultOK, Data: base64.StdEncoding.EncodeToString(raw)}
}

// FieldDataMessage is what a caller signs to download a field data packet.
func FieldDataMessage(authorID, localID, packetLocalID, callerID string) []byte {
	return []byte(authorID + "," + localID + "," + packetLocalID + "," + callerID)
}

// DownloadFieldDataPacket is GetPacket for callers proving their identity
// with a signature over FieldDataMessage.
func (s *Server) DownloadFieldDataPacket(ctx context.Context, authorID, localID, packetLocalID, callerID, signature string) Packet {
	if s.gate.IsBanned(callerID) {
		return Packet{Code: common.ResultRejected}
	}
	if s.life.IsShutdownRequested() {
		return Packet{Code: common.ResultServerDown}
	}
	msg := FieldDataMessage(authorID, localID, packetLocalID, callerID)
	if err := cryptox.VerifyBase64(callerID, msg, signature); err != nil {
		s.logger.Info(ctx, "field data request signature rejected", "caller", callerID)
		return Packet{Code: common.ResultSigError}
	}
	return s.GetPacket(ctx, callerID, authorID, localID, packetLocalID)
}
