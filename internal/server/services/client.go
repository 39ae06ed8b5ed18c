// Package services contains the server-side business logic behind the RPC
// surface. ClientService answers field clients, HQs and mirrors; AdminService
// carries the operator actions.
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/download"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/upload"
)

type Gate interface {
	IsBanned(accountID string) bool
	CanUpload(accountID string) bool
	RequestUploadRights(ctx context.Context, ip, accountID, magicWord string) string
}

type Lifecycle interface {
	IsShutdownRequested() bool
	ClientConnectionStart()
	ClientConnectionExit()
}

type Store interface {
	FindHeaderKey(ctx context.Context, uid bulletin.UniversalID) (bulletin.DatabaseKey, error)
	DeleteDraft(ctx context.Context, uid bulletin.UniversalID) error
	WriteContactInfo(ctx context.Context, accountID string, info []string) error
	ReadContactInfo(ctx context.Context, accountID string) ([]string, error)
}

type Uploader interface {
	UploadChunk(ctx context.Context, c upload.Chunk, signature string) string
}

type Downloader interface {
	GetChunk(ctx context.Context, callerID, authorID, localID string, offset int64, maxChunk int) download.Chunk
	GetPacket(ctx context.Context, callerID, authorID, localID, packetLocalID string) download.Packet
	DownloadFieldDataPacket(ctx context.Context, authorID, localID, packetLocalID, callerID, signature string) download.Packet
}

type Summaries interface {
	MySealed(ctx context.Context, callerID string, tags []string) ([]string, error)
	MyDrafts(ctx context.Context, callerID string, tags []string) ([]string, error)
	FieldOfficeSealed(ctx context.Context, hqID, fieldOfficeID string, tags []string) ([]string, error)
	FieldOfficeDrafts(ctx context.Context, hqID, fieldOfficeID string, tags []string) ([]string, error)
	FieldOfficeAccounts(ctx context.Context, hqID string) ([]string, error)
}

type News interface {
	Items() []string
}

// Deps wires a ClientService.
type Deps struct {
	Gate       Gate
	Lifecycle  Lifecycle
	Store      Store
	Uploads    Uploader
	Downloads  Downloader
	Summaries  Summaries
	News       News
	Compliance string
	Security   *cryptox.Security
}

type ClientService struct {
	Deps
	logger logging.Logger
}

func NewClientService(d Deps, l logging.Logger) *ClientService {
	return &ClientService{Deps: d, logger: l.With("module", "clients")}
}

// Result is a result code with its payload.
type Result struct {
	Code  string
	Items []string
}

func single(code string) Result { return Result{Code: code} }

// begin applies the banned and shutdown checks, in that order, and counts
// the caller as active when both pass. done must be called exactly once.
func (s *ClientService) begin(accountIDs ...string) (code string, done func()) {
	for _, id := range accountIDs {
		if s.Gate.IsBanned(id) {
			return common.ResultRejected, func() {}
		}
	}
	if s.Lifecycle.IsShutdownRequested() {
		return common.ResultServerDown, func() {}
	}
	s.Lifecycle.ClientConnectionStart()
	return "", s.Lifecycle.ClientConnectionExit
}

// VectorMessage is the byte string signed for a vector of strings.
func VectorMessage(items []string) []byte {
	b, _ := bulletin.Marshal(items)
	return b
}

// Ping returns the server version.
func (s *ClientService) Ping(ctx context.Context) string {
	s.logger.Debug(ctx, "ping")
	return common.Version
}

// GetServerInformation returns the server account id and its self-signature.
func (s *ClientService) GetServerInformation(ctx context.Context) Result {
	if s.Lifecycle.IsShutdownRequested() {
		return single(common.ResultServerDown)
	}
	pub := s.Security.PublicKey()
	sig, err := s.Security.SignReader(bytes.NewReader(pub))
	if err != nil {
		s.logger.Error(ctx, "self-signature failed", "error", err)
		return single(common.ResultServerError)
	}
	return Result{Code: common.ResultOK, Items: []string{s.Security.AccountID(), base64.StdEncoding.EncodeToString(sig)}}
}

// AuthenticateServer signs a caller-chosen base64 token, proving possession
// of the server key.
func (s *ClientService) AuthenticateServer(ctx context.Context, token string) Result {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return single(common.ResultInvalidData)
	}
	sig, err := s.Security.SignReader(bytes.NewReader(raw))
	if err != nil {
		s.logger.Error(ctx, "token signature failed", "error", err)
		return single(common.ResultServerError)
	}
	return Result{Code: common.ResultOK, Items: []string{base64.StdEncoding.EncodeToString(sig)}}
}

func (s *ClientService) RequestUploadRights(ctx context.Context, ip, accountID, magicWord string) string {
	code, done := s.begin(accountID)
	defer done()
	if code != "" {
		return code
	}
	return s.Gate.RequestUploadRights(ctx, ip, accountID, magicWord)
}

// UploadBulletinChunk accepts a chunk signed by its author.
func (s *ClientService) UploadBulletinChunk(ctx context.Context, c upload.Chunk, signature string) string {
	c.UploaderID = c.AuthorID
	return s.PutBulletinChunk(ctx, c, signature)
}

// PutBulletinChunk accepts a chunk signed by its uploader, who may be a
// proxy named in the bulletin header.
func (s *ClientService) PutBulletinChunk(ctx context.Context, c upload.Chunk, signature string) string {
	code, done := s.begin(c.UploaderID, c.AuthorID)
	defer done()
	if code != "" {
		return code
	}
	return s.Uploads.UploadChunk(ctx, c, signature)
}

func (s *ClientService) GetBulletinChunk(ctx context.Context, callerID, authorID, localID string, offset int64, maxChunk int) download.Chunk {
	code, done := s.begin(callerID)
	defer done()
	if code != "" {
		return download.Chunk{Code: code}
	}
	return s.Downloads.GetChunk(ctx, callerID, authorID, localID, offset, maxChunk)
}

func (s *ClientService) GetPacket(ctx context.Context, callerID, authorID, localID, packetLocalID string) download.Packet {
	code, done := s.begin(callerID)
	defer done()
	if code != "" {
		return download.Packet{Code: code}
	}
	return s.Downloads.GetPacket(ctx, callerID, authorID, localID, packetLocalID)
}

func (s *ClientService) DownloadFieldDataPacket(ctx context.Context, authorID, localID, packetLocalID, callerID, signature string) download.Packet {
	code, done := s.begin(callerID)
	defer done()
	if code != "" {
		return download.Packet{Code: code}
	}
	return s.Downloads.DownloadFieldDataPacket(ctx, authorID, localID, packetLocalID, callerID, signature)
}

func (s *ClientService) list(ctx context.Context, callerID string, fn func() ([]string, error)) Result {
	code, done := s.begin(callerID)
	defer done()
	if code != "" {
		return single(code)
	}
	items, err := fn()
	if err != nil {
		s.logger.Error(ctx, "listing failed", "caller", callerID, "error", err)
		return single(common.ResultServerError)
	}
	return Result{Code: common.ResultOK, Items: items}
}

func (s *ClientService) ListMySealedBulletinIDs(ctx context.Context, callerID string, tags []string) Result {
	return s.list(ctx, callerID, func() ([]string, error) { return s.Summaries.MySealed(ctx, callerID, tags) })
}

func (s *ClientService) ListMyDraftBulletinIDs(ctx context.Context, callerID string, tags []string) Result {
	return s.list(ctx, callerID, func() ([]string, error) { return s.Summaries.MyDrafts(ctx, callerID, tags) })
}

func (s *ClientService) ListFieldOfficeSealedBulletinIDs(ctx context.Context, hqID, fieldOfficeID string, tags []string) Result {
	return s.list(ctx, hqID, func() ([]string, error) { return s.Summaries.FieldOfficeSealed(ctx, hqID, fieldOfficeID, tags) })
}

func (s *ClientService) ListFieldOfficeDraftBulletinIDs(ctx context.Context, hqID, fieldOfficeID string, tags []string) Result {
	return s.list(ctx, hqID, func() ([]string, error) { return s.Summaries.FieldOfficeDrafts(ctx, hqID, fieldOfficeID, tags) })
}

func (s *ClientService) ListFieldOfficeAccounts(ctx context.Context, hqID string) Result {
	return s.list(ctx, hqID, func() ([]string, error) { return s.Summaries.FieldOfficeAccounts(ctx, hqID) })
}

// DeleteDraftMessage is what a client signs to delete drafts.
func DeleteDraftMessage(localIDs []string) []byte {
	return VectorMessage(append([]string{strconv.Itoa(len(localIDs))}, localIDs...))
}

// DeleteDraftBulletins removes the caller's drafts. Sealed bulletins named
// in the request are left alone; any id that cannot be deleted makes the
// result INCOMPLETE.
func (s *ClientService) DeleteDraftBulletins(ctx context.Context, accountID string, localIDs []string, signature string) string {
	code, done := s.begin(accountID)
	defer done()
	if code != "" {
		return code
	}
	if err := cryptox.VerifyBase64(accountID, DeleteDraftMessage(localIDs), signature); err != nil {
		return common.ResultSigError
	}

	result := common.ResultOK
	for _, id := range localIDs {
		uid := bulletin.NewUniversalID(accountID, id)
		key, err := s.Store.FindHeaderKey(ctx, uid)
		if err != nil {
			s.logger.Info(ctx, "draft not deleted", "local_id", id, "error", err)
			result = common.ResultIncomplete
			continue
		}
		if key.IsSealed() {
			continue
		}
		if err := s.Store.DeleteDraft(ctx, uid); err != nil {
			s.logger.Warn(ctx, "draft delete failed", "local_id", id, "error", err)
			result = common.ResultIncomplete
		}
	}
	return result
}

// PutContactInfo stores a contact vector laid out as
// [accountID, N, item1..itemN, signature], where the signature covers
// everything before it.
func (s *ClientService) PutContactInfo(ctx context.Context, accountID string, info []string) string {
	code, done := s.begin(accountID)
	defer done()
	if code != "" {
		return code
	}
	if !s.Gate.CanUpload(accountID) {
		return common.ResultRejected
	}
	if len(info) <= 3 || info[0] != accountID {
		return common.ResultInvalidData
	}
	n, err := strconv.Atoi(info[1])
	if err != nil || n+3 != len(info) {
		return common.ResultInvalidData
	}
	if err := verifyContactInfo(info); err != nil {
		return common.ResultSigError
	}
	if err := s.Store.WriteContactInfo(ctx, accountID, info); err != nil {
		s.logger.Error(ctx, "contact info write failed", "account", accountID, "error", err)
		return common.ResultServerError
	}
	return common.ResultOK
}

func verifyContactInfo(info []string) error {
	last := len(info) - 1
	return cryptox.VerifyBase64(info[0], VectorMessage(info[:last]), info[last])
}

// GetContactInfo returns the stored contact vector after re-checking its
// signature.
func (s *ClientService) GetContactInfo(ctx context.Context, accountID string) Result {
	if s.Lifecycle.IsShutdownRequested() {
		return single(common.ResultServerDown)
	}
	info, err := s.Store.ReadContactInfo(ctx, accountID)
	if errors.Is(err, common.ErrorNotFound) {
		return single(common.ResultNotFound)
	}
	if err != nil {
		s.logger.Error(ctx, "contact info read failed", "account", accountID, "error", err)
		return single(common.ResultServerError)
	}
	if len(info) < 2 || verifyContactInfo(info) != nil {
		s.logger.Warn(ctx, "stored contact info failed verification", "account", accountID)
		return single(common.ResultSigError)
	}
	return Result{Code: common.ResultOK, Items: info}
}

// GetNews returns the news items, or only the ban notice for a banned
// account.
func (s *ClientService) GetNews(ctx context.Context, accountID, versionLabel, buildDate string) Result {
	s.logger.Debug(ctx, "news requested", "account", accountID, "version", versionLabel, "build", buildDate)
	if s.Gate.IsBanned(accountID) {
		return Result{Code: common.ResultOK, Items: []string{common.BannedNewsNotice}}
	}
	return Result{Code: common.ResultOK, Items: s.News.Items()}
}

func (s *ClientService) GetServerCompliance(ctx context.Context) Result {
	return Result{Code: common.ResultOK, Items: []string{s.Compliance}}
}
