package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/filex"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
)

type Gate interface {
	IsBanned(accountID string) bool
	CanUpload(accountID string) bool
}

type Lifecycle interface {
	IsShutdownRequested() bool
}

type Store interface {
	IncomingInterimFile(uid bulletin.UniversalID) string
	LockIncoming(uid bulletin.UniversalID) func()
	SaveBundle(ctx context.Context, b *bulletin.Bundle) error
	WriteReceipt(ctx context.Context, h *bulletin.HeaderPacket) error
}

// Chunk is one upload request.
type Chunk struct {
	UploaderID string
	AuthorID   string
	LocalID    string
	TotalSize  int64
	Offset     int64
	ChunkSize  int
	Data       string
}

// SignedMessage is the byte string an uploader signs for a chunk:
// "author,localId,total,offset,size,data".
func (c Chunk) SignedMessage() []byte {
	return []byte(strings.Join([]string{
		c.AuthorID,
		c.LocalID,
		strconv.FormatInt(c.TotalSize, 10),
		strconv.FormatInt(c.Offset, 10),
		strconv.Itoa(c.ChunkSize),
		c.Data,
	}, ","))
}

// Assembler appends chunks to per-bulletin interim files.
type Assembler struct {
	gate         Gate
	life         Lifecycle
	store        Store
	finalizer    *Finalizer
	maxChunkSize int
	logger       logging.Logger
}

func NewAssembler(gate Gate, life Lifecycle, store Store, finalizer *Finalizer, l logging.Logger) *Assembler {
	return &Assembler{
		gate:         gate,
		life:         life,
		store:        store,
		finalizer:    finalizer,
		maxChunkSize: common.MaxChunkSize,
		logger:       l.With("module", "upload"),
	}
}

// UploadChunk verifies the uploader's signature over the chunk and then
// behaves as PutChunk. Ban and shutdown are answered before the signature
// is checked.
func (a *Assembler) UploadChunk(ctx context.Context, c Chunk, signature string) string {
	if a.gate.IsBanned(c.UploaderID) || a.gate.IsBanned(c.AuthorID) {
		return common.ResultRejected
	}
	if a.life.IsShutdownRequested() {
		return common.ResultServerDown
	}
	if err := cryptox.VerifyBase64(c.UploaderID, c.SignedMessage(), signature); err != nil {
		a.logger.Warn(ctx, "chunk signature rejected", "uploader", c.UploaderID, "local_id", c.LocalID)
		return common.ResultSigError
	}
	return a.PutChunk(ctx, c)
}

// PutChunk appends one chunk and finalizes the bulletin when complete.
// It returns CHUNK_OK while more data is expected.
func (a *Assembler) PutChunk(ctx context.Context, c Chunk) string {
	if a.gate.IsBanned(c.UploaderID) || a.gate.IsBanned(c.AuthorID) {
		return common.ResultRejected
	}
	if a.life.IsShutdownRequested() {
		return common.ResultServerDown
	}
	if !a.gate.CanUpload(c.UploaderID) {
		return common.ResultRejected
	}

	uid := bulletin.NewUniversalID(c.AuthorID, c.LocalID)
	unlock := a.store.LockIncoming(uid)
	defer unlock()

	path := a.store.IncomingInterimFile(uid)
	log := a.logger.With("uploader", c.UploaderID, "author", c.AuthorID, "local_id", c.LocalID)

	discard := func(reason string) string {
		log.Info(ctx, "chunk rejected", "reason", reason, "offset", c.Offset, "size", c.ChunkSize, "total", c.TotalSize)
		if err := filex.RemoveIfExists(path); err != nil {
			log.Error(ctx, "cannot remove interim file", "error", err)
		}
		return common.ResultInvalidData
	}

	if c.ChunkSize < 0 || c.ChunkSize > a.maxChunkSize {
		return discard("chunk size out of range")
	}
	if c.TotalSize < 0 || c.Offset < 0 {
		return discard("negative size or offset")
	}
	if c.Offset == 0 {
		if err := filex.RemoveIfExists(path); err != nil {
			log.Error(ctx, "cannot reset interim file", "error", err)
			return common.ResultServerError
		}
	}

	length, err := filex.Size(path)
	if err != nil {
		log.Error(ctx, "cannot stat interim file", "error", err)
		return common.ResultServerError
	}
	if length != c.Offset {
		return discard(fmt.Sprintf("offset mismatch: have %d bytes", length))
	}
	if length+int64(c.ChunkSize) > c.TotalSize {
		return discard("chunk overflows total size")
	}

	decoded, err := base64.StdEncoding.DecodeString(c.Data)
	if err != nil {
		return discard("bad base64")
	}
	if len(decoded) != c.ChunkSize {
		return discard("decoded length differs from chunk size")
	}
	if err := appendFile(path, decoded); err != nil {
		log.Error(ctx, "cannot append chunk", "error", err)
		_ = filex.RemoveIfExists(path)
		return common.ResultServerError
	}

	newLength, err := filex.Size(path)
	if err != nil {
		log.Error(ctx, "cannot stat interim file", "error", err)
		return common.ResultServerError
	}
	if newLength != length+int64(c.ChunkSize) {
		return discard("interim file grew by an unexpected amount")
	}
	if newLength < c.TotalSize {
		log.Debug(ctx, "chunk stored", "length", newLength, "total", c.TotalSize)
		return common.ResultChunkOK
	}

	return a.finalizer.Finalize(ctx, c.UploaderID, c.AuthorID, c.LocalID, path)
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
