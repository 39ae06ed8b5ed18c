package upload

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/bulletinkeeper/internal/bulletin"
	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/filex"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
)

// Finalizer validates a fully assembled bundle and commits it.
type Finalizer struct {
	store  Store
	logger logging.Logger
}

func NewFinalizer(store Store, l logging.Logger) *Finalizer {
	return &Finalizer{store: store, logger: l.With("module", "finalizer")}
}

// Finalize commits the bundle at path on behalf of uploaderID and returns a
// result code. The interim file is always removed.
func (f *Finalizer) Finalize(ctx context.Context, uploaderID, authorID, localID, path string) string {
	log := f.logger.With("uploader", uploaderID, "author", authorID, "local_id", localID)
	defer func() {
		if err := filex.RemoveIfExists(path); err != nil {
			log.Error(ctx, "cannot remove interim file", "error", err)
		}
	}()

	b, err := bulletin.ReadBundleFile(path)
	if err != nil {
		log.Info(ctx, "bundle unreadable", "error", err)
		return common.ResultInvalidData
	}
	if err := b.VerifyHeader(authorID); err != nil {
		log.Info(ctx, "bundle header rejected", "error", err)
		return headerResult(err)
	}
	if b.Header.LocalID != localID {
		log.Info(ctx, "bundle is for another bulletin", "header_local_id", b.Header.LocalID)
		return common.ResultInvalidData
	}
	if !b.Header.IsAuthorizedToUpload(uploaderID) {
		log.Info(ctx, "uploader not authorized for bulletin")
		return common.ResultNotYourBulletin
	}

	if err := f.store.SaveBundle(ctx, b); err != nil {
		code := saveResult(err)
		if code == common.ResultServerError {
			log.Error(ctx, "bundle commit failed", "error", err)
		} else {
			log.Info(ctx, "bundle refused", "code", code, "error", err)
		}
		return code
	}

	if err := f.store.WriteReceipt(ctx, b.Header); err != nil {
		log.Error(ctx, "receipt write failed", "error", err)
		return common.ResultServerError
	}
	return common.ResultOK
}

func headerResult(err error) string {
	switch {
	case errors.Is(err, common.ErrSignatureVerification):
		return common.ResultSigError
	default:
		return common.ResultInvalidData
	}
}

func saveResult(err error) string {
	switch {
	case errors.Is(err, common.ErrDuplicatePacket):
		return common.ResultDuplicate
	case errors.Is(err, common.ErrSealedPacketExists):
		return common.ResultSealedExists
	case errors.Is(err, common.ErrSignatureVerification):
		return common.ResultSigError
	case errors.Is(err, common.ErrWrongAccount),
		errors.Is(err, common.ErrInvalidPacket),
		errors.Is(err, common.ErrWrongPacketType):
		return common.ResultInvalidData
	default:
		return common.ResultServerError
	}
}
