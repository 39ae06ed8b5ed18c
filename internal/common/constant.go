// Package common contains shared constants, result codes and sentinel errors
// used across bulletinkeeper components.
package common

// Version is reported by Ping.
const Version = "MartusServer v4.0 bulletinkeeper"

// AdminTokenHeaderName is the gRPC metadata key carrying the admin JWT.
const AdminTokenHeaderName = "admin_token"

// Result codes returned to clients. The exact strings are part of the wire
// contract and must never change.
const (
	ResultOK              = "OK"
	ResultChunkOK         = "CHUNK_OK"
	ResultRejected        = "REJECTED"
	ResultServerDown      = "SERVER_DOWN"
	ResultServerError     = "SERVER_ERROR"
	ResultInvalidData     = "INVALID_DATA"
	ResultSigError        = "SIG_ERROR"
	ResultDuplicate       = "DUPLICATE"
	ResultSealedExists    = "SEALED_EXISTS"
	ResultNotYourBulletin = "NOTYOURBULLETIN"
	ResultNotFound        = "NOT_FOUND"
	ResultIncomplete      = "INCOMPLETE"
)

// MaxChunkSize is the largest chunk, in decoded bytes, a client may upload
// and the largest chunk the server hands out on download.
const MaxChunkSize = 100 * 1024

// MaxFailedUploadRequestsPerIP is the default per-IP throttle ceiling for
// failed upload-rights requests.
const MaxFailedUploadRequestsPerIP = 100

// Summary tags understood by the bulletin listing operations.
const (
	TagBulletinSize      = "BulletinSize"
	TagBulletinDateSaved = "BulletinDateSaved"
	TagBulletinHistory   = "BulletinHistory"
)

// BannedNewsNotice is the only news item shown to a banned account.
const BannedNewsNotice = "Your account has been blocked from accessing this server. " +
	"Please contact the Server Policy Administrator for more information."
