package api

type Empty struct{}

type PingResponse struct {
	Version string `json:"version"`
}

// CodeResponse carries a single result code.
type CodeResponse struct {
	Code string `json:"code"`
}

// ResultResponse carries a result code followed by its string payload.
type ResultResponse struct {
	Code  string   `json:"code"`
	Items []string `json:"items,omitempty"`
}

type AuthenticateServerRequest struct {
	Token string `json:"token"`
}

type RequestUploadRightsRequest struct {
	AccountID string `json:"account_id"`
	MagicWord string `json:"magic_word"`
}

// ChunkUploadRequest is one base64 slice of a bulletin zip. UploaderID is
// ignored by UploadBulletinChunk, where the author always signs.
type ChunkUploadRequest struct {
	UploaderID string `json:"uploader_id,omitempty"`
	AuthorID   string `json:"author_id"`
	LocalID    string `json:"local_id"`
	TotalSize  int64  `json:"total_size"`
	Offset     int64  `json:"offset"`
	ChunkSize  int    `json:"chunk_size"`
	Data       string `json:"data"`
	Signature  string `json:"signature"`
}

type GetBulletinChunkRequest struct {
	CallerID     string `json:"caller_id"`
	AuthorID     string `json:"author_id"`
	LocalID      string `json:"local_id"`
	Offset       int64  `json:"offset"`
	MaxChunkSize int    `json:"max_chunk_size"`
}

type ChunkResponse struct {
	Code        string `json:"code"`
	TotalLength int64  `json:"total_length,omitempty"`
	ChunkLength int    `json:"chunk_length,omitempty"`
	Data        string `json:"data,omitempty"`
}

type GetPacketRequest struct {
	CallerID      string `json:"caller_id"`
	AuthorID      string `json:"author_id"`
	LocalID       string `json:"local_id"`
	PacketLocalID string `json:"packet_local_id"`
}

type DownloadFieldDataPacketRequest struct {
	AuthorID      string `json:"author_id"`
	LocalID       string `json:"local_id"`
	PacketLocalID string `json:"packet_local_id"`
	CallerID      string `json:"caller_id"`
	Signature     string `json:"signature"`
}

type PacketResponse struct {
	Code string `json:"code"`
	Data string `json:"data,omitempty"`
}

// ListRequest serves every bulletin listing. FieldOfficeID is only read by
// the field office variants, where CallerID is the HQ account.
type ListRequest struct {
	CallerID      string   `json:"caller_id"`
	FieldOfficeID string   `json:"field_office_id,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

type DeleteDraftsRequest struct {
	AccountID string   `json:"account_id"`
	LocalIDs  []string `json:"local_ids"`
	Signature string   `json:"signature"`
}

type PutContactInfoRequest struct {
	AccountID string   `json:"account_id"`
	Info      []string `json:"info"`
}

type GetContactInfoRequest struct {
	AccountID string `json:"account_id"`
}

type GetNewsRequest struct {
	AccountID    string `json:"account_id"`
	VersionLabel string `json:"version_label"`
	BuildDate    string `json:"build_date"`
}

type AllowUploadsRequest struct {
	AccountID string `json:"account_id"`
	MagicWord string `json:"magic_word"`
}
