package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bulletinkeeper/internal/common"
	"github.com/dmitrijs2005/bulletinkeeper/internal/logging"
)

type AdminGate interface {
	AllowUploads(ctx context.Context, accountID, magicWord string) error
	ClearCanUploadList(ctx context.Context) error
	LoadUploadList() error
	LoadBannedClients(path string) error
	LoadTestAccounts(path string) error
	LoadMagicWords(path string) error
}

type NewsLoader interface {
	Load(ctx context.Context) error
}

// ConfigFiles names the operator-editable lists reread on reload.
type ConfigFiles struct {
	Banned       string
	TestAccounts string
	MagicWords   string
}

type AdminService struct {
	gate   AdminGate
	news   NewsLoader
	files  ConfigFiles
	logger logging.Logger
}

func NewAdminService(gate AdminGate, news NewsLoader, files ConfigFiles, l logging.Logger) *AdminService {
	return &AdminService{gate: gate, news: news, files: files, logger: l.With("module", "admin")}
}

func (s *AdminService) AllowUploads(ctx context.Context, accountID, magicWord string) error {
	if accountID == "" {
		return fmt.Errorf("%w: empty account id", common.ErrInvalidArgument)
	}
	if err := s.gate.AllowUploads(ctx, accountID, magicWord); err != nil {
		return err
	}
	s.logger.Info(ctx, "uploads allowed", "account", accountID)
	return nil
}

func (s *AdminService) ClearCanUploadList(ctx context.Context) error {
	if err := s.gate.ClearCanUploadList(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "upload list cleared")
	return nil
}

// ReloadConfiguration rereads the upload, ban, test-account and magic-word
// lists and the news directory. Every step runs; the errors are joined.
func (s *AdminService) ReloadConfiguration(ctx context.Context) error {
	err := errors.Join(
		s.gate.LoadUploadList(),
		s.gate.LoadBannedClients(s.files.Banned),
		s.gate.LoadTestAccounts(s.files.TestAccounts),
		s.gate.LoadMagicWords(s.files.MagicWords),
		s.news.Load(ctx),
	)
	if err != nil {
		s.logger.Error(ctx, "configuration reload failed", "error", err)
		return err
	}
	s.logger.Info(ctx, "configuration reloaded")
	return nil
}
